package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAlerts carries stock alerts raised after commits.
	QueueAlerts = "alerts"

	// TaskLowStockAlert reports products that dropped to or below their reorder level.
	TaskLowStockAlert = "inventory:low_stock_alert"
	// TaskLowStockScan periodically re-checks the whole catalogue.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "orders:idempotency_cleanup"
)

// LowStockAlertPayload describes the stock records that triggered an alert.
type LowStockAlertPayload struct {
	Reference string                   `json:"reference"`
	Items     []inventory.LowStockItem `json:"items"`
	RaisedAt  time.Time                `json:"raised_at"`
}

// LowStockScanPayload carries scan options.
type LowStockScanPayload struct {
	Notify bool `json:"notify"`
}

// IdempotencyCleanupPayload controls the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewLowStockAlertTask constructs an alert task.
func NewLowStockAlertTask(payload LowStockAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, body, asynq.Queue(QueueAlerts), asynq.MaxRetry(5)), nil
}

// NewLowStockScanTask constructs the periodic scan task.
func NewLowStockScanTask(notify bool) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{Notify: notify})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask constructs the purge task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
