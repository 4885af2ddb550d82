package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// LowStockSource lists products at or below their reorder level.
type LowStockSource interface {
	LowStockItems(ctx context.Context) ([]inventory.LowStockItem, error)
}

// LowStockNotifier delivers an alert to operators.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, reference string, items []inventory.LowStockItem) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyLowStock logs one warning per product.
func (n LogNotifier) NotifyLowStock(ctx context.Context, reference string, items []inventory.LowStockItem) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, item := range items {
		logger.WarnContext(ctx, "low stock",
			slog.String("reference", reference),
			slog.String("product_code", item.ProductCode),
			slog.Int("quantity", item.Quantity),
			slog.Int("reorder_level", item.ReorderLevel),
		)
	}
	return nil
}

// LowStockJob handles both the per-commit alert and the periodic scan.
type LowStockJob struct {
	Source   LowStockSource
	Notifier LowStockNotifier
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewLowStockJob initialises the low stock handlers.
func NewLowStockJob(source LowStockSource, notifier LowStockNotifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{
		Source:   source,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HandleAlert delivers an alert enqueued after a commit.
func (j *LowStockJob) HandleAlert(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifier == nil {
		return errors.New("low stock alert: handler not configured")
	}
	var payload LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.Items) == 0 {
		return nil
	}

	tracker := j.Metrics.Track(TaskLowStockAlert)
	err := j.Notifier.NotifyLowStock(ctx, payload.Reference, payload.Items)
	if err == nil {
		j.Metrics.AddLowStockAlerts("commit", len(payload.Items))
	}
	return tracker.End(err)
}

// HandleScan lists every low stock product and optionally notifies.
func (j *LowStockJob) HandleScan(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.clock()
	tracker := j.Metrics.Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	items, err := j.Source.LowStockItems(ctx)
	if err != nil {
		resultErr = err
		j.logger().Error("low stock scan failed", slog.Any("error", err))
		return resultErr
	}
	j.Metrics.SetLowStockItems(len(items))

	if payload.Notify && len(items) > 0 && j.Notifier != nil {
		if err := j.Notifier.NotifyLowStock(ctx, "scan:"+start.Format(time.RFC3339), items); err != nil {
			resultErr = err
			return resultErr
		}
		j.Metrics.AddLowStockAlerts("scan", len(items))
	}

	j.logger().Info("completed low stock scan",
		slog.Int("items", len(items)),
		slog.Duration("duration", j.clock().Sub(start)),
	)
	return resultErr
}

func (j *LowStockJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
