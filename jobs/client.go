package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
)

// Client enqueues tasks on behalf of the API process. It satisfies
// inventory.AlertEnqueuer.
type Client struct {
	client *asynq.Client
	now    func() time.Time
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{
		client: asynq.NewClient(redisOpts),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// EnqueueLowStockAlert enqueues an alert for items. The reference doubles as
// the task id, so a retried hook for the same order enqueues nothing new.
func (c *Client) EnqueueLowStockAlert(ctx context.Context, reference string, items []inventory.LowStockItem) error {
	if c == nil || len(items) == 0 {
		return nil
	}
	task, err := NewLowStockAlertTask(LowStockAlertPayload{Reference: reference, Items: items, RaisedAt: c.now()})
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if reference != "" {
		opts = append(opts, asynq.TaskID(TaskLowStockAlert+":"+reference))
	}
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Enqueue submits an arbitrary prepared task.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, task, opts...)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
