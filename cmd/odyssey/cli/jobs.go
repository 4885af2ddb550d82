package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/jobs"
)

// buildTask prepares the manual run of a maintenance job. Alerts are never
// triggered by hand; they only follow a commit or a scan.
func buildTask(name string, retention time.Duration) (*asynq.Task, error) {
	switch name {
	case jobs.TaskLowStockScan:
		return jobs.NewLowStockScanTask(true)
	case jobs.TaskIdempotencyCleanup:
		return jobs.NewIdempotencyCleanupTask(retention)
	default:
		return nil, fmt.Errorf("%w: cannot trigger %q (want %s or %s)", ErrUsage, name, jobs.TaskLowStockScan, jobs.TaskIdempotencyCleanup)
	}
}

func triggerJob(ctx context.Context, env Env, name string) error {
	task, err := buildTask(name, env.IdempotencyRetention)
	if err != nil {
		return err
	}
	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: env.RedisAddr})
	if err != nil {
		return err
	}
	defer client.Close()

	info, err := client.Enqueue(ctx, task, asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	fmt.Fprintf(env.Out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return nil
}

func printQueueStats(env Env) error {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: env.RedisAddr})
	defer inspector.Close()

	stats, err := jobs.InspectQueues(inspector)
	if err != nil {
		return err
	}
	writeQueueStats(env.Out, stats)
	return nil
}

func writeQueueStats(w io.Writer, stats []jobs.QueueStats) {
	for _, s := range stats {
		fmt.Fprintf(w, "%-8s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
	}
}
