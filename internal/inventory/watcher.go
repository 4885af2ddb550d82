package inventory

import (
	"context"
	"log/slog"
)

// AlertEnqueuer schedules low stock notifications.
type AlertEnqueuer interface {
	EnqueueLowStockAlert(ctx context.Context, reference string, items []LowStockItem) error
}

// Watcher reacts to committed stock changes: it invalidates cached reads and
// raises alerts for products that just fell to their reorder threshold.
type Watcher struct {
	cache  *Cache
	alerts AlertEnqueuer
	logger *slog.Logger
}

// NewWatcher builds a Watcher. Both cache and alerts may be nil.
func NewWatcher(cache *Cache, alerts AlertEnqueuer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{cache: cache, alerts: alerts, logger: logger}
}

// StockChanged must only be called after the owning transaction committed.
func (w *Watcher) StockChanged(ctx context.Context, reference string, records []StockRecord) error {
	if w == nil || len(records) == 0 {
		return nil
	}
	if err := w.cache.Bump(ctx); err != nil {
		w.logger.Warn("inventory cache bump", slog.String("reference", reference), slog.Any("error", err))
	}
	low := CrossedLow(records)
	if len(low) == 0 || w.alerts == nil {
		return nil
	}
	return w.alerts.EnqueueLowStockAlert(ctx, reference, low)
}

// CrossedLow converts records whose adjustment took them to or below their
// threshold into alert items. Records that were already low are skipped; the
// scheduled scan keeps reporting those.
func CrossedLow(records []StockRecord) []LowStockItem {
	var low []LowStockItem
	for _, rec := range records {
		if !rec.CrossedLow() {
			continue
		}
		low = append(low, LowStockItem{
			ProductCode:  rec.ProductCode,
			Quantity:     rec.Quantity,
			ReorderLevel: rec.ReorderLevel,
		})
	}
	return low
}
