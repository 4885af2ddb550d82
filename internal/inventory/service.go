package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStock(ctx context.Context, code string) (StockRecord, error)
	ListLowStock(ctx context.Context) ([]LowStockItem, error)
	GetSummary(ctx context.Context) (Summary, error)
	ListMovements(ctx context.Context, code string, limit int) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service answers stock queries and performs manual adjustments.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	cache   *Cache
	watcher *Watcher
	logger  *slog.Logger
}

// NewService builds Service. audit, cache and watcher are optional.
func NewService(repo RepositoryPort, audit AuditPort, cache *Cache, watcher *Watcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, watcher: watcher, logger: logger}
}

// Get returns the on-hand quantity, 0 when the product has no stock record.
func (s *Service) Get(ctx context.Context, code string) (int, error) {
	rec, err := s.Stock(ctx, code)
	if err != nil {
		return 0, err
	}
	return rec.Quantity, nil
}

// Stock returns the stock record of code. A product without a record yields a
// zero record rather than an error.
func (s *Service) Stock(ctx context.Context, code string) (StockRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return StockRecord{}, ErrProductRequired
	}
	rec, err := s.repo.GetStock(ctx, code)
	if errors.Is(err, ErrStockNotFound) {
		return StockRecord{ProductCode: code}, nil
	}
	if err != nil {
		return StockRecord{}, err
	}
	return rec, nil
}

// HasSufficient reports whether quantity units of code are on hand.
func (s *Service) HasSufficient(ctx context.Context, code string, quantity int) (bool, error) {
	if quantity < 0 {
		return false, ErrInvalidQuantity
	}
	available, err := s.Get(ctx, code)
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}

// LowStockItems lists products at or below their reorder threshold.
func (s *Service) LowStockItems(ctx context.Context) ([]LowStockItem, error) {
	key, err := s.cache.BuildKey(ctx, "low_stock")
	if err != nil {
		s.logger.Warn("inventory cache key", slog.Any("error", err))
		return s.repo.ListLowStock(ctx)
	}
	var items []LowStockItem
	err = s.cache.FetchJSON(ctx, key, &items, func(ctx context.Context) (any, error) {
		return s.repo.ListLowStock(ctx)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Summary aggregates units and stock value over the catalogue.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "summary")
	if err != nil {
		s.logger.Warn("inventory cache key", slog.Any("error", err))
		return s.repo.GetSummary(ctx)
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.repo.GetSummary(ctx)
	})
	return summary, err
}

// Movements lists the latest journal entries of code.
func (s *Service) Movements(ctx context.Context, code string, limit int) ([]Movement, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrProductRequired
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListMovements(ctx, code, limit)
}

// Adjust applies a manual delta in its own transaction.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (StockRecord, error) {
	code := strings.TrimSpace(input.ProductCode)
	if code == "" {
		return StockRecord{}, ErrProductRequired
	}
	if input.Delta == 0 {
		return StockRecord{}, ErrInvalidQuantity
	}
	var rec StockRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		rec, err = NewLedger(tx).Adjust(ctx, Adjustment{
			ProductCode: code,
			Delta:       input.Delta,
			Reason:      ReasonAdjustment,
			Note:        input.Note,
		})
		return err
	})
	if err != nil {
		return StockRecord{}, err
	}
	s.afterCommit(ctx, input.Actor, rec, input.Delta, input.Note)
	return rec, nil
}

// SetLevel sets the on-hand quantity to level by journaling the difference.
func (s *Service) SetLevel(ctx context.Context, code string, level int, note, actor string) (StockRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return StockRecord{}, ErrProductRequired
	}
	if level < 0 {
		return StockRecord{}, ErrInvalidQuantity
	}
	var (
		rec   StockRecord
		delta int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ledger := NewLedger(tx)
		current, err := ledger.Get(ctx, code)
		if err != nil {
			return err
		}
		delta = level - current
		if delta == 0 {
			rec, err = tx.LockStock(ctx, code)
			return err
		}
		rec, err = ledger.Adjust(ctx, Adjustment{ProductCode: code, Delta: delta, Reason: ReasonAdjustment, Note: note})
		return err
	})
	if err != nil {
		return StockRecord{}, err
	}
	if delta != 0 {
		s.afterCommit(ctx, actor, rec, delta, note)
	}
	return rec, nil
}

func (s *Service) afterCommit(ctx context.Context, actor string, rec StockRecord, delta int, note string) {
	if err := s.watcher.StockChanged(ctx, adjustmentReference(rec), []StockRecord{rec}); err != nil {
		s.logger.Warn("inventory stock changed hook", slog.String("product", rec.ProductCode), slog.Any("error", err))
	}
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   fmt.Sprintf("inventory:%s", ReasonAdjustment),
		Entity:   "stock",
		EntityID: rec.ProductCode,
		Meta: map[string]any{
			"delta":     delta,
			"resulting": rec.Quantity,
			"note":      note,
		},
	})
	if err != nil {
		s.logger.Warn("inventory audit", slog.String("product", rec.ProductCode), slog.Any("error", err))
	}
}

func adjustmentReference(rec StockRecord) string {
	return "ADJ:" + rec.ProductCode + ":" + strconv.FormatInt(rec.LastUpdated.UnixNano(), 10)
}
