package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TxRepository exposes the stock operations available inside a transaction.
type TxRepository interface {
	// LockStock returns the record for code and holds a row lock on it until
	// the transaction ends. A missing record is created with quantity zero.
	LockStock(ctx context.Context, code string) (StockRecord, error)
	UpdateStock(ctx context.Context, code string, quantity int, at time.Time) error
	InsertMovement(ctx context.Context, m Movement) error
}

// Ledger applies stock reads and deltas on the caller's transaction. It never
// begins or commits a transaction itself.
type Ledger struct {
	tx  TxRepository
	now func() time.Time
}

// NewLedger binds a Ledger to tx.
func NewLedger(tx TxRepository) *Ledger {
	return &Ledger{tx: tx, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the locked on-hand quantity for code.
func (l *Ledger) Get(ctx context.Context, code string) (int, error) {
	rec, err := l.tx.LockStock(ctx, code)
	if err != nil {
		return 0, err
	}
	return rec.Quantity, nil
}

// HasSufficient reports whether at least quantity units are on hand.
func (l *Ledger) HasSufficient(ctx context.Context, code string, quantity int) (bool, error) {
	available, err := l.Get(ctx, code)
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}

// Require fails with *InsufficientStockError when fewer than quantity units are on hand.
func (l *Ledger) Require(ctx context.Context, code string, quantity int) error {
	available, err := l.Get(ctx, code)
	if err != nil {
		return err
	}
	if available < quantity {
		return &InsufficientStockError{ProductCode: code, Available: available, Requested: quantity}
	}
	return nil
}

// Adjust applies adj.Delta and journals the movement. A result below zero or
// above MaxQuantity is rejected before anything is written.
func (l *Ledger) Adjust(ctx context.Context, adj Adjustment) (StockRecord, error) {
	if adj.ProductCode == "" {
		return StockRecord{}, ErrProductRequired
	}
	if adj.Delta == 0 {
		return StockRecord{}, ErrInvalidQuantity
	}
	rec, err := l.tx.LockStock(ctx, adj.ProductCode)
	if err != nil {
		return StockRecord{}, err
	}
	if adj.Delta > MaxQuantity-rec.Quantity {
		return StockRecord{}, &ProductError{ProductCode: adj.ProductCode, Err: ErrQuantityOverflow}
	}
	next := rec.Quantity + adj.Delta
	if next < 0 {
		return StockRecord{}, &InsufficientStockError{ProductCode: adj.ProductCode, Available: rec.Quantity, Requested: -adj.Delta}
	}
	now := l.now()
	if err := l.tx.UpdateStock(ctx, adj.ProductCode, next, now); err != nil {
		return StockRecord{}, err
	}
	reason := adj.Reason
	if reason == "" {
		reason = ReasonAdjustment
	}
	err = l.tx.InsertMovement(ctx, Movement{
		ID:          uuid.New(),
		ProductCode: adj.ProductCode,
		Delta:       adj.Delta,
		Resulting:   next,
		Reason:      reason,
		Reference:   adj.Reference,
		Note:        adj.Note,
		At:          now,
	})
	if err != nil {
		return StockRecord{}, err
	}
	rec.Previous = rec.Quantity
	rec.Quantity = next
	rec.LastUpdated = now
	return rec, nil
}

// AdjustAll applies the adjustments in product code order so that concurrent
// callers acquire row locks in the same sequence.
func (l *Ledger) AdjustAll(ctx context.Context, adjs []Adjustment) ([]StockRecord, error) {
	ordered := make([]Adjustment, len(adjs))
	copy(ordered, adjs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ProductCode < ordered[j].ProductCode })

	out := make([]StockRecord, 0, len(ordered))
	for _, adj := range ordered {
		rec, err := l.Adjust(ctx, adj)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Aggregate sums quantities per product code and returns the codes sorted.
func Aggregate[T any](items []T, key func(T) (string, int)) ([]string, map[string]int) {
	totals := make(map[string]int, len(items))
	for _, item := range items {
		code, qty := key(item)
		totals[code] += qty
	}
	codes := make([]string, 0, len(totals))
	for code := range totals {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, totals
}
