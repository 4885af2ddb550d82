package inventory

import (
	"context"
	"sort"
	"time"
)

type memoryRepo struct {
	products  map[string]Product
	stock     map[string]StockRecord
	movements []Movement
	lowCalls  int
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(products ...Product) *memoryRepo {
	repo := &memoryRepo{products: make(map[string]Product), stock: make(map[string]StockRecord)}
	for _, p := range products {
		repo.products[p.Code] = p
	}
	return repo
}

func (r *memoryRepo) seed(code string, qty int) {
	r.stock[code] = StockRecord{ProductCode: code, Quantity: qty, ReorderLevel: r.products[code].ReorderLevel}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	stock := make(map[string]StockRecord, len(r.stock))
	for k, v := range r.stock {
		stock[k] = v
	}
	moves := len(r.movements)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.stock = stock
		r.movements = r.movements[:moves]
		return err
	}
	return nil
}

func (r *memoryRepo) GetStock(ctx context.Context, code string) (StockRecord, error) {
	rec, ok := r.stock[code]
	if !ok {
		return StockRecord{}, ErrStockNotFound
	}
	return rec, nil
}

func (r *memoryRepo) ListLowStock(ctx context.Context) ([]LowStockItem, error) {
	r.lowCalls++
	var items []LowStockItem
	for code, p := range r.products {
		qty := r.stock[code].Quantity
		if qty <= p.ReorderLevel {
			items = append(items, LowStockItem{ProductCode: code, Name: p.Name, Quantity: qty, ReorderLevel: p.ReorderLevel})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductCode < items[j].ProductCode })
	return items, nil
}

func (r *memoryRepo) GetSummary(ctx context.Context) (Summary, error) {
	var s Summary
	for code, p := range r.products {
		qty := r.stock[code].Quantity
		s.Products++
		s.Units += int64(qty)
		if qty <= p.ReorderLevel {
			s.LowStock++
		}
		if qty == 0 {
			s.OutOfStock++
		}
		s.CostValue = s.CostValue.Add(p.UnitCost.Mul(decimalInt(qty)))
		s.RetailValue = s.RetailValue.Add(p.RetailPrice.Mul(decimalInt(qty)))
	}
	return s, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, code string, limit int) ([]Movement, error) {
	var out []Movement
	for i := len(r.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if r.movements[i].ProductCode == code {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

func (tx *memoryTx) LockStock(ctx context.Context, code string) (StockRecord, error) {
	p, ok := tx.repo.products[code]
	if !ok {
		return StockRecord{}, &ProductError{ProductCode: code, Err: ErrProductNotFound}
	}
	rec, ok := tx.repo.stock[code]
	if !ok {
		rec = StockRecord{ProductCode: code, ReorderLevel: p.ReorderLevel}
		tx.repo.stock[code] = rec
	}
	return rec, nil
}

func (tx *memoryTx) UpdateStock(ctx context.Context, code string, quantity int, at time.Time) error {
	rec, ok := tx.repo.stock[code]
	if !ok {
		return ErrStockNotFound
	}
	rec.Quantity = quantity
	rec.LastUpdated = at
	tx.repo.stock[code] = rec
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) error {
	tx.repo.movements = append(tx.repo.movements, m)
	return nil
}
