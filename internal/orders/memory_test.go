package orders

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/sequence"
)

// memoryStore serialises transactions with a mutex and restores a snapshot
// when the callback fails, which is enough to exercise commit atomicity.
type memoryStore struct {
	mu        sync.Mutex
	products  map[string]int // code -> reorder level
	stock     map[string]int
	headers   map[string]Header
	details   map[string][]Detail
	movements []inventory.Movement
	txCount   int

	// hooks for failure injection
	beforeInsertHeader func(h Header) error
	beforeInsertDetail func(d Detail) error
	beforeUpdateStock  func(code string, quantity int) error
	beforeUpdateStatus func(key string, status Status) error
}

func newMemoryStore(codes ...string) *memoryStore {
	s := &memoryStore{
		products: make(map[string]int),
		stock:    make(map[string]int),
		headers:  make(map[string]Header),
		details:  make(map[string][]Detail),
	}
	for _, c := range codes {
		s.products[c] = 0
	}
	return s
}

func (s *memoryStore) seed(code string, qty int) {
	if _, ok := s.products[code]; !ok {
		s.products[code] = 0
	}
	s.stock[code] = qty
}

type memorySnapshot struct {
	stock     map[string]int
	headers   map[string]Header
	details   map[string][]Detail
	movements int
}

func (s *memoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		stock:     make(map[string]int, len(s.stock)),
		headers:   make(map[string]Header, len(s.headers)),
		details:   make(map[string][]Detail, len(s.details)),
		movements: len(s.movements),
	}
	for k, v := range s.stock {
		snap.stock[k] = v
	}
	for k, v := range s.headers {
		snap.headers[k] = v
	}
	for k, v := range s.details {
		snap.details[k] = append([]Detail(nil), v...)
	}
	return snap
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.stock = snap.stock
	s.headers = snap.headers
	s.details = snap.details
	s.movements = s.movements[:snap.movements]
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	snap := s.snapshot()
	if err := fn(ctx, &memoryTx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memoryStore) GetOrder(ctx context.Context, key string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.headers[key]
	if !ok {
		return Order{}, ErrNotFound
	}
	return Order{Header: h, Details: append([]Detail(nil), s.details[key]...)}, nil
}

func (s *memoryStore) ListOrders(ctx context.Context, filter ListFilter) ([]Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Header
	for _, h := range s.headers {
		if filter.Matches(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memoryStore) MaxKey(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxKey(prefix), nil
}

func (s *memoryStore) maxKey(prefix string) string {
	best, bestN := "", -1
	for key := range s.headers {
		if n, ok := sequence.Parse(prefix, key); ok && n > bestN {
			best, bestN = key, n
		}
	}
	return best
}

type memoryTx struct {
	store *memoryStore
}

func (tx *memoryTx) LockSequence(ctx context.Context, prefix string) error { return nil }

func (tx *memoryTx) MaxKey(ctx context.Context, prefix string) (string, error) {
	return tx.store.maxKey(prefix), nil
}

func (tx *memoryTx) MissingProducts(ctx context.Context, codes []string) ([]string, error) {
	var missing []string
	for _, c := range codes {
		if _, ok := tx.store.products[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

func (tx *memoryTx) InsertHeader(ctx context.Context, h Header) error {
	if tx.store.beforeInsertHeader != nil {
		if err := tx.store.beforeInsertHeader(h); err != nil {
			return err
		}
	}
	if _, ok := tx.store.headers[h.Key]; ok {
		return &DuplicateKeyError{Key: h.Key}
	}
	tx.store.headers[h.Key] = h
	return nil
}

func (tx *memoryTx) InsertDetails(ctx context.Context, details []Detail) error {
	for _, d := range details {
		if tx.store.beforeInsertDetail != nil {
			if err := tx.store.beforeInsertDetail(d); err != nil {
				return err
			}
		}
		tx.store.details[d.OrderKey] = append(tx.store.details[d.OrderKey], d)
	}
	return nil
}

func (tx *memoryTx) GetHeaderForUpdate(ctx context.Context, key string) (Header, error) {
	h, ok := tx.store.headers[key]
	if !ok {
		return Header{}, ErrNotFound
	}
	return h, nil
}

func (tx *memoryTx) ListDetails(ctx context.Context, key string) ([]Detail, error) {
	return append([]Detail(nil), tx.store.details[key]...), nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, key string, status Status, at time.Time) error {
	if tx.store.beforeUpdateStatus != nil {
		if err := tx.store.beforeUpdateStatus(key, status); err != nil {
			return err
		}
	}
	h, ok := tx.store.headers[key]
	if !ok {
		return ErrNotFound
	}
	h.Status = status
	h.UpdatedAt = at
	tx.store.headers[key] = h
	return nil
}

func (tx *memoryTx) DeleteOrder(ctx context.Context, key string) error {
	if _, ok := tx.store.headers[key]; !ok {
		return ErrNotFound
	}
	delete(tx.store.headers, key)
	delete(tx.store.details, key)
	return nil
}

func (tx *memoryTx) Inventory() inventory.TxRepository {
	return &memoryStockTx{store: tx.store}
}

type memoryStockTx struct {
	store *memoryStore
}

func (tx *memoryStockTx) LockStock(ctx context.Context, code string) (inventory.StockRecord, error) {
	level, ok := tx.store.products[code]
	if !ok {
		return inventory.StockRecord{}, &inventory.ProductError{ProductCode: code, Err: inventory.ErrProductNotFound}
	}
	qty, ok := tx.store.stock[code]
	if !ok {
		tx.store.stock[code] = 0
	}
	return inventory.StockRecord{ProductCode: code, Quantity: qty, ReorderLevel: level}, nil
}

func (tx *memoryStockTx) UpdateStock(ctx context.Context, code string, quantity int, at time.Time) error {
	if strings.TrimSpace(code) == "" {
		return inventory.ErrStockNotFound
	}
	if tx.store.beforeUpdateStock != nil {
		if err := tx.store.beforeUpdateStock(code, quantity); err != nil {
			return err
		}
	}
	tx.store.stock[code] = quantity
	return nil
}

func (tx *memoryStockTx) InsertMovement(ctx context.Context, m inventory.Movement) error {
	tx.store.movements = append(tx.store.movements, m)
	return nil
}
