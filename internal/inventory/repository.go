package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q db.DBTX
}

// NewTxRepository binds the transactional stock queries to q, which is
// normally a pgx.Tx owned by the caller.
func NewTxRepository(q db.DBTX) TxRepository {
	return &txRepo{q: q}
}

// WithTx executes the callback inside a read committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, db.CommitOptions, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const selectStock = `SELECT s.product_code, s.quantity, p.reorder_level, s.last_updated
FROM stock s
JOIN products p ON p.code = s.product_code
WHERE s.product_code = $1`

// GetStock reads a stock record without locking.
func (r *Repository) GetStock(ctx context.Context, code string) (StockRecord, error) {
	rec, err := scanStock(r.pool.QueryRow(ctx, selectStock, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return StockRecord{}, ErrStockNotFound
	}
	return rec, err
}

// ListLowStock lists products whose quantity is at or below the reorder level.
// Products that never had stock count as zero.
func (r *Repository) ListLowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.code, p.name, COALESCE(s.quantity, 0) AS qty, p.reorder_level
FROM products p
LEFT JOIN stock s ON s.product_code = p.code
WHERE COALESCE(s.quantity, 0) <= p.reorder_level
ORDER BY qty ASC, p.code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LowStockItem
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductCode, &item.Name, &item.Quantity, &item.ReorderLevel); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetSummary aggregates quantity and value over the catalogue.
func (r *Repository) GetSummary(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
	COUNT(*),
	COALESCE(SUM(t.qty), 0),
	COUNT(*) FILTER (WHERE t.qty <= t.reorder_level),
	COUNT(*) FILTER (WHERE t.qty = 0),
	COALESCE(SUM(t.qty * t.unit_cost), 0),
	COALESCE(SUM(t.qty * t.retail_price), 0)
FROM (
	SELECT p.reorder_level, p.unit_cost, p.retail_price, COALESCE(s.quantity, 0) AS qty
	FROM products p
	LEFT JOIN stock s ON s.product_code = p.code
) t`).Scan(&s.Products, &s.Units, &s.LowStock, &s.OutOfStock, &s.CostValue, &s.RetailValue)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

// ListMovements returns the newest journal entries for code.
func (r *Repository) ListMovements(ctx context.Context, code string, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_code, delta, resulting, reason, reference, note, created_at
FROM stock_movements
WHERE product_code = $1
ORDER BY created_at DESC
LIMIT $2`, code, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		var reason string
		if err := rows.Scan(&m.ID, &m.ProductCode, &m.Delta, &m.Resulting, &reason, &m.Reference, &m.Note, &m.At); err != nil {
			return nil, err
		}
		m.Reason = Reason(reason)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *txRepo) LockStock(ctx context.Context, code string) (StockRecord, error) {
	_, err := r.q.Exec(ctx, `INSERT INTO stock (product_code, quantity, last_updated)
VALUES ($1, 0, NOW())
ON CONFLICT (product_code) DO NOTHING`, code)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return StockRecord{}, &ProductError{ProductCode: code, Err: ErrProductNotFound}
		}
		return StockRecord{}, fmt.Errorf("inventory: ensure stock %s: %w", code, err)
	}
	rec, err := scanStock(r.q.QueryRow(ctx, selectStock+" FOR UPDATE OF s", code))
	if err != nil {
		return StockRecord{}, fmt.Errorf("inventory: lock stock %s: %w", code, err)
	}
	return rec, nil
}

func (r *txRepo) UpdateStock(ctx context.Context, code string, quantity int, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE stock SET quantity = $2, last_updated = $3 WHERE product_code = $1`, code, quantity, at)
	if err != nil {
		return fmt.Errorf("inventory: update stock %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStockNotFound
	}
	return nil
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) error {
	_, err := r.q.Exec(ctx, `INSERT INTO stock_movements (id, product_code, delta, resulting, reason, reference, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ProductCode, m.Delta, m.Resulting, string(m.Reason), m.Reference, m.Note, m.At)
	if err != nil {
		return fmt.Errorf("inventory: insert movement %s: %w", m.ProductCode, err)
	}
	return nil
}

func scanStock(row pgx.Row) (StockRecord, error) {
	var rec StockRecord
	if err := row.Scan(&rec.ProductCode, &rec.Quantity, &rec.ReorderLevel, &rec.LastUpdated); err != nil {
		return StockRecord{}, err
	}
	return rec, nil
}
