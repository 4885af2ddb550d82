package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q   pgx.Tx
	inv inventory.TxRepository
}

// WithTx runs fn in one read committed transaction. The inventory repository
// handed out by the TxRepository shares that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, db.CommitOptions, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx, inv: inventory.NewTxRepository(tx)})
	})
}

const headerColumns = `order_key, kind, counterparty_id, employee_id, status, notes,
	gross_amount, discount_amount, tax_amount, net_amount, created_at, updated_at`

const maxKeyQuery = `SELECT order_key FROM orders
WHERE left(order_key, length($1)) = $1
	AND substring(order_key FROM length($1) + 1) ~ '^[0-9]+$'
ORDER BY CAST(substring(order_key FROM length($1) + 1) AS NUMERIC) DESC
LIMIT 1`

// GetOrder loads a header and its details.
func (r *Repository) GetOrder(ctx context.Context, key string) (Order, error) {
	header, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+` FROM orders WHERE order_key = $1`, key))
	if err != nil {
		return Order{}, err
	}
	details, err := listDetails(ctx, r.pool, key)
	if err != nil {
		return Order{}, err
	}
	return Order{Header: header, Details: details}, nil
}

// ListOrders returns headers matching filter, newest first.
func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]Header, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.CounterpartyID != "" {
		add("counterparty_id = $%d", filter.CounterpartyID)
	}
	if filter.EmployeeID != "" {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at < $%d", filter.To)
	}
	page := shared.NewPage(filter.Limit, filter.Offset)
	query := `SELECT ` + headerColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, order_key DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Header
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// MaxKey reads the highest existing key for prefix without locking.
func (r *Repository) MaxKey(ctx context.Context, prefix string) (string, error) {
	return maxKey(ctx, r.pool, prefix)
}

func (r *txRepo) Inventory() inventory.TxRepository {
	return r.inv
}

func (r *txRepo) LockSequence(ctx context.Context, prefix string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, shared.SequenceLockKey(prefix))
	if err != nil {
		return fmt.Errorf("orders: lock sequence %s: %w", prefix, err)
	}
	return nil
}

func (r *txRepo) MaxKey(ctx context.Context, prefix string) (string, error) {
	return maxKey(ctx, r.q, prefix)
}

func (r *txRepo) MissingProducts(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT c FROM unnest($1::text[]) AS c
WHERE NOT EXISTS (SELECT 1 FROM products p WHERE p.code = c)
ORDER BY c`, codes)
	if err != nil {
		return nil, fmt.Errorf("orders: check products: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *txRepo) InsertHeader(ctx context.Context, h Header) error {
	_, err := r.q.Exec(ctx, `INSERT INTO orders (`+headerColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		h.Key, string(h.Kind), h.CounterpartyID, nullable(h.EmployeeID), nullable(string(h.Status)), nullable(h.Notes),
		h.Gross, h.Discount, h.Tax, h.Net, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return &DuplicateKeyError{Key: h.Key}
		}
		return fmt.Errorf("orders: insert header %s: %w", h.Key, err)
	}
	return nil
}

func (r *txRepo) InsertDetails(ctx context.Context, details []Detail) error {
	if len(details) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range details {
		batch.Queue(`INSERT INTO order_details (order_key, line_no, product_code, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5, $6)`, d.OrderKey, d.LineNo, d.ProductCode, d.Quantity, d.UnitPrice, d.LineTotal)
	}
	results := r.q.SendBatch(ctx, batch)
	for _, d := range details {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			switch {
			case db.IsForeignKeyViolation(err):
				return &inventory.ProductError{ProductCode: d.ProductCode, Err: inventory.ErrProductNotFound}
			case db.IsUniqueViolation(err):
				return &DuplicateKeyError{Key: d.OrderKey}
			}
			return fmt.Errorf("orders: insert detail %s/%d: %w", d.OrderKey, d.LineNo, err)
		}
	}
	return results.Close()
}

func (r *txRepo) GetHeaderForUpdate(ctx context.Context, key string) (Header, error) {
	return scanHeader(r.q.QueryRow(ctx, `SELECT `+headerColumns+` FROM orders WHERE order_key = $1 FOR UPDATE`, key))
}

func (r *txRepo) ListDetails(ctx context.Context, key string) ([]Detail, error) {
	return listDetails(ctx, r.q, key)
}

func (r *txRepo) UpdateStatus(ctx context.Context, key string, status Status, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE order_key = $1`, key, string(status), at)
	if err != nil {
		return fmt.Errorf("orders: update status %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) DeleteOrder(ctx context.Context, key string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM order_details WHERE order_key = $1`, key); err != nil {
		return fmt.Errorf("orders: delete details %s: %w", key, err)
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM orders WHERE order_key = $1`, key)
	if err != nil {
		return fmt.Errorf("orders: delete header %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func maxKey(ctx context.Context, q db.DBTX, prefix string) (string, error) {
	var key string
	err := q.QueryRow(ctx, maxKeyQuery, prefix).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("orders: max key %s: %w", prefix, err)
	}
	return key, nil
}

func listDetails(ctx context.Context, q db.DBTX, key string) ([]Detail, error) {
	rows, err := q.Query(ctx, `SELECT order_key, line_no, product_code, quantity, unit_price, line_total
FROM order_details WHERE order_key = $1 ORDER BY line_no`, key)
	if err != nil {
		return nil, fmt.Errorf("orders: list details %s: %w", key, err)
	}
	defer rows.Close()
	var out []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.OrderKey, &d.LineNo, &d.ProductCode, &d.Quantity, &d.UnitPrice, &d.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanHeader(row pgx.Row) (Header, error) {
	var (
		h                       Header
		kind                    string
		employee, status, notes *string
	)
	err := row.Scan(&h.Key, &kind, &h.CounterpartyID, &employee, &status, &notes,
		&h.Gross, &h.Discount, &h.Tax, &h.Net, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Header{}, ErrNotFound
	}
	if err != nil {
		return Header{}, err
	}
	h.Kind = Kind(kind)
	h.EmployeeID = deref(employee)
	h.Status = Status(deref(status))
	h.Notes = deref(notes)
	return h, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
