package orders

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

//go:generate mockgen -destination=ports_mock.go -package=orders github.com/odyssey-erp/odyssey-pos/internal/orders AuditPort,IdempotencyPort,StockObserver

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, key string) (Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Header, error)
	MaxKey(ctx context.Context, prefix string) (string, error)
}

// TxRepository exposes the statements run inside one commit.
type TxRepository interface {
	// LockSequence serialises key allocation for prefix until the transaction ends.
	LockSequence(ctx context.Context, prefix string) error
	// MaxKey returns the highest key of shape prefix<digits>, or "" when none exists.
	MaxKey(ctx context.Context, prefix string) (string, error)
	MissingProducts(ctx context.Context, codes []string) ([]string, error)
	InsertHeader(ctx context.Context, header Header) error
	InsertDetails(ctx context.Context, details []Detail) error
	GetHeaderForUpdate(ctx context.Context, key string) (Header, error)
	ListDetails(ctx context.Context, key string) ([]Detail, error)
	UpdateStatus(ctx context.Context, key string, status Status, at time.Time) error
	DeleteOrder(ctx context.Context, key string) error
	// Inventory returns the stock ledger repository bound to the same transaction.
	Inventory() inventory.TxRepository
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against double-submitted commits.
type IdempotencyPort interface {
	Claim(ctx context.Context, key, module string) error
	Release(ctx context.Context, key string) error
}

// StockObserver is told about stock records changed by a committed operation.
type StockObserver interface {
	StockChanged(ctx context.Context, reference string, records []inventory.StockRecord) error
}

// CommitObserver records the outcome of every engine operation.
type CommitObserver interface {
	ObserveCommit(op, outcome string, elapsed time.Duration)
	ObserveRetry(op string)
}
