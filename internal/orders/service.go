package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
	"github.com/odyssey-erp/odyssey-pos/internal/sequence"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Operation names used for logging, metrics and idempotency modules.
const (
	OpCommitSale     = "commit_sale"
	OpCommitPurchase = "commit_purchase"
	OpReceive        = "receive_purchase"
	OpCancel         = "cancel_purchase"
)

// Commit outcomes reported to the CommitObserver.
const (
	OutcomeOK                = "ok"
	OutcomeValidation        = "validation"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeDuplicateKey      = "duplicate_key"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeNotFound          = "not_found"
	OutcomeDuplicateRequest  = "duplicate_request"
	OutcomeStoreFailure      = "store_failure"
)

// releaseTimeout bounds the idempotency release issued after a failed commit.
const releaseTimeout = 3 * time.Second

// ServiceConfig groups engine settings.
type ServiceConfig struct {
	SalePrefix       string
	PurchasePrefix   string
	KeyWidth         int
	KeyRetries       int
	WalkInCustomerID string
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.SalePrefix == "" {
		c.SalePrefix = "INV"
	}
	if c.PurchasePrefix == "" {
		c.PurchasePrefix = "PUR"
	}
	if c.KeyWidth <= 0 {
		c.KeyWidth = sequence.DefaultWidth
	}
	if c.KeyRetries < 0 {
		c.KeyRetries = 0
	}
	if c.WalkInCustomerID == "" {
		c.WalkInCustomerID = "C000"
	}
	return c
}

// Hooks are notified after a transaction has committed. All fields are optional.
type Hooks struct {
	Stock   StockObserver
	Metrics CommitObserver
}

// Service is the order commit engine. Every public operation runs in exactly
// one repository transaction and either fully applies or leaves no trace.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	hooks       Hooks
	cfg         ServiceConfig
	seq         sequence.Sequencer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the engine.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cfg ServiceConfig, hooks Hooks, logger *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		hooks:       hooks,
		cfg:         cfg,
		seq:         sequence.New(cfg.KeyWidth),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CommitSale validates and prices the cart, checks stock, allocates the next
// sale key and persists header, details and stock decrements atomically.
func (s *Service) CommitSale(ctx context.Context, input SaleInput) (Receipt, error) {
	start := time.Now()
	receipt, err := s.commitSale(ctx, input)
	s.observe(OpCommitSale, err, start)
	return receipt, err
}

func (s *Service) commitSale(ctx context.Context, input SaleInput) (Receipt, error) {
	lines, err := normaliseLines(input.Lines)
	if err != nil {
		return Receipt{}, err
	}
	employee := strings.TrimSpace(input.EmployeeID)
	if employee == "" {
		return Receipt{}, &ValidationError{Field: "employee_id", Reason: "is required"}
	}
	customer := strings.TrimSpace(input.CustomerID)
	if customer == "" {
		customer = s.cfg.WalkInCustomerID
	}
	totals, err := price(lines, input.Discount, input.TaxRate)
	if err != nil {
		return Receipt{}, err
	}

	release, err := s.claim(ctx, input.IdempotencyKey, OpCommitSale)
	if err != nil {
		return Receipt{}, err
	}

	var (
		header  Header
		records []inventory.StockRecord
	)
	err = s.retryOnCollision(ctx, OpCommitSale, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			codes, qty := inventory.Aggregate(lines, lineQuantity)
			if err := requireProducts(ctx, tx, codes); err != nil {
				return err
			}
			ledger := inventory.NewLedger(tx.Inventory())
			for _, code := range codes {
				if err := ledger.Require(ctx, code, qty[code]); err != nil {
					return err
				}
			}
			key, err := s.allocate(ctx, tx, s.cfg.SalePrefix)
			if err != nil {
				return err
			}
			now := s.now()
			header = Header{
				Key:            key,
				Kind:           KindSale,
				CounterpartyID: customer,
				EmployeeID:     employee,
				Gross:          totals.Subtotal,
				Discount:       totals.Discount,
				Tax:            totals.Tax,
				Net:            totals.Net,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.InsertHeader(ctx, header); err != nil {
				return err
			}
			if err := tx.InsertDetails(ctx, buildDetails(key, totals.Lines)); err != nil {
				return err
			}
			adjs := make([]inventory.Adjustment, 0, len(codes))
			for _, code := range codes {
				adjs = append(adjs, inventory.Adjustment{ProductCode: code, Delta: -qty[code], Reason: inventory.ReasonSale, Reference: key})
			}
			records, err = ledger.AdjustAll(ctx, adjs)
			return err
		})
	})
	if err != nil {
		release(ctx)
		return Receipt{}, s.classify(OpCommitSale, header.Key, err)
	}

	s.stockChanged(ctx, header.Key, records)
	s.recordAudit(ctx, employee, "orders:sale", header.Key, map[string]any{
		"customer_id": customer,
		"lines":       len(lines),
		"gross":       header.Gross.StringFixed(2),
		"discount":    header.Discount.StringFixed(2),
		"tax":         header.Tax.StringFixed(2),
		"net":         header.Net.StringFixed(2),
	})
	s.logger.Info("sale committed", slog.String("order_key", header.Key), slog.String("net", header.Net.StringFixed(2)))
	return Receipt{Key: header.Key, Kind: KindSale, Totals: totals, CreatedAt: header.CreatedAt}, nil
}

// CommitPurchase persists a Pending purchase with its details. Stock is only
// touched when the purchase is received.
func (s *Service) CommitPurchase(ctx context.Context, input PurchaseInput) (Receipt, error) {
	start := time.Now()
	receipt, err := s.commitPurchase(ctx, input)
	s.observe(OpCommitPurchase, err, start)
	return receipt, err
}

func (s *Service) commitPurchase(ctx context.Context, input PurchaseInput) (Receipt, error) {
	lines, err := normaliseLines(input.Lines)
	if err != nil {
		return Receipt{}, err
	}
	supplier := strings.TrimSpace(input.SupplierID)
	if supplier == "" {
		return Receipt{}, &ValidationError{Field: "supplier_id", Reason: "is required"}
	}
	totals, err := price(lines, pricing.Discount{}, decimal.Zero)
	if err != nil {
		return Receipt{}, err
	}

	release, err := s.claim(ctx, input.IdempotencyKey, OpCommitPurchase)
	if err != nil {
		return Receipt{}, err
	}

	var header Header
	err = s.retryOnCollision(ctx, OpCommitPurchase, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			codes, _ := inventory.Aggregate(lines, lineQuantity)
			if err := requireProducts(ctx, tx, codes); err != nil {
				return err
			}
			key, err := s.allocate(ctx, tx, s.cfg.PurchasePrefix)
			if err != nil {
				return err
			}
			now := s.now()
			header = Header{
				Key:            key,
				Kind:           KindPurchase,
				CounterpartyID: supplier,
				EmployeeID:     strings.TrimSpace(input.EmployeeID),
				Status:         StatusPending,
				Notes:          strings.TrimSpace(input.Notes),
				Gross:          totals.Subtotal,
				Discount:       totals.Discount,
				Tax:            totals.Tax,
				Net:            totals.Net,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.InsertHeader(ctx, header); err != nil {
				return err
			}
			return tx.InsertDetails(ctx, buildDetails(key, totals.Lines))
		})
	})
	if err != nil {
		release(ctx)
		return Receipt{}, s.classify(OpCommitPurchase, header.Key, err)
	}

	s.recordAudit(ctx, header.EmployeeID, "orders:purchase", header.Key, map[string]any{
		"supplier_id": supplier,
		"lines":       len(lines),
		"gross":       header.Gross.StringFixed(2),
	})
	s.logger.Info("purchase committed", slog.String("order_key", header.Key), slog.String("gross", header.Gross.StringFixed(2)))
	return Receipt{Key: header.Key, Kind: KindPurchase, Status: StatusPending, Totals: totals, CreatedAt: header.CreatedAt}, nil
}

// Preview prices a cart exactly as CommitSale would, without touching the store.
func (s *Service) Preview(lines []Line, discount pricing.Discount, taxRate decimal.Decimal) (pricing.Totals, error) {
	for i, l := range lines {
		if strings.TrimSpace(l.ProductCode) == "" {
			return pricing.Totals{}, &ValidationError{Field: fmt.Sprintf("lines[%d].product_code", i), Reason: "is required"}
		}
		if err := checkPrice(i, l); err != nil {
			return pricing.Totals{}, err
		}
	}
	return price(lines, discount, taxRate)
}

// allocate takes the sequence lock for prefix, then derives the next key
// from the highest existing one.
func (s *Service) allocate(ctx context.Context, tx TxRepository, prefix string) (string, error) {
	if err := tx.LockSequence(ctx, prefix); err != nil {
		return "", err
	}
	last, err := tx.MaxKey(ctx, prefix)
	if err != nil {
		return "", err
	}
	if last == "" {
		return s.seq.Next(prefix), nil
	}
	return s.seq.Next(prefix, last), nil
}

// retryOnCollision re-runs fn while it fails with a duplicate key or a
// serialisation conflict, up to the configured retry budget.
func (s *Service) retryOnCollision(ctx context.Context, op string, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateKey) && !db.IsRetryable(err) {
			return err
		}
		if attempt >= s.cfg.KeyRetries || ctx.Err() != nil {
			return err
		}
		s.logger.Warn("orders commit retry", slog.String("op", op), slog.Int("attempt", attempt+1), slog.Any("error", err))
		if s.hooks.Metrics != nil {
			s.hooks.Metrics.ObserveRetry(op)
		}
	}
}

// claim registers the idempotency key and returns a func that releases it.
func (s *Service) claim(ctx context.Context, key, op string) (func(context.Context), error) {
	noop := func(context.Context) {}
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil {
		return noop, nil
	}
	scoped := op + ":" + key
	if err := s.idempotency.Claim(ctx, scoped, "orders"); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return noop, err
		}
		return noop, s.classify(op, "", err)
	}
	return func(ctx context.Context) {
		// The commit may have failed because ctx was cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := s.idempotency.Release(ctx, scoped); err != nil {
			s.logger.Warn("idempotency release", slog.String("op", op), slog.String("key", scoped), slog.Any("error", err))
		}
	}, nil
}

// classify keeps typed domain errors and hides everything else behind a
// StoreFailureError after logging it.
func (s *Service) classify(op, key string, err error) error {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrDuplicateKey),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNotFound),
		errors.Is(err, shared.ErrIdempotencyConflict):
		return err
	case errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, inventory.ErrQuantityOverflow):
		return &ValidationError{Field: "lines", Reason: err.Error()}
	case db.IsOutOfRange(err):
		s.logger.Warn("orders value out of range", slog.String("op", op), slog.String("order_key", key), slog.Any("error", err))
		return &ValidationError{Field: "lines", Reason: "quantity or amount is out of range"}
	}
	s.logger.Error("orders store failure",
		slog.String("op", op),
		slog.String("order_key", key),
		slog.String("sqlstate", db.Code(err)),
		slog.String("constraint", db.Constraint(err)),
		slog.Bool("timeout", db.IsTimeout(err)),
		slog.Any("error", err),
	)
	return &StoreFailureError{Op: op, Err: err}
}

func (s *Service) observe(op string, err error, start time.Time) {
	if s.hooks.Metrics == nil {
		return
	}
	s.hooks.Metrics.ObserveCommit(op, Outcome(err), time.Since(start))
}

func (s *Service) stockChanged(ctx context.Context, key string, records []inventory.StockRecord) {
	if s.hooks.Stock == nil || len(records) == 0 {
		return
	}
	if err := s.hooks.Stock.StockChanged(ctx, key, records); err != nil {
		s.logger.Warn("orders stock hook", slog.String("order_key", key), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actor, action, key string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "order", EntityID: key, Meta: meta, At: s.now()})
	if err != nil {
		s.logger.Warn("orders audit", slog.String("order_key", key), slog.Any("error", err))
	}
}

// Outcome maps an engine error to its metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, ErrDuplicateKey):
		return OutcomeDuplicateKey
	case errors.Is(err, ErrInvalidTransition):
		return OutcomeInvalidTransition
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return OutcomeDuplicateRequest
	default:
		return OutcomeStoreFailure
	}
}

func normaliseLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "lines", Reason: "must contain at least one line"}
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		l.ProductCode = strings.TrimSpace(l.ProductCode)
		if l.ProductCode == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("lines[%d].product_code", i), Reason: "is required"}
		}
		if l.Quantity <= 0 || l.Quantity > MaxProductQuantity {
			return nil, &ValidationError{Field: fmt.Sprintf("lines[%d].quantity", i), Reason: fmt.Sprintf("must be between 1 and %d for %s", MaxProductQuantity, l.ProductCode)}
		}
		if err := checkPrice(i, l); err != nil {
			return nil, err
		}
		out[i] = l
	}
	codes, qty := inventory.Aggregate(out, lineQuantity)
	for _, code := range codes {
		if qty[code] > MaxProductQuantity {
			return nil, &ValidationError{Field: "lines", Reason: fmt.Sprintf("total quantity of %s exceeds %d", code, MaxProductQuantity)}
		}
	}
	return out, nil
}

func checkPrice(i int, l Line) error {
	err := pricing.CheckUnitPrice(l.UnitPrice)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pricing.ErrNegativePrice):
		return &ValidationError{Field: fmt.Sprintf("lines[%d].unit_price", i), Reason: fmt.Sprintf("must not be negative for %s", l.ProductCode)}
	case errors.Is(err, pricing.ErrPricePrecision):
		return &ValidationError{Field: fmt.Sprintf("lines[%d].unit_price", i), Reason: fmt.Sprintf("must have at most %d decimal places for %s", pricing.Scale, l.ProductCode)}
	default:
		return &ValidationError{Field: fmt.Sprintf("lines[%d].unit_price", i), Reason: fmt.Sprintf("must not exceed %s for %s", pricing.MaxUnitPrice.StringFixed(pricing.Scale), l.ProductCode)}
	}
}

func price(lines []Line, discount pricing.Discount, taxRate decimal.Decimal) (pricing.Totals, error) {
	totals, err := pricing.Calculate(pricingLines(lines), discount, taxRate)
	if err != nil {
		return pricing.Totals{}, &ValidationError{Reason: err.Error()}
	}
	return totals, nil
}

func requireProducts(ctx context.Context, tx TxRepository, codes []string) error {
	missing, err := tx.MissingProducts(ctx, codes)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &ValidationError{Field: "lines", Reason: "unknown product " + strings.Join(missing, ", ")}
	}
	return nil
}

func lineQuantity(l Line) (string, int) {
	return l.ProductCode, l.Quantity
}
