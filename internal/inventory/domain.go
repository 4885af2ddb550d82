package inventory

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Reason labels the origin of a stock movement.
type Reason string

const (
	// ReasonSale is recorded when a committed sale decrements stock.
	ReasonSale Reason = "SALE"
	// ReasonPurchaseReceipt is recorded when a received purchase increments stock.
	ReasonPurchaseReceipt Reason = "PURCHASE_RECEIPT"
	// ReasonAdjustment is a manual correction.
	ReasonAdjustment Reason = "ADJUSTMENT"
)

// Product is the catalogue entry a stock record belongs to.
type Product struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	RetailPrice  decimal.Decimal `json:"retail_price"`
	ReorderLevel int             `json:"reorder_level"`
}

// StockRecord is the on-hand quantity of one product. Previous holds the
// quantity before the ledger adjustment that produced the record.
type StockRecord struct {
	ProductCode  string    `json:"product_code"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	LastUpdated  time.Time `json:"last_updated"`
	Previous     int       `json:"-"`
}

// IsLow reports whether the record is at or below its reorder threshold.
func (r StockRecord) IsLow() bool {
	return r.Quantity <= r.ReorderLevel
}

// CrossedLow reports whether the last adjustment took the record from above
// its reorder threshold to at or below it.
func (r StockRecord) CrossedLow() bool {
	return r.IsLow() && r.Previous > r.ReorderLevel
}

// Movement journals one applied delta.
type Movement struct {
	ID          uuid.UUID `json:"id"`
	ProductCode string    `json:"product_code"`
	Delta       int       `json:"delta"`
	Resulting   int       `json:"resulting"`
	Reason      Reason    `json:"reason"`
	Reference   string    `json:"reference,omitempty"`
	Note        string    `json:"note,omitempty"`
	At          time.Time `json:"at"`
}

// Adjustment requests a delta on one product.
type Adjustment struct {
	ProductCode string
	Delta       int
	Reason      Reason
	Reference   string
	Note        string
}

// LowStockItem is a product at or below its reorder threshold.
type LowStockItem struct {
	ProductCode  string `json:"product_code"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorder_level"`
}

// Summary aggregates stock across the catalogue.
type Summary struct {
	Products    int             `json:"products"`
	Units       int64           `json:"units"`
	LowStock    int             `json:"low_stock"`
	OutOfStock  int             `json:"out_of_stock"`
	CostValue   decimal.Decimal `json:"cost_value"`
	RetailValue decimal.Decimal `json:"retail_value"`
}

// AdjustInput describes a manual adjustment.
type AdjustInput struct {
	ProductCode string `json:"product_code"`
	Delta       int    `json:"delta"`
	Note        string `json:"note"`
	Actor       string `json:"-"`
}

// MaxQuantity is the largest on-hand quantity a stock row can hold.
const MaxQuantity = math.MaxInt32

var (
	// ErrInsufficientStock is matched by *InsufficientStockError.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a zero delta or a negative quantity.
	ErrInvalidQuantity = fmt.Errorf("inventory: %w: quantity must be non zero", httpx.ErrValidation)
	// ErrProductRequired indicates an empty product code.
	ErrProductRequired = fmt.Errorf("inventory: %w: product code required", httpx.ErrValidation)
	// ErrQuantityOverflow indicates a delta that would push stock past MaxQuantity.
	ErrQuantityOverflow = fmt.Errorf("inventory: %w: quantity would exceed %d", httpx.ErrValidation, MaxQuantity)
	// ErrProductNotFound indicates a code missing from the catalogue.
	ErrProductNotFound = fmt.Errorf("inventory: product %w", httpx.ErrNotFound)
	// ErrStockNotFound indicates that a product has no stock record yet.
	ErrStockNotFound = fmt.Errorf("inventory: stock record %w", httpx.ErrNotFound)
)

// InsufficientStockError reports a shortfall for one product.
type InsufficientStockError struct {
	ProductCode string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductCode, e.Available, e.Requested)
}

// Is lets errors.Is match ErrInsufficientStock and httpx.ErrConflict.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == httpx.ErrConflict
}

// ProductError ties a catalogue error to a product code.
type ProductError struct {
	ProductCode string
	Err         error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.ProductCode)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}
