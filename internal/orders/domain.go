package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
)

// Kind distinguishes sales from purchases sharing the orders table.
type Kind string

const (
	// KindSale is a till checkout.
	KindSale Kind = "SALE"
	// KindPurchase is a supplier order.
	KindPurchase Kind = "PURCHASE"
)

// Status tracks a purchase through its lifecycle. Sales carry no status.
type Status string

const (
	// StatusPending marks a purchase awaiting receipt.
	StatusPending Status = "Pending"
	// StatusReceived marks a purchase whose stock was booked.
	StatusReceived Status = "Received"
	// StatusCancelled marks a purchase that was withdrawn. Cancelled purchases are deleted.
	StatusCancelled Status = "Cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// MaxProductQuantity caps the units of one product in a single order.
const MaxProductQuantity = 1_000_000

// Line is a requested order line.
type Line struct {
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Header is the persisted top-level record of an order.
type Header struct {
	Key            string          `json:"order_key"`
	Kind           Kind            `json:"kind"`
	CounterpartyID string          `json:"counterparty_id"`
	EmployeeID     string          `json:"employee_id,omitempty"`
	Status         Status          `json:"status,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Gross          decimal.Decimal `json:"gross_amount"`
	Discount       decimal.Decimal `json:"discount_amount"`
	Tax            decimal.Decimal `json:"tax_amount"`
	Net            decimal.Decimal `json:"net_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Detail is one persisted order line.
type Detail struct {
	OrderKey    string          `json:"order_key"`
	LineNo      int             `json:"line_no"`
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Order is a header with its details.
type Order struct {
	Header
	Details []Detail `json:"details"`
}

// SaleInput carries a checkout request.
type SaleInput struct {
	CustomerID     string
	EmployeeID     string
	Discount       pricing.Discount
	TaxRate        decimal.Decimal
	Lines          []Line
	IdempotencyKey string
}

// PurchaseInput carries a supplier order request.
type PurchaseInput struct {
	SupplierID     string
	EmployeeID     string
	Notes          string
	Lines          []Line
	IdempotencyKey string
}

// Receipt is returned by a successful commit.
type Receipt struct {
	Key       string         `json:"order_key"`
	Kind      Kind           `json:"kind"`
	Status    Status         `json:"status,omitempty"`
	Totals    pricing.Totals `json:"totals"`
	CreatedAt time.Time      `json:"created_at"`
}

// ListFilter narrows order listings. Zero fields do not filter. From is
// inclusive and To exclusive, both compared with created_at.
type ListFilter struct {
	Kind           Kind
	Status         Status
	CounterpartyID string
	EmployeeID     string
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}

// Matches reports whether h passes every set field of f. Paging is ignored.
func (f ListFilter) Matches(h Header) bool {
	switch {
	case f.Kind != "" && h.Kind != f.Kind,
		f.Status != "" && h.Status != f.Status,
		f.CounterpartyID != "" && h.CounterpartyID != f.CounterpartyID,
		f.EmployeeID != "" && h.EmployeeID != f.EmployeeID,
		!f.From.IsZero() && h.CreatedAt.Before(f.From),
		!f.To.IsZero() && !h.CreatedAt.Before(f.To):
		return false
	}
	return true
}

func pricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = pricing.Line{ProductCode: l.ProductCode, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return out
}

func buildDetails(key string, priced []pricing.PricedLine) []Detail {
	details := make([]Detail, len(priced))
	for i, l := range priced {
		details[i] = Detail{
			OrderKey:    key,
			LineNo:      i + 1,
			ProductCode: l.ProductCode,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		}
	}
	return details
}
