package orders

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// IdempotencyHeader carries the client generated request id.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for sales, purchases and pricing.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountSales registers sale routes.
func (h *Handler) MountSales(r chi.Router) {
	r.Post("/", h.handleCommitSale)
	r.Get("/", h.handleListSales)
	r.Get("/next-key", h.handleNextKey(KindSale))
	r.Get("/{key}", h.handleShow(KindSale))
}

// MountPurchases registers purchase routes.
func (h *Handler) MountPurchases(r chi.Router) {
	r.Post("/", h.handleCommitPurchase)
	r.Get("/", h.handleListPurchases)
	r.Get("/next-key", h.handleNextKey(KindPurchase))
	r.Route("/{key}", func(r chi.Router) {
		r.Get("/", h.handleShow(KindPurchase))
		r.Post("/receive", h.handleReceive)
		r.Post("/cancel", h.handleCancel)
	})
}

// MountPricing registers the cart preview route.
func (h *Handler) MountPricing(r chi.Router) {
	r.Post("/preview", h.handlePreview)
}

type lineRequest struct {
	ProductCode string          `json:"product_code" validate:"required,max=32"`
	Quantity    int             `json:"quantity" validate:"gt=0,max=1000000"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type discountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

type saleRequest struct {
	CustomerID string           `json:"customer_id" validate:"omitempty,max=32"`
	Discount   *discountRequest `json:"discount"`
	TaxRate    decimal.Decimal  `json:"tax_rate"`
	Lines      []lineRequest    `json:"lines" validate:"required,min=1,dive"`
}

type purchaseRequest struct {
	SupplierID string        `json:"supplier_id" validate:"required,max=32"`
	Notes      string        `json:"notes" validate:"max=255"`
	Lines      []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type previewRequest struct {
	Discount *discountRequest `json:"discount"`
	TaxRate  decimal.Decimal  `json:"tax_rate"`
	Lines    []lineRequest    `json:"lines" validate:"dive"`
}

func (h *Handler) handleCommitSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !h.decode(w, r, &req) {
		return
	}
	idem, ok := idempotencyKey(w, r)
	if !ok {
		return
	}
	receipt, err := h.service.CommitSale(r.Context(), SaleInput{
		CustomerID:     req.CustomerID,
		EmployeeID:     shared.ActorFromContext(r.Context()),
		Discount:       req.Discount.toDiscount(),
		TaxRate:        req.TaxRate,
		Lines:          toLines(req.Lines),
		IdempotencyKey: idem,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Location", "/api/sales/"+receipt.Key)
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleCommitPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	idem, ok := idempotencyKey(w, r)
	if !ok {
		return
	}
	receipt, err := h.service.CommitPurchase(r.Context(), PurchaseInput{
		SupplierID:     req.SupplierID,
		EmployeeID:     shared.ActorFromContext(r.Context()),
		Notes:          req.Notes,
		Lines:          toLines(req.Lines),
		IdempotencyKey: idem,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Location", "/api/purchases/"+receipt.Key)
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.ReceivePurchase(r.Context(), chi.URLParam(r, "key"), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelPurchase(r.Context(), chi.URLParam(r, "key"), shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleShow(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "key"))
		if err == nil && order.Kind != kind {
			err = ErrNotFound
		}
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, order)
	}
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilterFromQuery(w, r, "customer_id")
	if !ok {
		return
	}
	headers, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": nonNil(headers)})
}

func (h *Handler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilterFromQuery(w, r, "supplier_id")
	if !ok {
		return
	}
	filter.Status = Status(r.URL.Query().Get("status"))
	headers, err := h.service.ListPurchases(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": nonNil(headers)})
}

func (h *Handler) handleNextKey(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := h.service.NextKey(r.Context(), kind)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"next_key": key})
	}
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !h.decode(w, r, &req) {
		return
	}
	totals, err := h.service.Preview(toLines(req.Lines), req.Discount.toDiscount(), req.TaxRate)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.FieldProblem(w, httpx.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var (
		invalid *ValidationError
		short   *InsufficientStockError
	)
	switch {
	case errors.As(err, &invalid) && invalid.Field != "":
		httpx.FieldProblem(w, map[string]string{invalid.Field: invalid.Reason})
	case errors.As(err, &short):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", short.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this request was already submitted")
	default:
		if !httpx.IsKnown(err) {
			h.logger.Error("orders request failed", slog.Any("error", err))
			err = fmt.Errorf("%w: %w", httpx.ErrUnavailable, err)
		}
		httpx.RespondError(w, err)
	}
}

func (d *discountRequest) toDiscount() pricing.Discount {
	if d == nil {
		return pricing.Discount{}
	}
	return pricing.Discount{Amount: d.Amount, Rate: d.Rate}
}

func toLines(in []lineRequest) []Line {
	out := make([]Line, len(in))
	for i, l := range in {
		out[i] = Line{ProductCode: strings.TrimSpace(l.ProductCode), Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return out
}

// idempotencyKey reads the optional header. A present value must be a UUID.
func idempotencyKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if raw == "" {
		return "", true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.FieldProblem(w, map[string]string{IdempotencyHeader: "must be a UUID"})
		return "", false
	}
	return id.String(), true
}

// listFilterFromQuery reads paging, counterparty, employee_id and the
// from/to window. Dates without a time cover the whole day, so to=2026-03-14
// includes orders created on the 14th.
func listFilterFromQuery(w http.ResponseWriter, r *http.Request, counterpartyParam string) (ListFilter, bool) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	filter := ListFilter{
		CounterpartyID: q.Get(counterpartyParam),
		EmployeeID:     q.Get("employee_id"),
		Limit:          limit,
		Offset:         offset,
	}
	fields := map[string]string{}
	var err error
	if filter.From, err = parseBound(q.Get("from"), false); err != nil {
		fields["from"] = err.Error()
	}
	if filter.To, err = parseBound(q.Get("to"), true); err != nil {
		fields["to"] = err.Error()
	}
	if len(fields) > 0 {
		httpx.FieldProblem(w, fields)
		return ListFilter{}, false
	}
	return filter, true
}

func parseBound(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.New("must be a date (2006-01-02) or an RFC3339 timestamp")
	}
	if upper {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}

func nonNil(headers []Header) []Header {
	if headers == nil {
		return []Header{}
	}
	return headers
}
