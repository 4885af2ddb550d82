package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/low", h.handleLowStock)
	r.Get("/summary", h.handleSummary)
	r.Route("/{code}", func(r chi.Router) {
		r.Get("/", h.handleShow)
		r.Get("/sufficient", h.handleSufficient)
		r.Get("/movements", h.handleMovements)
		r.Post("/adjust", h.handleAdjust)
		r.Put("/level", h.handleSetLevel)
	})
}

type adjustRequest struct {
	Delta int    `json:"delta" validate:"ne=0"`
	Note  string `json:"note" validate:"max=255"`
}

type levelRequest struct {
	Quantity *int   `json:"quantity" validate:"required,min=0"`
	Note     string `json:"note" validate:"max=255"`
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Stock(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSufficient(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	qty, err := strconv.Atoi(r.URL.Query().Get("qty"))
	if err != nil {
		httpx.FieldProblem(w, map[string]string{"qty": "must be an integer"})
		return
	}
	ok, err := h.service.HasSufficient(r.Context(), code, qty)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_code": code, "quantity": qty, "sufficient": ok})
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	moves, err := h.service.Movements(r.Context(), chi.URLParam(r, "code"), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": moves})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStockItems(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if items == nil {
		items = []LowStockItem{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FieldProblem(w, httpx.FieldErrors(err))
		return
	}
	rec, err := h.service.Adjust(r.Context(), AdjustInput{
		ProductCode: chi.URLParam(r, "code"),
		Delta:       req.Delta,
		Note:        req.Note,
		Actor:       shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.FieldProblem(w, httpx.FieldErrors(err))
		return
	}
	rec, err := h.service.SetLevel(r.Context(), chi.URLParam(r, "code"), *req.Quantity, req.Note, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var short *InsufficientStockError
	if errors.As(err, &short) {
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", short.Error())
		return
	}
	if !httpx.IsKnown(err) {
		h.logger.Error("inventory request failed", slog.Any("error", err))
		err = fmt.Errorf("%w: %w", httpx.ErrUnavailable, err)
	}
	httpx.RespondError(w, err)
}
