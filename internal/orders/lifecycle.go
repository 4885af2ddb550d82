package orders

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// ReceivePurchase books a Pending purchase into stock and marks it Received.
// The status change and every stock increment commit together.
func (s *Service) ReceivePurchase(ctx context.Context, key, actor string) (Order, error) {
	start := time.Now()
	order, err := s.receivePurchase(ctx, strings.TrimSpace(key), actor)
	s.observe(OpReceive, err, start)
	return order, err
}

func (s *Service) receivePurchase(ctx context.Context, key, actor string) (Order, error) {
	if key == "" {
		return Order{}, &ValidationError{Field: "order_key", Reason: "is required"}
	}
	var (
		order   Order
		records []inventory.StockRecord
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		header, err := s.pendingPurchase(ctx, tx, key, StatusReceived)
		if err != nil {
			return err
		}
		details, err := tx.ListDetails(ctx, key)
		if err != nil {
			return err
		}
		codes, qty := inventory.Aggregate(details, detailQuantity)
		adjs := make([]inventory.Adjustment, 0, len(codes))
		for _, code := range codes {
			adjs = append(adjs, inventory.Adjustment{ProductCode: code, Delta: qty[code], Reason: inventory.ReasonPurchaseReceipt, Reference: key})
		}
		records, err = inventory.NewLedger(tx.Inventory()).AdjustAll(ctx, adjs)
		if err != nil {
			return err
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, key, StatusReceived, now); err != nil {
			return err
		}
		header.Status = StatusReceived
		header.UpdatedAt = now
		order = Order{Header: header, Details: details}
		return nil
	})
	if err != nil {
		return Order{}, s.classify(OpReceive, key, err)
	}

	s.stockChanged(ctx, key, records)
	s.recordAudit(ctx, actor, "orders:purchase:receive", key, map[string]any{"lines": len(order.Details)})
	s.logger.Info("purchase received", slog.String("order_key", key))
	return order, nil
}

// CancelPurchase withdraws a Pending purchase. Header and details are
// removed in one transaction; stock is untouched.
func (s *Service) CancelPurchase(ctx context.Context, key, actor string) error {
	start := time.Now()
	err := s.cancelPurchase(ctx, strings.TrimSpace(key), actor)
	s.observe(OpCancel, err, start)
	return err
}

func (s *Service) cancelPurchase(ctx context.Context, key, actor string) error {
	if key == "" {
		return &ValidationError{Field: "order_key", Reason: "is required"}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.pendingPurchase(ctx, tx, key, StatusCancelled); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, key)
	})
	if err != nil {
		return s.classify(OpCancel, key, err)
	}
	s.recordAudit(ctx, actor, "orders:purchase:cancel", key, nil)
	s.logger.Info("purchase cancelled", slog.String("order_key", key))
	return nil
}

// pendingPurchase locks the header and checks the transition is allowed.
func (s *Service) pendingPurchase(ctx context.Context, tx TxRepository, key string, to Status) (Header, error) {
	header, err := tx.GetHeaderForUpdate(ctx, key)
	if err != nil {
		return Header{}, err
	}
	if header.Kind != KindPurchase {
		return Header{}, ErrNotFound
	}
	if header.Status != StatusPending {
		return Header{}, &InvalidTransitionError{OrderKey: key, From: header.Status, To: to}
	}
	return header, nil
}

// GetOrder loads an order with its details.
func (s *Service) GetOrder(ctx context.Context, key string) (Order, error) {
	order, err := s.repo.GetOrder(ctx, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, err
		}
		return Order{}, s.classify("get_order", key, err)
	}
	return order, nil
}

// ListSales returns sale headers, newest first. Status is not a sale field.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Header, error) {
	if filter.Status != "" {
		return nil, &ValidationError{Field: "status", Reason: "does not apply to sales"}
	}
	filter.Kind = KindSale
	return s.list(ctx, filter)
}

// ListPurchases returns purchase headers, newest first.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) ([]Header, error) {
	switch filter.Status {
	case "", StatusPending, StatusReceived:
	default:
		return nil, &ValidationError{Field: "status", Reason: "must be Pending or Received"}
	}
	filter.Kind = KindPurchase
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter ListFilter) ([]Header, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, &ValidationError{Field: "to", Reason: "must be after from"}
	}
	filter.CounterpartyID = strings.TrimSpace(filter.CounterpartyID)
	filter.EmployeeID = strings.TrimSpace(filter.EmployeeID)
	page := shared.NewPage(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset

	headers, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, s.classify("list_orders", "", err)
	}
	return headers, nil
}

// NextKey previews the key the next commit of kind would receive. The value
// is advisory; a concurrent commit may take it first.
func (s *Service) NextKey(ctx context.Context, kind Kind) (string, error) {
	prefix := s.cfg.SalePrefix
	if kind == KindPurchase {
		prefix = s.cfg.PurchasePrefix
	}
	last, err := s.repo.MaxKey(ctx, prefix)
	if err != nil {
		return "", s.classify("next_key", "", err)
	}
	if last == "" {
		return s.seq.Next(prefix), nil
	}
	return s.seq.Next(prefix, last), nil
}

func detailQuantity(d Detail) (string, int) {
	return d.ProductCode, d.Quantity
}
