package orders

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

var (
	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("orders: validation failed")
	// ErrDuplicateKey is matched by *DuplicateKeyError.
	ErrDuplicateKey = errors.New("orders: duplicate order key")
	// ErrInvalidTransition is matched by *InvalidTransitionError.
	ErrInvalidTransition = errors.New("orders: invalid transition")
	// ErrStoreFailure is matched by *StoreFailureError.
	ErrStoreFailure = errors.New("orders: store failure")
	// ErrNotFound indicates an unknown order key.
	ErrNotFound = fmt.Errorf("order %w", httpx.ErrNotFound)
	// ErrInsufficientStock is matched by *InsufficientStockError.
	ErrInsufficientStock = inventory.ErrInsufficientStock
)

// InsufficientStockError reports the product that is short.
type InsufficientStockError = inventory.InsufficientStockError

// ValidationError rejects input before the store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid order: %s", e.Reason)
	}
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrValidation and httpx.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == httpx.ErrValidation
}

// DuplicateKeyError reports an order key collision on insert. Retrying the
// whole commit allocates a fresh key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("order key %s already exists", e.Key)
}

// Is lets errors.Is match ErrDuplicateKey and httpx.ErrDuplicate.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey || target == httpx.ErrDuplicate
}

// InvalidTransitionError reports a purchase lifecycle violation.
type InvalidTransitionError struct {
	OrderKey string
	From     Status
	To       Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("purchase %s is %s and cannot be %s", e.OrderKey, e.From, verb(e.To))
}

// Is lets errors.Is match ErrInvalidTransition and httpx.ErrConflict.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || target == httpx.ErrConflict
}

func verb(to Status) string {
	switch to {
	case StatusReceived:
		return "received"
	case StatusCancelled:
		return "cancelled"
	default:
		return "moved to " + string(to)
	}
}

// StoreFailureError hides an infrastructure error behind a generic message.
// The wrapped error is logged, never shown.
type StoreFailureError struct {
	Op  string
	Err error
}

func (e *StoreFailureError) Error() string {
	return fmt.Sprintf("%s could not be completed, please retry", e.Op)
}

// Is lets errors.Is match ErrStoreFailure and httpx.ErrUnavailable.
func (e *StoreFailureError) Is(target error) bool {
	return target == ErrStoreFailure || target == httpx.ErrUnavailable
}

func (e *StoreFailureError) Unwrap() error {
	return e.Err
}
