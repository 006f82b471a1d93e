package sale

import (
	"errors"
	"fmt"
)

// Recoverable failures carry enough detail for the caller to present a
// friendly retry/adjust flow. Fatal failures always follow a full
// rollback of any reservation applied by the attempt.
var (
	ErrNoItems         = errors.New("no line items")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product inactive")

	ErrSequenceAllocation = errors.New("sequence allocation failed")
	ErrPersistence        = errors.New("sale persistence failed")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// InsufficientStockError is returned by the validator when the observed
// stock cannot cover the requested quantity.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// ReservationConflictError is returned when the conditional decrement
// failed at apply time because a concurrent sale consumed the stock
// after validation.
type ReservationConflictError struct {
	ProductID string
}

func (e *ReservationConflictError) Error() string {
	return fmt.Sprintf("reservation conflict on %s", e.ProductID)
}
