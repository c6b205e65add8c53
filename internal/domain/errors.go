package domain

import (
	"errors"
	"fmt"
)

// Validation errors: the caller can correct the request and retry.
var (
	ErrOutOfStock             = errors.New("product is out of stock")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrProductInactive        = errors.New("product is inactive")
	ErrProductNotFound        = errors.New("product not found")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrMissingShippingAddress = errors.New("shipping address is required")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
)

// Concurrency errors: surfaced as "please retry", never retried silently.
var (
	ErrStockChanged         = errors.New("stock changed since the cart was built")
	ErrSubmissionInProgress = errors.New("a submission for this session is already in flight")
)

// Authorization errors.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Infrastructure errors.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// InsufficientStockError carries how many units are still available so
// the caller can cap the requested quantity.
type InsufficientStockError struct {
	Available int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

func (e InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockChangedError rejects a whole submission when any single item no
// longer fits the live stock snapshot.
type StockChangedError struct {
	ProductID string
	Available int
}

func (e StockChangedError) Error() string {
	return fmt.Sprintf("stock changed for product %s: %d available", e.ProductID, e.Available)
}

func (e StockChangedError) Is(target error) bool {
	return target == ErrStockChanged
}

// InvalidTransitionError reports a fulfillment move outside the forward
// sequence.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
