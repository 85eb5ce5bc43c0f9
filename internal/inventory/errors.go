package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a product with the given ID does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateSKU is returned when another product already uses the SKU.
	ErrDuplicateSKU = errors.New("sku already in use")
	// ErrInsufficientStock is matched by every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrValidation wraps every rejected draft.
	ErrValidation = errors.New("validation failed")
	// ErrNotLoaded is returned by mutations issued before Load succeeded.
	ErrNotLoaded = errors.New("store not loaded")
)

// InsufficientStockError reports a sale asking for more units than the product holds.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) hold.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
