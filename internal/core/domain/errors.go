package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrBusy            = errors.New("store busy, retry later")
	ErrNotFound        = errors.New("not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrBadCredentials  = errors.New("invalid credentials")
)

// InvalidProductError means a cart line referenced a product id that
// does not exist in the catalog.
type InvalidProductError struct {
	ProductID int64
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product %d", e.ProductID)
}

// OutOfStockError carries the quantities so the client can adjust the
// cart and resubmit.
type OutOfStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %d out of stock: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ValidationError reports a rejected input field, e.g. a product
// attribute that does not match its category schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
