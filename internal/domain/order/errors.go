package order

import "errors"

var (
	// ErrEmptyOrder is returned when checkout is attempted with no items
	ErrEmptyOrder = errors.New("order has no items")

	// ErrInvalidQuantity is returned when an item quantity is <= 0
	ErrInvalidQuantity = errors.New("invalid item quantity")

	// ErrProductNotFound is returned when a requested product does not exist or is inactive
	ErrProductNotFound = errors.New("product not found")

	// ErrNotFound is returned when the order does not exist
	ErrNotFound = errors.New("order not found")
)
