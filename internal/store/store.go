// Package store persists items and orders for the reference backend.
package store

import "errors"

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps rejected input.
	ErrInvalid = errors.New("invalid input")
	// ErrNotEditable is returned when an order is no longer SAVED.
	ErrNotEditable = errors.New("order is no longer editable")
)
