package model

import (
	"errors"
	"strings"
)

// OrderStatus is the lifecycle state of an order. It is set by the backend only.
type OrderStatus string

// Order statuses.
const (
	OrderStatusSaved     OrderStatus = "SAVED"
	OrderStatusPurchased OrderStatus = "PURCHASED"
	OrderStatusHeld      OrderStatus = "HELD"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusSaved, OrderStatusPurchased, OrderStatusHeld:
		return true
	}
	return false
}

// Editable reports whether an order in this status may be edited or purchased.
func (s OrderStatus) Editable() bool {
	return s == OrderStatusSaved
}

// OrderItem is one line of an order.
type OrderItem struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

// OrderRequest is the body sent to create or update an order.
type OrderRequest struct {
	Items           []OrderItem `json:"items"`
	DeliveryAddress string      `json:"deliveryAddress"`
}

// Order is an order as returned by the backend.
type Order struct {
	ID              *int64      `json:"id,omitempty"`
	Items           []OrderItem `json:"items"`
	DeliveryAddress string      `json:"deliveryAddress"`
	Status          OrderStatus `json:"status"`
}

// OrderID returns the order's id, or 0 when it is absent.
func (o Order) OrderID() int64 {
	if o.ID == nil {
		return 0
	}
	return *o.ID
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	c := o
	if o.ID != nil {
		c.ID = ID(*o.ID)
	}
	c.Items = append([]OrderItem(nil), o.Items...)
	return c
}

// TotalQuantity sums the quantities of all lines.
func TotalQuantity(items []OrderItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// ErrorBody is the normalized error response of the proxy.
type ErrorBody struct {
	Error string `json:"error"`
}

// Validation messages shown to the user.
const (
	MsgNoItems   = "Please add at least one item to the order."
	MsgNoAddress = "Please enter a delivery address."
)

// validationError communicates rule violations that are caught before any network call.
type validationError struct {
	message string
}

func (e validationError) Error() string { return e.message }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var v validationError
	return errors.As(err, &v)
}

// Validate checks that the request can be submitted: at least one line and a
// non-blank delivery address.
func (r OrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return validationError{message: MsgNoItems}
	}
	if strings.TrimSpace(r.DeliveryAddress) == "" {
		return validationError{message: MsgNoAddress}
	}
	return nil
}
