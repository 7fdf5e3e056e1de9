package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of results together with the continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been placed and awaits vendor confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the vendor accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusShipped indicates the order has been handed to delivery.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer. Terminal.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status value.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValidOrderStatus reports whether the value is a member of the status enumeration.
func IsValidOrderStatus(status OrderStatus) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order captures a confirmed purchase intent. Line items and the contact
// snapshot are immutable once the record exists; only Status changes afterwards.
type Order struct {
	ID          string
	OrderNumber string
	// CustomerID is empty for guest orders.
	CustomerID string
	Status     OrderStatus
	Items      []OrderLineItem
	Contact    OrderContact
	Totals     OrderTotals
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// CancelledAt is set when the order enters the cancelled status.
	CancelledAt  *time.Time
	CancelReason *string
}

// OrderLineItem snapshots a purchasable variant at the time of order. The
// unit price is frozen here so later catalog changes never alter history.
type OrderLineItem struct {
	VariantID int64
	// VendorID references the vendor owning the variant; populated by the
	// persistence layer, used for vendor list scoping.
	VendorID  string
	Name      string
	Quantity  int
	UnitPrice int64
	Total     int64
}

// OrderContact stores the customer contact snapshot captured at creation time.
// It is never re-derived from a live profile.
type OrderContact struct {
	Name    string
	Phone   string
	Address string
}

// OrderTotals holds rolled-up monetary fields in the smallest currency unit.
// Commission is a seller-settlement figure and is not part of Total.
type OrderTotals struct {
	Subtotal    int64
	DeliveryFee int64
	Commission  int64
	Total       int64
}

// CreateOrderRequest is the validated input that seeds an order. Callers
// translate their cart into this shape before invoking the order service.
type CreateOrderRequest struct {
	Items           []CreateOrderItem
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	// DeliveryFee is optional; nil means the default fee applies.
	DeliveryFee *int64
	Metadata    map[string]any
}

// CreateOrderItem references a purchasable variant and quantity. UnitPrice is
// a client-side snapshot used for the optimistic totals preview only; the
// persistence layer recomputes authoritative prices on insert.
type CreateOrderItem struct {
	VariantID int64
	Quantity  int
	UnitPrice int64
}
