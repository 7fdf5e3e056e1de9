// Package policy holds the pure authorization and state machine rules for
// orders. Nothing here performs I/O; every function inspects only the values
// passed to it, which keeps the rules unit-testable without mocks and reusable
// from any transport.
package policy

import (
	"slices"

	domain "github.com/suqline/api/internal/domain"
)

// statusTransitions is the authoritative state machine. No other component may
// authorize a transition not listed here.
var statusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:   {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:   {domain.OrderStatusDelivered, domain.OrderStatusCancelled},
	domain.OrderStatusDelivered: {},
	domain.OrderStatusCancelled: {},
}

// terminalStatuses admit no further transition.
var terminalStatuses = []domain.OrderStatus{
	domain.OrderStatusDelivered,
	domain.OrderStatusCancelled,
}

// vendorCancellableStatuses are the states in which a vendor may still back
// out of an order. Once shipped, only an administrator can cancel.
var vendorCancellableStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
}

// CanTransition reports whether the status change is structurally legal.
// Authorization of the actor invoking it is a separate gate; both must pass.
func CanTransition(current, next domain.OrderStatus) bool {
	allowed, ok := statusTransitions[current]
	if !ok {
		return false
	}
	return slices.Contains(allowed, next)
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status domain.OrderStatus) bool {
	return slices.Contains(terminalStatuses, status)
}

// CanCreateOrder reports whether the actor may place an order. Vendors and
// administrators transact on the platform but do not purchase as customers.
func CanCreateOrder(actor domain.Actor) bool {
	switch actor.(type) {
	case domain.Guest, domain.Customer:
		return true
	case domain.Vendor, domain.Administrator:
		return false
	default:
		return false
	}
}

// CanViewOrder reports whether the actor may read the order. Vendors are
// authorized at the category level only; restricting a vendor to orders that
// contain its products is the repository query's contract.
func CanViewOrder(order domain.Order, actor domain.Actor) bool {
	switch a := actor.(type) {
	case domain.Guest:
		return false
	case domain.Administrator:
		return true
	case domain.Customer:
		return order.CustomerID != "" && order.CustomerID == a.ID
	case domain.Vendor:
		return true
	default:
		return false
	}
}

// CanCancelOrder reports whether the actor may cancel the order. Terminal
// statuses are immutable for every role.
func CanCancelOrder(order domain.Order, actor domain.Actor) bool {
	if IsTerminal(order.Status) {
		return false
	}
	switch a := actor.(type) {
	case domain.Administrator:
		return true
	case domain.Customer:
		return order.CustomerID == a.ID && order.Status == domain.OrderStatusPending
	case domain.Vendor:
		return slices.Contains(vendorCancellableStatuses, order.Status)
	default:
		return false
	}
}

// CanUpdateStatus reports whether the actor may progress the order status.
// Status progression is a seller/operator action; customers cancel through
// the dedicated cancellation path instead.
func CanUpdateStatus(order domain.Order, next domain.OrderStatus, actor domain.Actor) bool {
	switch actor.(type) {
	case domain.Administrator:
		return true
	case domain.Vendor:
		return !IsTerminal(order.Status)
	default:
		return false
	}
}
