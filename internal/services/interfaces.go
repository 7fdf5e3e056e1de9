package services

import (
	"context"
	"time"

	domain "github.com/suqline/api/internal/domain"
)

// Order aliases the domain order so transport code can stay on the service
// package's vocabulary.
type Order = domain.Order

// CreateOrderCommand carries the actor and payload for order placement.
type CreateOrderCommand struct {
	Actor   domain.Actor
	Request domain.CreateOrderRequest
}

// GetOrderCommand identifies an order read on behalf of an actor.
type GetOrderCommand struct {
	Actor   domain.Actor
	OrderID string
}

// ListOrdersCommand narrows an order listing. CustomerID is honoured for
// administrators only; customers and vendors are always scoped to their own
// orders regardless of the filters supplied.
type ListOrdersCommand struct {
	Actor      domain.Actor
	CustomerID string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// UpdateOrderStatusCommand requests a forward status transition.
type UpdateOrderStatusCommand struct {
	Actor        domain.Actor
	OrderID      string
	TargetStatus domain.OrderStatus
	// ExpectedStatus guards against acting on a stale read when set.
	ExpectedStatus *domain.OrderStatus
}

// CancelOrderCommand requests cancellation with an optional reason.
type CancelOrderCommand struct {
	Actor   domain.Actor
	OrderID string
	Reason  string
}

// EstimateTotalsCommand prices a prospective order without persisting it.
type EstimateTotalsCommand struct {
	Actor       domain.Actor
	Items       []domain.CreateOrderItem
	DeliveryFee *int64
}

// OrderService owns the order lifecycle: placement, reads, status
// progression, and cancellation. Every operation authorizes the supplied
// actor before touching storage.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Get(ctx context.Context, cmd GetOrderCommand) (Order, error)
	List(ctx context.Context, cmd ListOrdersCommand) (domain.CursorPage[Order], error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	EstimateTotals(ctx context.Context, cmd EstimateTotalsCommand) (domain.OrderTotals, error)
}
