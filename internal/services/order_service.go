package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/suqline/api/internal/domain"
	"github.com/suqline/api/internal/policy"
	"github.com/suqline/api/internal/pricing"
	"github.com/suqline/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"

	orderIDPrefix            = "ord_"
	defaultOrderNumberPrefix = "SQ"
)

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders            repositories.OrderRepository
	Pricing           *pricing.Engine
	OrderNumberPrefix string
	Clock             func() time.Time
	IDGenerator       func() string
	Events            OrderEventPublisher
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders       repositories.OrderRepository
	pricing      *pricing.Engine
	numberPrefix string
	clock        func() time.Time
	newID        func() string
	events       OrderEventPublisher
	logger       func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricing engine is required")
	}

	prefix := strings.TrimSpace(deps.OrderNumberPrefix)
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:       deps.Orders,
		pricing:      deps.Pricing,
		numberPrefix: prefix,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if cmd.Actor == nil {
		return Order{}, ErrUnauthenticated
	}
	if !policy.CanCreateOrder(cmd.Actor) {
		return Order{}, fmt.Errorf("%w: actor may not place orders", ErrForbidden)
	}

	if result := policy.ValidateCreateOrder(cmd.Request); !result.Valid() {
		return Order{}, &InvalidRequestError{Reasons: result.Reasons}
	}

	var deliveryFee int64
	if cmd.Request.DeliveryFee != nil {
		deliveryFee = *cmd.Request.DeliveryFee
	}

	now := s.now()
	id := s.nextOrderID()

	items := make([]domain.OrderLineItem, 0, len(cmd.Request.Items))
	for _, item := range cmd.Request.Items {
		items = append(items, domain.OrderLineItem{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.UnitPrice * int64(item.Quantity),
		})
	}

	order := Order{
		ID:          id,
		OrderNumber: s.generateOrderNumber(id, now),
		CustomerID:  actorCustomerID(cmd.Actor),
		Status:      domain.OrderStatusPending,
		Items:       items,
		Contact: domain.OrderContact{
			Name:    strings.TrimSpace(cmd.Request.CustomerName),
			Phone:   strings.TrimSpace(cmd.Request.CustomerPhone),
			Address: strings.TrimSpace(cmd.Request.CustomerAddress),
		},
		Totals:    s.pricing.CalculateTotals(cmd.Request.Items, deliveryFee),
		Metadata:  maps.Clone(cmd.Request.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := s.orders.Insert(ctx, order)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       stored.ID,
		OrderNumber:   stored.OrderNumber,
		CurrentStatus: string(stored.Status),
		ActorID:       actorID(cmd.Actor),
		OccurredAt:    now,
	})

	return stored, nil
}

func (s *orderService) Get(ctx context.Context, cmd GetOrderCommand) (Order, error) {
	if err := requireIdentified(cmd.Actor); err != nil {
		return Order{}, err
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, &InvalidRequestError{Reasons: []string{"order id is required"}}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if !policy.CanViewOrder(order, cmd.Actor) {
		return Order{}, fmt.Errorf("%w: actor may not view order %s", ErrForbidden, orderID)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, cmd ListOrdersCommand) (domain.CursorPage[Order], error) {
	if err := requireIdentified(cmd.Actor); err != nil {
		return domain.CursorPage[Order]{}, err
	}

	var reasons []string
	for _, status := range cmd.Status {
		if !domain.IsValidOrderStatus(status) {
			reasons = append(reasons, fmt.Sprintf("unknown status %q", status))
		}
	}
	if len(reasons) > 0 {
		return domain.CursorPage[Order]{}, &InvalidRequestError{Reasons: reasons}
	}

	filter := repositories.OrderListFilter{
		Status:     cmd.Status,
		DateRange:  cmd.DateRange,
		Pagination: cmd.Pagination,
	}

	// Customers and vendors only ever see their own orders; the requested
	// customer filter is honoured for administrators alone.
	switch a := cmd.Actor.(type) {
	case domain.Customer:
		filter.CustomerID = a.ID
	case domain.Vendor:
		filter.VendorID = a.ID
	case domain.Administrator:
		filter.CustomerID = strings.TrimSpace(cmd.CustomerID)
	default:
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: actor may not list orders", ErrForbidden)
	}

	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	if err := requireIdentified(cmd.Actor); err != nil {
		return Order{}, err
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, &InvalidRequestError{Reasons: []string{"order id is required"}}
	}
	if !domain.IsValidOrderStatus(cmd.TargetStatus) {
		return Order{}, &InvalidRequestError{Reasons: []string{fmt.Sprintf("unknown status %q", cmd.TargetStatus)}}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if !policy.CanUpdateStatus(order, cmd.TargetStatus, cmd.Actor) {
		return Order{}, fmt.Errorf("%w: actor may not update order %s", ErrForbidden, orderID)
	}
	if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
		return Order{}, fmt.Errorf("%w: expected status %q but was %q", ErrOrderConflict, *cmd.ExpectedStatus, order.Status)
	}
	if !policy.CanTransition(order.Status, cmd.TargetStatus) {
		return Order{}, &InvalidTransitionError{From: order.Status, To: cmd.TargetStatus}
	}

	now := s.now()
	prevStatus := order.Status

	updated, err := s.orders.UpdateStatus(ctx, orderID, cmd.TargetStatus, repositories.StatusUpdate{
		Now:               now,
		ExpectedUpdatedAt: &order.UpdatedAt,
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		PreviousStatus: string(prevStatus),
		CurrentStatus:  string(updated.Status),
		ActorID:        actorID(cmd.Actor),
		OccurredAt:     now,
	})

	return updated, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	if err := requireIdentified(cmd.Actor); err != nil {
		return Order{}, err
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, &InvalidRequestError{Reasons: []string{"order id is required"}}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if policy.IsTerminal(order.Status) {
		return Order{}, &InvalidTransitionError{From: order.Status, To: domain.OrderStatusCancelled}
	}
	if !policy.CanCancelOrder(order, cmd.Actor) {
		return Order{}, fmt.Errorf("%w: actor may not cancel order %s", ErrForbidden, orderID)
	}

	now := s.now()
	prevStatus := order.Status

	update := repositories.StatusUpdate{
		Now:               now,
		ExpectedUpdatedAt: &order.UpdatedAt,
	}
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		update.CancelReason = &reason
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled, update)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	event := OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		PreviousStatus: string(prevStatus),
		CurrentStatus:  string(updated.Status),
		ActorID:        actorID(cmd.Actor),
		OccurredAt:     now,
	}
	if update.CancelReason != nil {
		event.Metadata = map[string]any{"reason": *update.CancelReason}
	}
	s.publishEvent(ctx, event)

	return updated, nil
}

func (s *orderService) EstimateTotals(ctx context.Context, cmd EstimateTotalsCommand) (domain.OrderTotals, error) {
	if cmd.Actor == nil {
		return domain.OrderTotals{}, ErrUnauthenticated
	}
	if !policy.CanCreateOrder(cmd.Actor) {
		return domain.OrderTotals{}, fmt.Errorf("%w: actor may not place orders", ErrForbidden)
	}
	if result := policy.ValidateEstimate(cmd.Items, cmd.DeliveryFee); !result.Valid() {
		return domain.OrderTotals{}, &InvalidRequestError{Reasons: result.Reasons}
	}

	var deliveryFee int64
	if cmd.DeliveryFee != nil {
		deliveryFee = *cmd.DeliveryFee
	}
	return s.pricing.CalculateTotals(cmd.Items, deliveryFee), nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(orderID string, now time.Time) string {
	suffix := strings.TrimPrefix(orderID, orderIDPrefix)
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("%s-%04d-%s", s.numberPrefix, now.Year(), strings.ToUpper(suffix))
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

// requireIdentified gates the operations that have no anonymous path. Guests
// are told to authenticate rather than being refused outright.
func requireIdentified(actor domain.Actor) error {
	switch actor.(type) {
	case nil, domain.Guest:
		return ErrUnauthenticated
	default:
		return nil
	}
}

func actorCustomerID(actor domain.Actor) string {
	if customer, ok := actor.(domain.Customer); ok {
		return customer.ID
	}
	return ""
}

func actorID(actor domain.Actor) string {
	switch a := actor.(type) {
	case domain.Customer:
		return a.ID
	case domain.Vendor:
		return a.ID
	case domain.Administrator:
		return "admin"
	default:
		return ""
	}
}
