// Package memory provides a mutex-guarded in-memory order repository used for
// local runs and tests. It honours the same contract as the Firestore
// implementation: authoritative totals recomputation on insert, vendor
// line-item scoping on list, and a compare-and-swap status write.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	domain "github.com/suqline/api/internal/domain"
	"github.com/suqline/api/internal/platform/pagination"
	"github.com/suqline/api/internal/pricing"
	"github.com/suqline/api/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Error implements repositories.RepositoryError for the in-memory store.
type Error struct {
	op       string
	err      error
	notFound bool
	conflict bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// IsNotFound reports whether the error represents a missing record.
func (e *Error) IsNotFound() bool { return e != nil && e.notFound }

// IsConflict reports whether the error represents a conflicting update.
func (e *Error) IsConflict() bool { return e != nil && e.conflict }

// IsUnavailable always reports false; the in-memory store has no backend.
func (e *Error) IsUnavailable() bool { return false }

func notFoundError(op, orderID string) *Error {
	return &Error{op: op, err: fmt.Errorf("order %s not found", orderID), notFound: true}
}

// OrderRepository stores orders in process memory.
type OrderRepository struct {
	mu      sync.RWMutex
	orders  map[string]domain.Order
	pricing *pricing.Engine
}

// NewOrderRepository constructs an empty in-memory order repository. The
// pricing engine performs the authoritative totals recomputation on insert.
func NewOrderRepository(engine *pricing.Engine) (*OrderRepository, error) {
	if engine == nil {
		return nil, errors.New("memory order repository: pricing engine is required")
	}
	return &OrderRepository{
		orders:  make(map[string]domain.Order),
		pricing: engine,
	}, nil
}

// Insert persists the draft, recomputing line totals and order totals as the
// source of truth. Resolving variant ownership and catalog prices is the
// production backend's job; the draft's unit prices are kept as submitted.
func (r *OrderRepository) Insert(ctx context.Context, draft domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	id := strings.TrimSpace(draft.ID)
	if id == "" {
		return domain.Order{}, &Error{op: "memory: insert order", err: errors.New("order id is required")}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[id]; exists {
		return domain.Order{}, &Error{op: "memory: insert order", err: fmt.Errorf("order %s already exists", id), conflict: true}
	}

	stored := cloneOrder(draft)
	for i := range stored.Items {
		stored.Items[i].Total = stored.Items[i].UnitPrice * int64(stored.Items[i].Quantity)
	}
	stored.Totals = r.pricing.TotalsForLines(stored.Items, stored.Totals.DeliveryFee)

	r.orders[id] = stored
	return cloneOrder(stored), nil
}

// FindByID returns the stored order or a not-found repository error.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[strings.TrimSpace(orderID)]
	if !ok {
		return domain.Order{}, notFoundError("memory: find order", orderID)
	}
	return cloneOrder(order), nil
}

// List returns orders matching the filter, newest first. The VendorID
// predicate matches orders containing at least one line item owned by the
// vendor, which is the scoping contract the policy layer relies on.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, &Error{op: "memory: list orders", err: err}
	}

	r.mu.RLock()
	matched := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if matchesFilter(order, filter) {
			matched = append(matched, cloneOrder(order))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	start := 0
	if cursor.LastID != "" {
		for i, order := range matched {
			if order.ID == cursor.LastID {
				start = i + 1
				break
			}
		}
	}

	pageSize := filter.Pagination.PageSize
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}

	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	items := matched[start:end]

	var nextToken string
	if end < len(matched) && len(items) > 0 {
		nextToken, err = pagination.EncodeToken(pagination.Cursor{LastID: items[len(items)-1].ID})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, &Error{op: "memory: list orders", err: err}
		}
	}

	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// UpdateStatus applies a status write. When the update carries an expected
// timestamp the write is rejected if the record changed since that read,
// which is the storage-side guard against racing transitions.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, update repositories.StatusUpdate) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[strings.TrimSpace(orderID)]
	if !ok {
		return domain.Order{}, notFoundError("memory: update order status", orderID)
	}

	if update.ExpectedUpdatedAt != nil && !order.UpdatedAt.Equal(*update.ExpectedUpdatedAt) {
		return domain.Order{}, &Error{
			op:       "memory: update order status",
			err:      fmt.Errorf("order %s changed concurrently", orderID),
			conflict: true,
		}
	}

	order.Status = status
	order.UpdatedAt = update.Now
	if status == domain.OrderStatusCancelled {
		if order.CancelledAt == nil {
			at := update.Now
			order.CancelledAt = &at
		}
		if update.CancelReason != nil {
			reason := *update.CancelReason
			order.CancelReason = &reason
		}
	}

	r.orders[order.ID] = order
	return cloneOrder(order), nil
}

func matchesFilter(order domain.Order, filter repositories.OrderListFilter) bool {
	if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
		return false
	}
	if filter.VendorID != "" && !hasVendorLine(order, filter.VendorID) {
		return false
	}
	if len(filter.Status) > 0 {
		found := false
		for _, status := range filter.Status {
			if order.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if from := filter.DateRange.From; from != nil && order.CreatedAt.Before(*from) {
		return false
	}
	if to := filter.DateRange.To; to != nil && order.CreatedAt.After(*to) {
		return false
	}
	return true
}

func hasVendorLine(order domain.Order, vendorID string) bool {
	for _, item := range order.Items {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

func cloneOrder(order domain.Order) domain.Order {
	cloned := order
	cloned.Items = make([]domain.OrderLineItem, len(order.Items))
	copy(cloned.Items, order.Items)
	if order.Metadata != nil {
		cloned.Metadata = maps.Clone(order.Metadata)
	}
	if order.CancelledAt != nil {
		at := *order.CancelledAt
		cloned.CancelledAt = &at
	}
	if order.CancelReason != nil {
		reason := *order.CancelReason
		cloned.CancelReason = &reason
	}
	return cloned
}
