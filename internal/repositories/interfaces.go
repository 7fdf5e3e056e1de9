package repositories

import (
	"context"
	"time"

	domain "github.com/suqline/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation
// used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository is the persistence port for orders. It owns the canonical
// record: Insert recomputes authoritative prices and totals, UpdateStatus is
// expected to apply the write conditionally so concurrent transitions against
// a stale read are rejected at the storage layer, and both raise a not-found
// RepositoryError the service surfaces verbatim.
type OrderRepository interface {
	Insert(ctx context.Context, draft domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, update StatusUpdate) (domain.Order, error)
}

// StatusUpdate carries the write-time metadata for a status change.
type StatusUpdate struct {
	Now          time.Time
	CancelReason *string
	// ExpectedUpdatedAt enables a compare-and-swap write: when set, the
	// repository must reject the update if the stored record changed since
	// that timestamp.
	ExpectedUpdatedAt *time.Time
}

// OrderListFilter narrows order listings. VendorID restricts results to
// orders containing at least one line item owned by that vendor; this
// line-item predicate is the repository's contract, not re-checked by the
// policy layer.
type OrderListFilter struct {
	CustomerID string
	VendorID   string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
