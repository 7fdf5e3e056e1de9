// Package firestore persists orders in Cloud Firestore. Each order is a
// single document in the orders collection; vendor scoping relies on a
// denormalised vendorRefs array queried with array-contains.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	firestorev1 "cloud.google.com/go/firestore"

	domain "github.com/suqline/api/internal/domain"
	pfirestore "github.com/suqline/api/internal/platform/firestore"
	"github.com/suqline/api/internal/platform/pagination"
	"github.com/suqline/api/internal/pricing"
	"github.com/suqline/api/internal/repositories"
)

const (
	ordersCollection = "orders"
	defaultPageSize  = 20
	maxPageSize      = 100
)

type orderItemDocument struct {
	VariantID int64  `firestore:"variantId"`
	VendorID  string `firestore:"vendorId,omitempty"`
	Name      string `firestore:"name,omitempty"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice int64  `firestore:"unitPrice"`
	Total     int64  `firestore:"total"`
}

type orderContactDocument struct {
	Name    string `firestore:"name"`
	Phone   string `firestore:"phone"`
	Address string `firestore:"address"`
}

type orderTotalsDocument struct {
	Subtotal    int64 `firestore:"subtotal"`
	DeliveryFee int64 `firestore:"deliveryFee"`
	Commission  int64 `firestore:"commission"`
	Total       int64 `firestore:"total"`
}

type orderDocument struct {
	OrderNumber  string               `firestore:"orderNumber"`
	CustomerID   string               `firestore:"customerId,omitempty"`
	Status       string               `firestore:"status"`
	Items        []orderItemDocument  `firestore:"items"`
	VendorRefs   []string             `firestore:"vendorRefs,omitempty"`
	Contact      orderContactDocument `firestore:"contact"`
	Totals       orderTotalsDocument  `firestore:"totals"`
	Metadata     map[string]any       `firestore:"metadata,omitempty"`
	CreatedAt    time.Time            `firestore:"createdAt"`
	UpdatedAt    time.Time            `firestore:"updatedAt"`
	CancelledAt  *time.Time           `firestore:"cancelledAt,omitempty"`
	CancelReason string               `firestore:"cancelReason,omitempty"`
}

// OrderRepository stores orders in a Firestore collection.
type OrderRepository struct {
	provider   *pfirestore.Provider
	collection *pfirestore.Collection[orderDocument]
	pricing    *pricing.Engine
}

// NewOrderRepository binds a repository to the orders collection. The pricing
// engine performs the authoritative totals recomputation on insert.
func NewOrderRepository(provider *pfirestore.Provider, engine *pricing.Engine) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("firestore order repository: provider is required")
	}
	if engine == nil {
		return nil, errors.New("firestore order repository: pricing engine is required")
	}
	return &OrderRepository{
		provider:   provider,
		collection: pfirestore.NewCollection[orderDocument](provider, ordersCollection),
		pricing:    engine,
	}, nil
}

// Insert persists the draft, recomputing line totals and order totals as the
// source of truth. Create fails with a conflict if the document already exists.
func (r *OrderRepository) Insert(ctx context.Context, draft domain.Order) (domain.Order, error) {
	id := strings.TrimSpace(draft.ID)
	if id == "" {
		return domain.Order{}, pfirestore.WrapError("orders.create", errors.New("order id is required"))
	}

	order := draft
	order.Items = append([]domain.OrderLineItem(nil), draft.Items...)
	for i := range order.Items {
		order.Items[i].Total = order.Items[i].UnitPrice * int64(order.Items[i].Quantity)
	}
	order.Totals = r.pricing.TotalsForLines(order.Items, order.Totals.DeliveryFee)

	if _, err := r.collection.Create(ctx, id, encodeOrder(order)); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// FindByID returns the stored order or a not-found repository error.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.collection.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data), nil
}

// List queries orders newest first, applying the cursor produced by the
// previous page. The VendorID predicate uses the denormalised vendorRefs
// array so vendors only ever see orders carrying at least one of their lines.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	var cursorCreatedAt time.Time
	if cursor.LastCreatedAt != "" {
		cursorCreatedAt, err = time.Parse(time.RFC3339Nano, cursor.LastCreatedAt)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err))
		}
	}

	pageSize := filter.Pagination.PageSize
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}

	docs, err := r.collection.Query(ctx, func(query firestorev1.Query) firestorev1.Query {
		if filter.CustomerID != "" {
			query = query.Where("customerId", "==", filter.CustomerID)
		}
		if filter.VendorID != "" {
			query = query.Where("vendorRefs", "array-contains", filter.VendorID)
		}
		if len(filter.Status) == 1 {
			query = query.Where("status", "==", string(filter.Status[0]))
		} else if len(filter.Status) > 1 {
			statuses := make([]string, 0, len(filter.Status))
			for _, status := range filter.Status {
				statuses = append(statuses, string(status))
			}
			query = query.Where("status", "in", statuses)
		}
		if from := filter.DateRange.From; from != nil {
			query = query.Where("createdAt", ">=", *from)
		}
		if to := filter.DateRange.To; to != nil {
			query = query.Where("createdAt", "<=", *to)
		}
		query = query.
			OrderBy("createdAt", firestorev1.Desc).
			OrderBy(firestorev1.DocumentID, firestorev1.Desc)
		if cursor.LastID != "" {
			query = query.StartAfter(cursorCreatedAt, cursor.LastID)
		}
		return query.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrder(doc.ID, doc.Data))
	}

	var nextToken string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextToken, err = pagination.EncodeToken(pagination.Cursor{
			LastID:        last.ID,
			LastCreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
	}

	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// UpdateStatus applies the status write inside a transaction. When the update
// carries an expected timestamp, the write fails with a conflict if the
// stored record changed since that read.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, update repositories.StatusUpdate) (domain.Order, error) {
	ref, err := r.collection.DocumentRef(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}

	var result domain.Order
	err = r.provider.RunTransaction(ctx, func(_ context.Context, tx *firestorev1.Transaction) error {
		snapshot, err := tx.Get(ref)
		if err != nil {
			return pfirestore.WrapError("orders.updateStatus", err)
		}
		var doc orderDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore: decode document %s: %w", snapshot.Ref.ID, err)
		}

		if update.ExpectedUpdatedAt != nil && !doc.UpdatedAt.Equal(*update.ExpectedUpdatedAt) {
			return pfirestore.ConflictError("orders.updateStatus", fmt.Errorf("order %s changed concurrently", orderID))
		}

		doc.Status = string(status)
		doc.UpdatedAt = update.Now
		if status == domain.OrderStatusCancelled {
			if doc.CancelledAt == nil {
				at := update.Now
				doc.CancelledAt = &at
			}
			if update.CancelReason != nil {
				doc.CancelReason = *update.CancelReason
			}
		}

		result = decodeOrder(snapshot.Ref.ID, doc)
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func encodeOrder(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	vendorSet := make(map[string]struct{})
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			VariantID: item.VariantID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
		if item.VendorID != "" {
			vendorSet[item.VendorID] = struct{}{}
		}
	}

	var vendorRefs []string
	for vendorID := range vendorSet {
		vendorRefs = append(vendorRefs, vendorID)
	}
	sort.Strings(vendorRefs)

	doc := orderDocument{
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Items:       items,
		VendorRefs:  vendorRefs,
		Contact: orderContactDocument{
			Name:    order.Contact.Name,
			Phone:   order.Contact.Phone,
			Address: order.Contact.Address,
		},
		Totals: orderTotalsDocument{
			Subtotal:    order.Totals.Subtotal,
			DeliveryFee: order.Totals.DeliveryFee,
			Commission:  order.Totals.Commission,
			Total:       order.Totals.Total,
		},
		Metadata:  order.Metadata,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if order.CancelledAt != nil {
		at := *order.CancelledAt
		doc.CancelledAt = &at
	}
	if order.CancelReason != nil {
		doc.CancelReason = *order.CancelReason
	}
	return doc
}

func decodeOrder(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderLineItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderLineItem{
			VariantID: item.VariantID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}

	order := domain.Order{
		ID:          id,
		OrderNumber: doc.OrderNumber,
		CustomerID:  doc.CustomerID,
		Status:      domain.OrderStatus(doc.Status),
		Items:       items,
		Contact: domain.OrderContact{
			Name:    doc.Contact.Name,
			Phone:   doc.Contact.Phone,
			Address: doc.Contact.Address,
		},
		Totals: domain.OrderTotals{
			Subtotal:    doc.Totals.Subtotal,
			DeliveryFee: doc.Totals.DeliveryFee,
			Commission:  doc.Totals.Commission,
			Total:       doc.Totals.Total,
		},
		Metadata:  doc.Metadata,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.CancelledAt != nil {
		at := *doc.CancelledAt
		order.CancelledAt = &at
	}
	if doc.CancelReason != "" {
		reason := doc.CancelReason
		order.CancelReason = &reason
	}
	return order
}
