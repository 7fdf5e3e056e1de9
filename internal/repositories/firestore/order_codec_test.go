package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/suqline/api/internal/domain"
)

func TestEncodeOrderRoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	cancelled := created.Add(time.Hour)
	reason := "customer request"

	order := domain.Order{
		ID:          "ord_01HZX",
		OrderNumber: "SQ-2026-01HZXA",
		CustomerID:  "cus_1",
		Status:      domain.OrderStatusCancelled,
		Items: []domain.OrderLineItem{
			{VariantID: 42, VendorID: "ven_2", Name: "Blue Mug", Quantity: 2, UnitPrice: 100, Total: 200},
			{VariantID: 43, VendorID: "ven_1", Name: "Red Mug", Quantity: 1, UnitPrice: 150, Total: 150},
		},
		Contact: domain.OrderContact{Name: "Dana", Phone: "0812345678", Address: "12 Harbour Rd"},
		Totals:  domain.OrderTotals{Subtotal: 350, DeliveryFee: 20, Commission: 35, Total: 370},
		Metadata: map[string]any{
			"channel":  "mobile",
			"attempts": int64(2),
		},
		CreatedAt:    created,
		UpdatedAt:    cancelled,
		CancelledAt:  &cancelled,
		CancelReason: &reason,
	}

	doc := encodeOrder(order)
	require.Equal(t, []string{"ven_1", "ven_2"}, doc.VendorRefs)
	require.Equal(t, order.Metadata, doc.Metadata)

	decoded := decodeOrder(order.ID, doc)
	require.Equal(t, order, decoded)
}

func TestEncodeOrderWithoutOptionalFields(t *testing.T) {
	t.Parallel()

	order := domain.Order{
		ID:          "ord_01HZY",
		OrderNumber: "SQ-2026-01HZYB",
		Status:      domain.OrderStatusPending,
		Items: []domain.OrderLineItem{
			{VariantID: 7, Quantity: 1, UnitPrice: 500, Total: 500},
		},
		Contact:   domain.OrderContact{Name: "Dana", Phone: "0812345678", Address: "12 Harbour Rd"},
		Totals:    domain.OrderTotals{Subtotal: 500, Total: 500},
		CreatedAt: time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC),
	}

	doc := encodeOrder(order)
	require.Empty(t, doc.VendorRefs)
	require.Nil(t, doc.Metadata)
	require.Nil(t, doc.CancelledAt)
	require.Empty(t, doc.CancelReason)

	decoded := decodeOrder(order.ID, doc)
	require.Nil(t, decoded.CancelReason)
	require.Equal(t, order, decoded)
}
