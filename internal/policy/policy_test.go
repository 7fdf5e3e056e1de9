package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/suqline/api/internal/domain"
)

func TestCanTransitionTable(t *testing.T) {
	t.Parallel()

	allowed := map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusPending:   {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
		domain.OrderStatusConfirmed: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
		domain.OrderStatusShipped:   {domain.OrderStatusDelivered, domain.OrderStatusCancelled},
		domain.OrderStatusDelivered: {},
		domain.OrderStatusCancelled: {},
	}

	for _, from := range domain.OrderStatuses {
		for _, to := range domain.OrderStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			require.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	t.Parallel()

	require.False(t, CanTransition("paused", domain.OrderStatusConfirmed))
	require.False(t, CanTransition(domain.OrderStatusPending, "paused"))
}

func TestTerminalStatusesAdmitNothing(t *testing.T) {
	t.Parallel()

	for _, from := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled} {
		require.True(t, IsTerminal(from))
		for _, to := range domain.OrderStatuses {
			require.False(t, CanTransition(from, to), "%s -> %s must be illegal", from, to)
		}
	}
}

func TestCanCreateOrder(t *testing.T) {
	t.Parallel()

	require.True(t, CanCreateOrder(domain.Guest{}))
	require.True(t, CanCreateOrder(domain.Customer{ID: "cus-1"}))
	require.False(t, CanCreateOrder(domain.Vendor{ID: "ven-1"}))
	require.False(t, CanCreateOrder(domain.Administrator{}))
}

func TestCanViewOrder(t *testing.T) {
	t.Parallel()

	order := domain.Order{ID: "ord_1", CustomerID: "cus-1", Status: domain.OrderStatusPending}

	require.False(t, CanViewOrder(order, domain.Guest{}))
	require.True(t, CanViewOrder(order, domain.Administrator{}))
	require.True(t, CanViewOrder(order, domain.Customer{ID: "cus-1"}))
	require.False(t, CanViewOrder(order, domain.Customer{ID: "cus-2"}))
	require.True(t, CanViewOrder(order, domain.Vendor{ID: "ven-1"}))
}

func TestCanViewOrderGuestOwnedOrder(t *testing.T) {
	t.Parallel()

	// A guest order has no owner, so no customer can claim it.
	order := domain.Order{ID: "ord_2", CustomerID: "", Status: domain.OrderStatusPending}
	require.False(t, CanViewOrder(order, domain.Customer{ID: ""}))
}

func TestCanCancelOrderTerminalStatusDeniesEveryone(t *testing.T) {
	t.Parallel()

	actors := []domain.Actor{
		domain.Guest{},
		domain.Customer{ID: "cus-1"},
		domain.Vendor{ID: "ven-1"},
		domain.Administrator{},
	}
	for _, status := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled} {
		order := domain.Order{ID: "ord_1", CustomerID: "cus-1", Status: status}
		for _, actor := range actors {
			require.False(t, CanCancelOrder(order, actor), "status %s actor %T", status, actor)
		}
	}
}

func TestCanCancelOrderByRole(t *testing.T) {
	t.Parallel()

	pending := domain.Order{ID: "ord_1", CustomerID: "cus-1", Status: domain.OrderStatusPending}
	confirmed := domain.Order{ID: "ord_1", CustomerID: "cus-1", Status: domain.OrderStatusConfirmed}
	shipped := domain.Order{ID: "ord_1", CustomerID: "cus-1", Status: domain.OrderStatusShipped}

	require.True(t, CanCancelOrder(pending, domain.Customer{ID: "cus-1"}))
	require.False(t, CanCancelOrder(pending, domain.Customer{ID: "cus-2"}))
	require.False(t, CanCancelOrder(confirmed, domain.Customer{ID: "cus-1"}))

	require.True(t, CanCancelOrder(pending, domain.Vendor{ID: "ven-1"}))
	require.True(t, CanCancelOrder(confirmed, domain.Vendor{ID: "ven-1"}))
	require.False(t, CanCancelOrder(shipped, domain.Vendor{ID: "ven-1"}))

	// Admins may cancel anything non-terminal, including shipped orders.
	require.True(t, CanCancelOrder(shipped, domain.Administrator{}))
	require.False(t, CanCancelOrder(pending, domain.Guest{}))
}

func TestCanUpdateStatus(t *testing.T) {
	t.Parallel()

	confirmed := domain.Order{ID: "ord_1", CustomerID: "cus-1", Status: domain.OrderStatusConfirmed}
	delivered := domain.Order{ID: "ord_1", CustomerID: "cus-1", Status: domain.OrderStatusDelivered}

	require.False(t, CanUpdateStatus(confirmed, domain.OrderStatusShipped, domain.Guest{}))
	require.False(t, CanUpdateStatus(confirmed, domain.OrderStatusShipped, domain.Customer{ID: "cus-1"}))
	require.True(t, CanUpdateStatus(confirmed, domain.OrderStatusShipped, domain.Vendor{ID: "ven-1"}))
	require.True(t, CanUpdateStatus(confirmed, domain.OrderStatusShipped, domain.Administrator{}))

	require.False(t, CanUpdateStatus(delivered, domain.OrderStatusShipped, domain.Vendor{ID: "ven-1"}))
	require.True(t, CanUpdateStatus(delivered, domain.OrderStatusShipped, domain.Administrator{}))
}
