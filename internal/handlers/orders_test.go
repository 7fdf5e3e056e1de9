package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/suqline/api/internal/domain"
	"github.com/suqline/api/internal/platform/auth"
	"github.com/suqline/api/internal/services"
)

type stubOrderService struct {
	createFn   func(context.Context, services.CreateOrderCommand) (services.Order, error)
	getFn      func(context.Context, services.GetOrderCommand) (services.Order, error)
	listFn     func(context.Context, services.ListOrdersCommand) (domain.CursorPage[services.Order], error)
	updateFn   func(context.Context, services.UpdateOrderStatusCommand) (services.Order, error)
	cancelFn   func(context.Context, services.CancelOrderCommand) (services.Order, error)
	estimateFn func(context.Context, services.EstimateTotalsCommand) (domain.OrderTotals, error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Get(ctx context.Context, cmd services.GetOrderCommand) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) List(ctx context.Context, cmd services.ListOrdersCommand) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, cmd)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) EstimateTotals(ctx context.Context, cmd services.EstimateTotalsCommand) (domain.OrderTotals, error) {
	if s.estimateFn != nil {
		return s.estimateFn(ctx, cmd)
	}
	return domain.OrderTotals{}, errors.New("not implemented")
}

func newOrderRouter(svc services.OrderService) chi.Router {
	handlers := NewOrderHandlers(svc)
	r := chi.NewRouter()
	r.Route("/orders", handlers.Routes)
	r.Post("/orders:estimate", handlers.EstimateTotals)
	return r
}

func sampleOrder(now time.Time) domain.Order {
	return domain.Order{
		ID:          "ord_01HZX",
		OrderNumber: "SQ-2026-01HZXA",
		CustomerID:  "cus_1",
		Status:      domain.OrderStatusPending,
		Items: []domain.OrderLineItem{
			{VariantID: 42, VendorID: "ven_1", Name: "Blue Mug", Quantity: 2, UnitPrice: 100, Total: 200},
		},
		Contact: domain.OrderContact{Name: "Aisha", Phone: "+25470000000", Address: "12 Main St"},
		Totals:  domain.OrderTotals{Subtotal: 200, DeliveryFee: 20, Commission: 20, Total: 220},
		Metadata: map[string]any{
			"source": "web",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	var received services.CreateOrderCommand
	svc := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			received = cmd
			return sampleOrder(now), nil
		},
	}
	router := newOrderRouter(svc)

	body := `{
		"items": [{"variant_id": 42, "quantity": 2, "unit_price": 100}],
		"customer_name": "Aisha",
		"customer_phone": "+25470000000",
		"customer_address": "12 Main St",
		"delivery_fee": 20,
		"metadata": {"source": "web"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req = req.WithContext(auth.WithActor(req.Context(), domain.Customer{ID: "cus_1"}))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := received.Actor.(domain.Customer); !ok {
		t.Fatalf("expected customer actor, got %T", received.Actor)
	}
	if len(received.Request.Items) != 1 || received.Request.Items[0].VariantID != 42 {
		t.Fatalf("unexpected items: %#v", received.Request.Items)
	}
	if received.Request.DeliveryFee == nil || *received.Request.DeliveryFee != 20 {
		t.Fatalf("expected delivery fee 20, got %v", received.Request.DeliveryFee)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload["id"] != "ord_01HZX" || payload["order_number"] != "SQ-2026-01HZXA" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["status"] != "pending" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	totals, ok := payload["totals"].(map[string]any)
	if !ok || totals["total"] != float64(220) {
		t.Fatalf("unexpected totals: %v", payload["totals"])
	}
}

func TestCreateOrderRejectsMalformedJSON(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderMapsValidationReasons(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (services.Order, error) {
			return services.Order{}, &services.InvalidRequestError{
				Reasons: []string{"items must not be empty", "customer_phone is required"},
			}
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items": []}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload["error"] != "invalid_request" {
		t.Fatalf("unexpected error code: %v", payload["error"])
	}
	reasons, ok := payload["reasons"].([]any)
	if !ok || len(reasons) != 2 {
		t.Fatalf("expected 2 reasons, got %v", payload["reasons"])
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(context.Context, services.GetOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_missing", nil)
	req = req.WithContext(auth.WithActor(req.Context(), domain.Customer{ID: "cus_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload["error"] != "order_not_found" {
		t.Fatalf("unexpected error code: %v", payload["error"])
	}
}

func TestGetOrderForbidden(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(context.Context, services.GetOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrForbidden
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_01HZX", nil)
	req = req.WithContext(auth.WithActor(req.Context(), domain.Customer{ID: "cus_other"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGetOrderUnauthenticated(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(context.Context, services.GetOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrUnauthenticated
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_01HZX", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListOrdersParsesQuery(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	var received services.ListOrdersCommand
	svc := &stubOrderService{
		listFn: func(_ context.Context, cmd services.ListOrdersCommand) (domain.CursorPage[services.Order], error) {
			received = cmd
			return domain.CursorPage[services.Order]{
				Items:         []services.Order{sampleOrder(now)},
				NextPageToken: "next-token",
			}, nil
		},
	}
	router := newOrderRouter(svc)

	target := "/orders?status=pending,confirmed&created_after=2026-04-01T00:00:00Z&page_size=500&page_token=tok&customer_id=cus_9"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithActor(req.Context(), domain.Administrator{}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(received.Status) != 2 || received.Status[0] != domain.OrderStatusPending || received.Status[1] != domain.OrderStatusConfirmed {
		t.Fatalf("unexpected statuses: %v", received.Status)
	}
	if received.DateRange.From == nil || !received.DateRange.From.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date range: %+v", received.DateRange)
	}
	if received.Pagination.PageSize != maxOrderPageSize {
		t.Fatalf("expected page size capped at %d, got %d", maxOrderPageSize, received.Pagination.PageSize)
	}
	if received.Pagination.PageToken != "tok" {
		t.Fatalf("unexpected page token: %q", received.Pagination.PageToken)
	}
	if received.CustomerID != "cus_9" {
		t.Fatalf("unexpected customer filter: %q", received.CustomerID)
	}

	var payload listOrdersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(payload.Orders) != 1 || payload.NextPageToken != "next-token" {
		t.Fatalf("unexpected response: %+v", payload)
	}
}

func TestListOrdersRejectsBadTimestamp(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/orders?created_after=yesterday", nil)
	req = req.WithContext(auth.WithActor(req.Context(), domain.Customer{ID: "cus_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateOrderStatusRequiresStatus(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_01HZX:status", strings.NewReader(`{"status": "  "}`))
	req = req.WithContext(auth.WithActor(req.Context(), domain.Vendor{ID: "ven_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateOrderStatusForwardsExpectedStatus(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	var received services.UpdateOrderStatusCommand
	svc := &stubOrderService{
		updateFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
			received = cmd
			order := sampleOrder(now)
			order.Status = domain.OrderStatusConfirmed
			return order, nil
		},
	}
	router := newOrderRouter(svc)

	body := `{"status": "Confirmed", "expected_status": "pending"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/ord_01HZX:status", strings.NewReader(body))
	req = req.WithContext(auth.WithActor(req.Context(), domain.Vendor{ID: "ven_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if received.OrderID != "ord_01HZX" {
		t.Fatalf("unexpected order id: %q", received.OrderID)
	}
	if received.TargetStatus != domain.OrderStatusConfirmed {
		t.Fatalf("unexpected target status: %q", received.TargetStatus)
	}
	if received.ExpectedStatus == nil || *received.ExpectedStatus != domain.OrderStatusPending {
		t.Fatalf("unexpected expected status: %v", received.ExpectedStatus)
	}
}

func TestUpdateOrderStatusInvalidTransition(t *testing.T) {
	svc := &stubOrderService{
		updateFn: func(context.Context, services.UpdateOrderStatusCommand) (services.Order, error) {
			return services.Order{}, &services.InvalidTransitionError{
				From: domain.OrderStatusPending,
				To:   domain.OrderStatusDelivered,
			}
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_01HZX:status", strings.NewReader(`{"status": "delivered"}`))
	req = req.WithContext(auth.WithActor(req.Context(), domain.Vendor{ID: "ven_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload["error"] != "invalid_transition" {
		t.Fatalf("unexpected error code: %v", payload["error"])
	}
}

func TestUpdateOrderStatusConflict(t *testing.T) {
	svc := &stubOrderService{
		updateFn: func(context.Context, services.UpdateOrderStatusCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderConflict
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_01HZX:status", strings.NewReader(`{"status": "confirmed"}`))
	req = req.WithContext(auth.WithActor(req.Context(), domain.Vendor{ID: "ven_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload["error"] != "order_conflict" {
		t.Fatalf("unexpected error code: %v", payload["error"])
	}
}

func TestCancelOrderWithoutBody(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	var received services.CancelOrderCommand
	svc := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			received = cmd
			order := sampleOrder(now)
			order.Status = domain.OrderStatusCancelled
			return order, nil
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_01HZX:cancel", nil)
	req = req.WithContext(auth.WithActor(req.Context(), domain.Customer{ID: "cus_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if received.Reason != "" {
		t.Fatalf("expected empty reason, got %q", received.Reason)
	}
}

func TestCancelOrderForwardsReason(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	var received services.CancelOrderCommand
	svc := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			received = cmd
			order := sampleOrder(now)
			order.Status = domain.OrderStatusCancelled
			return order, nil
		},
	}
	router := newOrderRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_01HZX:cancel", bytes.NewReader([]byte(`{"reason": "changed my mind"}`)))
	req = req.WithContext(auth.WithActor(req.Context(), domain.Customer{ID: "cus_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if received.Reason != "changed my mind" {
		t.Fatalf("unexpected reason: %q", received.Reason)
	}
	if received.OrderID != "ord_01HZX" {
		t.Fatalf("unexpected order id: %q", received.OrderID)
	}
}

func TestEstimateTotalsReturnsBreakdown(t *testing.T) {
	svc := &stubOrderService{
		estimateFn: func(_ context.Context, cmd services.EstimateTotalsCommand) (domain.OrderTotals, error) {
			if len(cmd.Items) != 1 {
				t.Fatalf("unexpected items: %#v", cmd.Items)
			}
			return domain.OrderTotals{Subtotal: 200, DeliveryFee: 20, Commission: 20, Total: 220}, nil
		},
	}
	router := newOrderRouter(svc)

	body := `{"items": [{"variant_id": 42, "quantity": 2, "unit_price": 100}], "delivery_fee": 20}`
	req := httptest.NewRequest(http.MethodPost, "/orders:estimate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload totalsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload.Total != 220 || payload.Commission != 20 {
		t.Fatalf("unexpected totals: %+v", payload)
	}
}
