package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	domain "github.com/suqline/api/internal/domain"
	"github.com/suqline/api/internal/platform/auth"
)

func newCountingHandler(calls *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ord_1"}`))
	})
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	var calls atomic.Int64
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return now }))(newCountingHandler(&calls))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`))
		req.Header.Set(HeaderName, "key-1")
		req = req.WithContext(auth.WithActor(req.Context(), domain.Customer{ID: "cus_1"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	if first.Header().Get("X-Idempotent-Replay") != "" {
		t.Fatalf("first response must not be a replay")
	}

	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatalf("expected replay header on second response")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
	if calls.Load() != 1 {
		t.Fatalf("handler should run once, ran %d times", calls.Load())
	}
}

func TestMiddlewareRejectsKeyReuseWithDifferentBody(t *testing.T) {
	var calls atomic.Int64
	handler := Middleware(NewMemoryStore())(newCountingHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[1]}`))
	first.Header.Set(HeaderName, "key-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[2]}`))
	second.Header.Set(HeaderName, "key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", rec.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler should run once, ran %d times", calls.Load())
	}
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	var calls atomic.Int64
	handler := Middleware(NewMemoryStore())(newCountingHandler(&calls))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("handler should run per request without a key, ran %d times", calls.Load())
	}
}

func TestMiddlewareScopesKeysByActor(t *testing.T) {
	var calls atomic.Int64
	handler := Middleware(NewMemoryStore())(newCountingHandler(&calls))

	send := func(actor domain.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
		req.Header.Set(HeaderName, "shared-key")
		req = req.WithContext(auth.WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(domain.Customer{ID: "cus_1"}); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := send(domain.Customer{ID: "cus_2"}); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for other customer, got %d", rec.Code)
	}
	if calls.Load() != 2 {
		t.Fatalf("keys must be scoped per actor, handler ran %d times", calls.Load())
	}
}

func TestMiddlewareIgnoresReadRequests(t *testing.T) {
	var calls atomic.Int64
	handler := Middleware(NewMemoryStore())(newCountingHandler(&calls))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(HeaderName, "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}
	if calls.Load() != 2 {
		t.Fatalf("GET requests must bypass idempotency, handler ran %d times", calls.Load())
	}
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	if _, err := store.Reserve(context.Background(), "key-1", "fp", now, time.Minute); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := store.Reserve(context.Background(), "key-2", "fp", now, time.Hour); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	removed, err := store.CleanupExpired(context.Background(), now.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
