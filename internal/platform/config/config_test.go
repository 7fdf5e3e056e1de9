package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_AUTH_SIGNING_SECRET": "local-secret",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Orders.RepositoryDriver != RepositoryDriverMemory {
		t.Errorf("expected memory driver without firestore project, got %s", cfg.Orders.RepositoryDriver)
	}
	if cfg.Orders.CommissionRate != "0.10" {
		t.Errorf("unexpected default commission rate: %s", cfg.Orders.CommissionRate)
	}
	if cfg.Orders.NumberPrefix != "SQ" {
		t.Errorf("unexpected default order number prefix: %s", cfg.Orders.NumberPrefix)
	}
	if cfg.Auth.RoleClaim != "role" {
		t.Errorf("unexpected default role claim: %s", cfg.Auth.RoleClaim)
	}
	if cfg.PubSub.OrderEventsTopic != "order-events" {
		t.Errorf("unexpected default topic: %s", cfg.PubSub.OrderEventsTopic)
	}
	if cfg.RateLimits.DefaultPerMinute != 120 {
		t.Errorf("unexpected default rate limit: %d", cfg.RateLimits.DefaultPerMinute)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Errorf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Errorf("unexpected idempotency ttl: %s", cfg.Idempotency.TTL)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                "9090",
		"API_SERVER_READ_TIMEOUT":        "20s",
		"API_SERVER_WRITE_TIMEOUT":       "25s",
		"API_SERVER_IDLE_TIMEOUT":        "2m",
		"API_FIRESTORE_PROJECT_ID":       "sq-fire",
		"API_FIRESTORE_EMULATOR_HOST":    "127.0.0.1:8200",
		"API_PUBSUB_ORDER_EVENTS_TOPIC":  "orders-prod",
		"API_AUTH_SIGNING_SECRET":        "prod-secret",
		"API_AUTH_ROLE_CLAIM":            "roles",
		"API_ORDERS_COMMISSION_RATE":     "0.075",
		"API_ORDERS_NUMBER_PREFIX":       "MKT",
		"API_RATELIMIT_DEFAULT_PER_MIN":  "60",
		"API_RATELIMIT_AUTH_PER_MIN":     "600",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != 25*time.Second {
		t.Errorf("unexpected write timeout: %s", cfg.Server.WriteTimeout)
	}
	if cfg.Orders.RepositoryDriver != RepositoryDriverFirestore {
		t.Errorf("expected firestore driver with project configured, got %s", cfg.Orders.RepositoryDriver)
	}
	if cfg.PubSub.ProjectID != "sq-fire" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.OrderEventsTopic != "orders-prod" {
		t.Errorf("unexpected topic: %s", cfg.PubSub.OrderEventsTopic)
	}
	if cfg.Orders.CommissionRate != "0.075" {
		t.Errorf("unexpected commission rate: %s", cfg.Orders.CommissionRate)
	}
	if cfg.Orders.NumberPrefix != "MKT" {
		t.Errorf("unexpected number prefix: %s", cfg.Orders.NumberPrefix)
	}
	if cfg.RateLimits.AuthenticatedPerMinute != 600 {
		t.Errorf("unexpected authenticated rate limit: %d", cfg.RateLimits.AuthenticatedPerMinute)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "API_AUTH_SIGNING_SECRET=dotenv-secret\nAPI_ORDERS_NUMBER_PREFIX=\"DOT\"\n# comment\nexport API_SERVER_PORT=7070\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Auth.SigningSecret != "dotenv-secret" {
		t.Errorf("unexpected signing secret: %s", cfg.Auth.SigningSecret)
	}
	if cfg.Orders.NumberPrefix != "DOT" {
		t.Errorf("expected quotes stripped, got %s", cfg.Orders.NumberPrefix)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected export prefix handled, got %s", cfg.Server.Port)
	}
}

func TestLoadEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("API_SERVER_PORT=7070\nAPI_AUTH_SIGNING_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(
		WithEnvMap(map[string]string{"API_SERVER_PORT": "9999"}),
		WithoutSystemEnv(),
		WithEnvFile(envFile),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9999" {
		t.Errorf("expected env map to win, got %s", cfg.Server.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := validationErr.Fields()
	if len(fields) == 0 {
		t.Fatalf("expected missing fields")
	}
	found := false
	for _, field := range fields {
		if field == "Auth.SigningSecret" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Auth.SigningSecret to be reported, got %v", fields)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	_, err := Load(WithEnvMap(map[string]string{
		"API_AUTH_SIGNING_SECRET": "s",
		"API_ORDERS_REPOSITORY":   "mysql",
	}), WithoutSystemEnv(), WithEnvFile(""))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
