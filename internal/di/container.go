// Package di assembles the runtime object graph: repositories, services,
// event publishing, and the HTTP router.
package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/suqline/api/internal/handlers"
	"github.com/suqline/api/internal/platform/auth"
	"github.com/suqline/api/internal/platform/config"
	pfirestore "github.com/suqline/api/internal/platform/firestore"
	"github.com/suqline/api/internal/platform/idempotency"
	"github.com/suqline/api/internal/platform/jobs"
	"github.com/suqline/api/internal/platform/observability"
	"github.com/suqline/api/internal/pricing"
	"github.com/suqline/api/internal/repositories"
	firestoreRepo "github.com/suqline/api/internal/repositories/firestore"
	memoryRepo "github.com/suqline/api/internal/repositories/memory"
	"github.com/suqline/api/internal/services"
)

// Container wires repositories, services, and transport for runtime use.
type Container struct {
	Config      config.Config
	Orders      services.OrderService
	Idempotency idempotency.Store
	Router      chi.Router

	firestoreProvider *pfirestore.Provider
	pubsubClient      *pubsub.Client
	pubsubTopic       *pubsub.Topic
}

// NewContainer constructs the runtime dependencies from configuration.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{Config: cfg}

	engine, err := pricing.NewEngine(cfg.Orders.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("build pricing engine: %w", err)
	}

	ordersRepo, readiness, err := c.buildOrderRepository(ctx, cfg, engine)
	if err != nil {
		return nil, err
	}

	events, err := c.buildEventPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	serviceLogger := logger.Named("orders")
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:            ordersRepo,
		Pricing:           engine,
		OrderNumberPrefix: cfg.Orders.NumberPrefix,
		Events:            events,
		Logger: func(_ context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			serviceLogger.Info("order service event", zFields...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build order service: %w", err)
	}
	c.Orders = orderService

	authenticator, err := auth.NewAuthenticator([]byte(cfg.Auth.SigningSecret), auth.WithRoleClaim(cfg.Auth.RoleClaim))
	if err != nil {
		return nil, fmt.Errorf("build authenticator: %w", err)
	}

	idempotencyStore, err := c.buildIdempotencyStore()
	if err != nil {
		return nil, err
	}
	c.Idempotency = idempotencyStore

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware(projectID),
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		authenticator.Middleware(),
		handlers.RateLimitMiddleware(cfg.RateLimits, time.Now),
		idempotency.Middleware(idempotencyStore,
			idempotency.WithHeader(cfg.Idempotency.Header),
			idempotency.WithTTL(cfg.Idempotency.TTL),
			idempotency.WithLogger(logger.Named("idempotency")),
		),
	}

	healthOpts := make([]handlers.HealthOption, 0, 1)
	if readiness != nil {
		healthOpts = append(healthOpts, handlers.WithReadinessCheck(readiness))
	}

	c.Router = handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithOrderHandlers(handlers.NewOrderHandlers(orderService)),
	)

	return c, nil
}

// Close releases repository clients and the event publisher.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var errs []error
	if c.pubsubTopic != nil {
		c.pubsubTopic.Stop()
	}
	if c.pubsubClient != nil {
		if err := c.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if c.firestoreProvider != nil {
		if err := c.firestoreProvider.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close firestore provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) buildOrderRepository(ctx context.Context, cfg config.Config, engine *pricing.Engine) (repositories.OrderRepository, func() error, error) {
	switch cfg.Orders.RepositoryDriver {
	case config.RepositoryDriverMemory:
		repo, err := memoryRepo.NewOrderRepository(engine)
		if err != nil {
			return nil, nil, fmt.Errorf("build memory order repository: %w", err)
		}
		return repo, nil, nil
	case config.RepositoryDriverFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect firestore: %w", err)
		}
		c.firestoreProvider = provider

		repo, err := firestoreRepo.NewOrderRepository(provider, engine)
		if err != nil {
			return nil, nil, fmt.Errorf("build firestore order repository: %w", err)
		}
		readiness := func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := provider.Client(checkCtx)
			return err
		}
		return repo, readiness, nil
	default:
		return nil, nil, fmt.Errorf("unknown order repository driver %q", cfg.Orders.RepositoryDriver)
	}
}

func (c *Container) buildIdempotencyStore() (idempotency.Store, error) {
	if c.firestoreProvider != nil {
		store, err := idempotency.NewFirestoreStore(c.firestoreProvider)
		if err != nil {
			return nil, fmt.Errorf("build idempotency store: %w", err)
		}
		return store, nil
	}
	return idempotency.NewMemoryStore(), nil
}

func (c *Container) buildEventPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (services.OrderEventPublisher, error) {
	if cfg.PubSub.ProjectID == "" {
		logger.Info("pubsub project not configured; order events disabled")
		return nil, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("build pubsub client: %w", err)
	}
	c.pubsubClient = client

	topic := client.Topic(cfg.PubSub.OrderEventsTopic)
	c.pubsubTopic = topic

	publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
	if err != nil {
		return nil, fmt.Errorf("build order event publisher: %w", err)
	}
	return publisher, nil
}
