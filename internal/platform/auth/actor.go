// Package auth resolves the acting principal from bearer tokens and carries
// it through the request context. Requests without credentials proceed as
// guests; only malformed or forged credentials are rejected at the edge.
package auth

import (
	"context"

	domain "github.com/suqline/api/internal/domain"
)

type contextKey string

const actorContextKey contextKey = "github.com/suqline/api/internal/platform/auth/actor"

// WithActor stores the actor within the context for downstream handlers.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext retrieves the actor previously stored in context. Absent
// middleware the request is treated as a guest.
func ActorFromContext(ctx context.Context) domain.Actor {
	if actor, ok := ctx.Value(actorContextKey).(domain.Actor); ok && actor != nil {
		return actor
	}
	return domain.Guest{}
}
