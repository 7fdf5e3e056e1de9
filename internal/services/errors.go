package services

import (
	"errors"
	"fmt"
	"strings"

	domain "github.com/suqline/api/internal/domain"
)

var (
	// ErrUnauthenticated signals the operation requires a signed-in actor.
	ErrUnauthenticated = errors.New("order: authentication required")
	// ErrForbidden signals the actor is known but not allowed to perform the
	// operation on this order.
	ErrForbidden = errors.New("order: forbidden")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderInvalidTransition indicates an illegal status transition was
	// attempted.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
)

// InvalidRequestError carries every validation violation found in a request.
// It unwraps to ErrOrderInvalidInput so callers can branch on the sentinel
// while still rendering the full reason list.
type InvalidRequestError struct {
	Reasons []string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%v: %s", ErrOrderInvalidInput, strings.Join(e.Reasons, "; "))
}

func (e *InvalidRequestError) Unwrap() error { return ErrOrderInvalidInput }

// InvalidTransitionError reports a structurally illegal status change. It
// unwraps to ErrOrderInvalidTransition.
type InvalidTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%v: %s to %s", ErrOrderInvalidTransition, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrOrderInvalidTransition }
