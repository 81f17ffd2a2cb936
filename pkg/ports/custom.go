package ports

import (
	"context"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
)

// Scope is the view of the running conversation handed to custom logic.
// It never exposes the traversal cursor for writing.
type Scope interface {
	DialogueID() string
	NodeID() string
	// Params are the parameters authored on the condition or event.
	Params() map[string]any
	Variable(name string) (domain.Value, bool)
	SetVariable(name string, v domain.Value) error
	Visited(nodeID string) bool
	Participant(name string) (any, bool)
	Logger() *slog.Logger
}

// CustomCondition is a host-supplied predicate registered by name.
// participant is nil when the condition names none and the node has no speaker.
type CustomCondition interface {
	IsSatisfied(ctx context.Context, scope Scope, participant any) bool
}

// CustomEvent is a host-supplied side effect registered by name.
type CustomEvent interface {
	Enter(ctx context.Context, scope Scope, participant any)
}

// ConditionFunc adapts a function to CustomCondition.
type ConditionFunc func(ctx context.Context, scope Scope, participant any) bool

func (f ConditionFunc) IsSatisfied(ctx context.Context, scope Scope, participant any) bool {
	return f(ctx, scope, participant)
}

// EventFunc adapts a function to CustomEvent.
type EventFunc func(ctx context.Context, scope Scope, participant any)

func (f EventFunc) Enter(ctx context.Context, scope Scope, participant any) {
	f(ctx, scope, participant)
}
