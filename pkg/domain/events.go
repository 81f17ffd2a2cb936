package domain

import (
	"context"
	"time"
)

// HookType defines the category of a lifecycle notification.
type HookType string

const (
	HookNodeEnter    HookType = "node_enter"
	HookOptionChosen HookType = "option_chosen"
	HookFinished     HookType = "finished"
)

// HookBase contains common fields for all lifecycle notifications.
type HookBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       HookType  `json:"type"`
	DialogueID string    `json:"dialogue_id"`
	SessionID  string    `json:"session_id,omitempty"`
}

// NodeEvent reports that a node became current.
type NodeEvent struct {
	HookBase
	NodeID   string   `json:"node_id"`
	NodeKind NodeKind `json:"node_kind"`
	// Auto is true when the node was reached through an automatic selection.
	Auto bool `json:"auto,omitempty"`
}

// ChoiceEvent reports an option picked by the host.
type ChoiceEvent struct {
	HookBase
	NodeID string `json:"node_id"`
	Index  int    `json:"index"`
	Target string `json:"target"`
}

// FinishEvent reports that a conversation reached StatusFinished.
type FinishEvent struct {
	HookBase
	NodeID string `json:"node_id,omitempty"`
	Reason string `json:"reason"`
}

// Finish reasons.
const (
	ReasonEndNode     = "end_node"
	ReasonNoChild     = "no_satisfied_child"
	ReasonReentry     = "reentry"
	ReasonMissingNode = "missing_node"
)

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnOptionChosen func(context.Context, *ChoiceEvent)
	OnFinished     func(context.Context, *FinishEvent)
}

// Merge returns hooks calling h first, then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:    chain(h.OnNodeEnter, other.OnNodeEnter),
		OnOptionChosen: chain(h.OnOptionChosen, other.OnOptionChosen),
		OnFinished:     chain(h.OnFinished, other.OnFinished),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
