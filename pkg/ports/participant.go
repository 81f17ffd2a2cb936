package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Participants are opaque host handles bound in a Data Bag. The engine discovers what
// a handle can do by type assertion against the capability interfaces below; a handle
// lacking the capability a condition needs makes that condition false.

// ValueProvider exposes named values compared by participant_value conditions.
type ValueProvider interface {
	DialogueValue(name string) (domain.Value, bool)
}

// ConditionChecker answers named checks for participant_check conditions.
type ConditionChecker interface {
	CheckCondition(ctx context.Context, name string) bool
}

// EventReceiver receives notify events.
type EventReceiver interface {
	OnDialogueEvent(ctx context.Context, name string)
}

// Memory is long-term memory of visited nodes, shared by every context of a process
// (or of a save game). Implementations must be safe for concurrent use.
type Memory interface {
	WasVisited(dialogueID, nodeID string) bool
	MarkVisited(dialogueID, nodeID string)
}
