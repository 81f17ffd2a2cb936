package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChoice is returned when an option index is out of range or the context
// is not waiting for a choice.
var ErrInvalidChoice = errors.New("invalid choice")

// ErrConversationEnded is returned by any traversal call on a finished context.
var ErrConversationEnded = errors.New("conversation ended")

// ErrMalformedGraph is returned when a dialogue fails validation. It prevents context creation.
var ErrMalformedGraph = errors.New("malformed dialogue graph")

// ErrUnresolvedParticipant is reported when a participant name has no bound handle.
var ErrUnresolvedParticipant = errors.New("unresolved participant")

// ErrTypeMismatch is returned when a variable write does not match the declared kind.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrUnknownVariable is returned when reading a variable that was never declared.
var ErrUnknownVariable = errors.New("unknown variable")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrDialogueNotFound is returned when a loader has no dialogue for an id.
var ErrDialogueNotFound = errors.New("dialogue not found")

// ChoiceError details a rejected ChooseOption call.
type ChoiceError struct {
	Index   int
	Options int
	Reason  string
}

func (e *ChoiceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid choice %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid choice %d: %d options available", e.Index, e.Options)
}

func (e *ChoiceError) Unwrap() error { return ErrInvalidChoice }

// MalformedGraphError lists every structural problem found in a dialogue.
type MalformedGraphError struct {
	DialogueID string
	Problems   []string
}

func (e *MalformedGraphError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("dialogue %q: %s", e.DialogueID, e.Problems[0])
	}
	return fmt.Sprintf("dialogue %q has %d problems:\n- %s", e.DialogueID, len(e.Problems), strings.Join(e.Problems, "\n- "))
}

func (e *MalformedGraphError) Unwrap() error { return ErrMalformedGraph }

// TypeMismatchError details a rejected variable write or comparison.
type TypeMismatchError struct {
	Variable string
	Want     ValueKind
	Got      ValueKind
}

func (e *TypeMismatchError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("type mismatch: %s vs %s", e.Want, e.Got)
	}
	return fmt.Sprintf("variable %q is %s, got %s", e.Variable, e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
