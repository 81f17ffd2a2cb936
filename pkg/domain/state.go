package domain

import "time"

// Status is the traversal state of a context.
type Status string

const (
	// StatusAtNode is transient: the context is entering a node.
	StatusAtNode Status = "at_node"
	// StatusAwaitingChoice means options are available and the host must choose one.
	StatusAwaitingChoice Status = "awaiting_choice"
	// StatusFinished is terminal.
	StatusFinished Status = "finished"
)

// Snapshot captures everything needed to resume a conversation later.
// The dialogue itself is referenced by id, never copied.
type Snapshot struct {
	SessionID  string `json:"session_id,omitempty"`
	DialogueID string `json:"dialogue_id"`

	Status        Status `json:"status"`
	CurrentNodeID string `json:"current_node_id,omitempty"`

	// Step counts external calls (start, choices) that moved the cursor.
	Step int `json:"step"`

	// SequenceIndex is the active line of a sequence node.
	SequenceIndex int `json:"sequence_index,omitempty"`

	// History lists entered node ids in order.
	History []string `json:"history,omitempty"`

	// SelectorMemory holds, per random selector node, the targets already picked.
	SelectorMemory map[string][]string `json:"selector_memory,omitempty"`

	Variables map[string]Value `json:"variables,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe for independent mutation.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	next := *s
	next.History = append([]string(nil), s.History...)
	if s.SelectorMemory != nil {
		next.SelectorMemory = make(map[string][]string, len(s.SelectorMemory))
		for k, v := range s.SelectorMemory {
			next.SelectorMemory[k] = append([]string(nil), v...)
		}
	}
	if s.Variables != nil {
		next.Variables = make(map[string]Value, len(s.Variables))
		for k, v := range s.Variables {
			next.Variables[k] = v.Clone()
		}
	}
	return &next
}
