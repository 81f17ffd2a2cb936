package domain

// SnapshotDiff represents the changes between two snapshots of one conversation.
// It is serialized to JSON for partial updates on streaming clients.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string `json:"current_node_id,omitempty"`
	Status        *Status `json:"status,omitempty"`
	SequenceIndex *int    `json:"sequence_index,omitempty"`

	// Variables contains only changed, added or deleted variables.
	// A deleted variable is present with a nil value.
	Variables map[string]*Value `json:"variables,omitempty"`

	// History contains node ids appended since the old snapshot.
	History *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents changes to the visit history.
type HistoryDelta struct {
	Appended []string `json:"appended"`
	// Reset is set when the old history is not a prefix of the new one.
	Reset bool `json:"reset,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, the diff describes the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{SessionID: newSnap.SessionID}

	if oldSnap == nil || oldSnap.CurrentNodeID != newSnap.CurrentNodeID {
		id := newSnap.CurrentNodeID
		diff.CurrentNodeID = &id
	}
	if oldSnap == nil || oldSnap.Status != newSnap.Status {
		status := newSnap.Status
		diff.Status = &status
	}
	if (oldSnap == nil && newSnap.SequenceIndex != 0) || (oldSnap != nil && oldSnap.SequenceIndex != newSnap.SequenceIndex) {
		idx := newSnap.SequenceIndex
		diff.SequenceIndex = &idx
	}

	diff.Variables = diffVariables(oldSnap, newSnap)
	diff.History = diffHistory(oldSnap, newSnap)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVariables(oldSnap, newSnap *Snapshot) map[string]*Value {
	delta := make(map[string]*Value)

	var old map[string]Value
	if oldSnap != nil {
		old = oldSnap.Variables
	}

	for k, v := range newSnap.Variables {
		if prev, ok := old[k]; !ok || !prev.Equal(v) {
			v := v
			delta[k] = &v
		}
	}
	for k := range old {
		if _, ok := newSnap.Variables[k]; !ok {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffHistory(oldSnap, newSnap *Snapshot) *HistoryDelta {
	if oldSnap == nil {
		if len(newSnap.History) == 0 {
			return nil
		}
		return &HistoryDelta{Appended: newSnap.History}
	}

	oldLen, newLen := len(oldSnap.History), len(newSnap.History)
	if newLen >= oldLen && isPrefix(oldSnap.History, newSnap.History) {
		if newLen == oldLen {
			return nil
		}
		return &HistoryDelta{Appended: newSnap.History[oldLen:]}
	}
	return &HistoryDelta{Appended: newSnap.History, Reset: true}
}

func isPrefix(prefix, s []string) bool {
	for i := range prefix {
		if prefix[i] != s[i] {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		d.SequenceIndex == nil &&
		len(d.Variables) == 0 &&
		d.History == nil
}
