// Package history provides long-term memory: which nodes of which dialogues were ever
// visited, across every context.
package history

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"
)

// Memory records visited nodes per dialogue id.
type Memory struct {
	mu      sync.RWMutex
	visited map[string]map[string]struct{}
}

// New creates an empty memory.
func New() *Memory {
	return &Memory{visited: make(map[string]map[string]struct{})}
}

// WasVisited reports whether nodeID of dialogueID was ever entered.
func (m *Memory) WasVisited(dialogueID, nodeID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.visited[dialogueID][nodeID]
	return ok
}

// MarkVisited records an entry.
func (m *Memory) MarkVisited(dialogueID, nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nodes, ok := m.visited[dialogueID]
	if !ok {
		nodes = make(map[string]struct{})
		m.visited[dialogueID] = nodes
	}
	nodes[nodeID] = struct{}{}
}

// Forget drops everything remembered about a dialogue.
func (m *Memory) Forget(dialogueID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.visited, dialogueID)
}

// Visited returns the sorted visited node ids of a dialogue.
func (m *Memory) Visited(dialogueID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.visited[dialogueID]))
}

// MarshalJSON encodes the memory as dialogue id -> sorted node ids, for save games.
func (m *Memory) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	out := make(map[string][]string, len(m.visited))
	for d, nodes := range m.visited {
		out[d] = slices.Sorted(maps.Keys(nodes))
	}
	m.mu.RUnlock()
	return json.Marshal(out)
}

// UnmarshalJSON replaces the memory content.
func (m *Memory) UnmarshalJSON(data []byte) error {
	var in map[string][]string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	visited := make(map[string]map[string]struct{}, len(in))
	for d, ids := range in {
		nodes := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			nodes[id] = struct{}{}
		}
		visited[d] = nodes
	}
	m.mu.Lock()
	m.visited = visited
	m.mu.Unlock()
	return nil
}
