// Package registry holds the custom conditions and events a host makes available to
// dialogues. Dialogues refer to them by name; the registry resolves the name to a handle.
package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/parley/pkg/ports"
)

// Registry manages named custom conditions and events.
type Registry struct {
	mu         sync.RWMutex
	conditions map[string]ports.CustomCondition
	events     map[string]ports.CustomEvent
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conditions: make(map[string]ports.CustomCondition),
		events:     make(map[string]ports.CustomEvent),
	}
}

// RegisterCondition adds a custom condition.
// If a condition with the same name exists, it is overwritten.
func (r *Registry) RegisterCondition(name string, c ports.CustomCondition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[name] = c
}

// RegisterEvent adds a custom event.
// If an event with the same name exists, it is overwritten.
func (r *Registry) RegisterEvent(name string, e ports.CustomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[name] = e
}

// Condition looks up a custom condition by name.
func (r *Registry) Condition(name string) (ports.CustomCondition, error) {
	if r == nil {
		return nil, fmt.Errorf("custom condition not found: %s", name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conditions[name]
	if !ok {
		return nil, fmt.Errorf("custom condition not found: %s", name)
	}
	return c, nil
}

// Event looks up a custom event by name.
func (r *Registry) Event(name string) (ports.CustomEvent, error) {
	if r == nil {
		return nil, fmt.Errorf("custom event not found: %s", name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[name]
	if !ok {
		return nil, fmt.Errorf("custom event not found: %s", name)
	}
	return e, nil
}

// Names returns the sorted names of registered conditions and events.
func (r *Registry) Names() (conditions, events []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.conditions)), slices.Sorted(maps.Keys(r.events))
}
