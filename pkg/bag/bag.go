// Package bag implements the Data Bag: typed variables and participant handles
// consulted by conditions and mutated by events.
//
// A Bag is safe for concurrent use, so one bag may back several contexts when the
// host wants shared world state. Writes are visible to every context immediately.
package bag

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Bag holds variables and participant handles.
// The bag never owns participants; hosts Unbind them when their lifetime ends.
type Bag struct {
	mu           sync.RWMutex
	vars         map[string]domain.Value
	participants map[string]any
}

// New creates an empty bag.
func New() *Bag {
	return &Bag{
		vars:         make(map[string]domain.Value),
		participants: make(map[string]any),
	}
}

// ForDialogue creates a bag with the dialogue's variable declarations applied.
func ForDialogue(d *domain.Dialogue) *Bag {
	b := New()
	b.DeclareAll(d.Variables)
	return b
}

// Declare registers a variable with its default value. The default fixes the kind.
// Declaring an existing variable is a no-op, so shared bags keep their current values.
func (b *Bag) Declare(name string, def domain.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.vars[name]; !ok {
		b.vars[name] = def.Clone()
	}
}

// DeclareAll applies a list of declarations.
func (b *Bag) DeclareAll(decls []domain.VariableDecl) {
	for _, d := range decls {
		b.Declare(d.Name, d.Default)
	}
}

// Get returns a variable or ErrUnknownVariable.
func (b *Bag) Get(name string) (domain.Value, error) {
	v, ok := b.Lookup(name)
	if !ok {
		return domain.Value{}, fmt.Errorf("%w: %s", domain.ErrUnknownVariable, name)
	}
	return v, nil
}

// Lookup returns a copy of a variable and whether it exists.
func (b *Bag) Lookup(name string) (domain.Value, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.vars[name]
	return v.Clone(), ok
}

// Set writes a variable. A write with a kind other than the declared one is rejected
// and the bag is left unchanged. Writing an undeclared variable declares it.
func (b *Bag) Set(name string, v domain.Value) error {
	if v.IsZero() {
		return fmt.Errorf("variable %q: value has no kind", name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.vars[name]; ok && cur.Kind != v.Kind {
		return &domain.TypeMismatchError{Variable: name, Want: cur.Kind, Got: v.Kind}
	}
	b.vars[name] = v.Clone()
	return nil
}

// Modify adds delta to a numeric variable. The delta must have the variable's kind.
// An undeclared variable starts from zero.
func (b *Bag) Modify(name string, delta domain.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.vars[name]
	if !ok {
		switch delta.Kind {
		case domain.KindInt:
			cur = domain.Int(0)
		case domain.KindFloat:
			cur = domain.Float(0)
		default:
			return &domain.TypeMismatchError{Variable: name, Want: domain.KindInt, Got: delta.Kind}
		}
	}

	switch {
	case cur.Kind == domain.KindInt && delta.Kind == domain.KindInt:
		cur.Int += delta.Int
	case cur.Kind == domain.KindFloat && delta.Kind == domain.KindFloat:
		cur.Float += delta.Float
	default:
		return &domain.TypeMismatchError{Variable: name, Want: cur.Kind, Got: delta.Kind}
	}
	b.vars[name] = cur
	return nil
}

// AddToSet inserts member into a set variable. Adding an existing member is a no-op.
func (b *Bag) AddToSet(name, member string) error {
	return b.updateSet(name, func(set []string) []string {
		if slices.Contains(set, member) {
			return set
		}
		return append(set, member)
	})
}

// RemoveFromSet removes member from a set variable. Removing a missing member is a no-op.
func (b *Bag) RemoveFromSet(name, member string) error {
	return b.updateSet(name, func(set []string) []string {
		return slices.DeleteFunc(set, func(m string) bool { return m == member })
	})
}

func (b *Bag) updateSet(name string, fn func([]string) []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.vars[name]
	if !ok {
		cur = domain.Set()
	}
	if cur.Kind != domain.KindSet {
		return &domain.TypeMismatchError{Variable: name, Want: cur.Kind, Got: domain.KindSet}
	}
	cur = cur.Clone()
	cur.Set = fn(cur.Set)
	b.vars[name] = cur
	return nil
}

// Bind associates a participant name with an external handle.
func (b *Bag) Bind(name string, participant any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.participants[name] = participant
}

// Unbind forgets a participant.
func (b *Bag) Unbind(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.participants, name)
}

// Participant resolves a participant handle by name.
func (b *Bag) Participant(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.participants[name]
	return p, ok && p != nil
}

// ParticipantNames returns the bound names, sorted.
func (b *Bag) ParticipantNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.participants))
}

// Variables returns a deep copy of every variable.
func (b *Bag) Variables() map[string]domain.Value {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]domain.Value, len(b.vars))
	for k, v := range b.vars {
		out[k] = v.Clone()
	}
	return out
}

// Restore overwrites variables from a snapshot. Variables absent from vars keep
// their current values. Participants are left untouched.
func (b *Bag) Restore(vars map[string]domain.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range vars {
		b.vars[k] = v.Clone()
	}
}
