package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Loader implements ports.DialogueLoader using an in-memory map of raw documents.
type Loader struct {
	mu        sync.RWMutex
	dialogues map[string][]byte
}

// NewLoader creates a new Loader with the provided raw documents (YAML or JSON).
func NewLoader(data map[string]string) *Loader {
	dialogues := make(map[string][]byte, len(data))
	for k, v := range data {
		dialogues[k] = []byte(v)
	}
	return &Loader{dialogues: dialogues}
}

// Add registers or replaces a raw document.
func (l *Loader) Add(id string, doc []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dialogues[id] = append([]byte(nil), doc...)
}

// GetDialogue retrieves the raw document of a dialogue by ID.
func (l *Loader) GetDialogue(ctx context.Context, id string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	content, ok := l.dialogues[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDialogueNotFound, id)
	}
	return content, nil
}

// ListDialogues returns all available dialogue IDs.
func (l *Loader) ListDialogues(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.dialogues))
	for k := range l.dialogues {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
