package ports

import "context"

// DialogueLoader defines how the engine retrieves dialogue definitions.
// This allows the storage layer (Loam, FS, Memory) to be decoupled from the compiler.
type DialogueLoader interface {
	// GetDialogue retrieves the raw document of a dialogue by ID.
	// It returns the raw bytes (which the compiler will parse) or an error wrapping
	// domain.ErrDialogueNotFound.
	GetDialogue(ctx context.Context, id string) ([]byte, error)

	// ListDialogues returns the IDs of every dialogue the loader can serve.
	ListDialogues(ctx context.Context) ([]string, error)
}

// Watchable is implemented by loaders that can report changed dialogues.
// The channel carries dialogue ids and closes when ctx is done.
type Watchable interface {
	Watch(ctx context.Context) (<-chan string, error)
}
