package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// DialogueLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.DialogueLoader.
func DialogueLoaderContractTest(t *testing.T, loader ports.DialogueLoader, setupData map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetDialogue_Success", func(t *testing.T) {
		for id, expectedContent := range setupData {
			content, err := loader.GetDialogue(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error getting dialogue %s: %v", id, err)
			}
			if expectedContent != nil && string(content) != string(expectedContent) {
				t.Errorf("content mismatch for %s. got %q, want %q", id, content, expectedContent)
			}
		}
	})

	t.Run("GetDialogue_NotFound", func(t *testing.T) {
		_, err := loader.GetDialogue(ctx, "non-existent-dialogue")
		if !errors.Is(err, domain.ErrDialogueNotFound) {
			t.Errorf("expected ErrDialogueNotFound, got %v", err)
		}
	})

	t.Run("ListDialogues", func(t *testing.T) {
		ids, err := loader.ListDialogues(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing dialogues: %v", err)
		}

		if len(ids) != len(setupData) {
			t.Errorf("expected %d dialogues, got %d", len(setupData), len(ids))
		}

		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for id := range setupData {
			if !lookup[id] {
				t.Errorf("dialogue %s missing from list", id)
			}
		}
	})
}
