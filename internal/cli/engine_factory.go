package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/observability"
)

// createEngine opens the dialogue repository with standard CLI conventions.
func createEngine(opts RunOptions, logger *slog.Logger) (*parley.Engine, error) {
	engineOpts := []parley.Option{
		parley.WithLogger(logger),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, parley.WithLifecycleHooks(observability.LoggingHooks(logger)))
	}

	engine, err := parley.Open(opts.RepoPath, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// pickDialogue returns requested, or the only dialogue of the repository when empty.
func pickDialogue(ctx context.Context, engine *parley.Engine, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	ids, err := engine.Dialogues(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list dialogues: %w", err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no dialogues found")
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("several dialogues found, pick one with --dialogue: %s", strings.Join(ids, ", "))
}
