package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/parley"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check every dialogue for consistency",
	Long:  `Compiles every dialogue of the directory and reports dangling links, type errors and unreachable nodes.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd.Context(), repoPath(cmd, args)); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All dialogues are valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(ctx context.Context, dir string) error {
	engine, err := parley.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}

	ids, err := engine.Dialogues(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no dialogues found in %s", dir)
	}

	failed := 0
	for _, id := range ids {
		in, err := engine.Inspect(ctx, id)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Printf("✓ %s (%d nodes)\n", id, len(in.Dialogue.Nodes))
		if len(in.Unreachable) > 0 {
			fmt.Printf("  warning: unreachable nodes: %s\n", strings.Join(in.Unreachable, ", "))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d dialogues are invalid", failed, len(ids))
	}
	return nil
}
