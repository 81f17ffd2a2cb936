package main

import (
	"fmt"
	"os"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <dialogue>",
	Short: "Export a dialogue as a Mermaid diagram",
	Long:  `Loads a dialogue and prints a Mermaid diagram (graph TD) of its nodes and options.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")

		engine, err := parley.Open(dir)
		if err != nil {
			fmt.Printf("Error initializing parley: %v\n", err)
			os.Exit(1)
		}

		d, err := engine.Dialogue(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading dialogue: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(d, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
