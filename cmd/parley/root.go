package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley plays branching dialogues written as Markdown, YAML or JSON",
	Long: `Parley loads dialogue graphs from a directory and plays them on the terminal,
over HTTP or as tools for MCP agents.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; the process environment still applies.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the dialogues")
	rootCmd.PersistentFlags().String("log-level", "", "Log level written to stderr (debug, info, warn, error)")
}

// repoPath returns --dir, or the first argument when the flag was not set.
func repoPath(cmd *cobra.Command, args []string) string {
	dir, _ := cmd.Flags().GetString("dir")
	if !cmd.Flags().Changed("dir") && len(args) > 0 {
		return args[0]
	}
	return dir
}
