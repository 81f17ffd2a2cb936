package main

import (
	"fmt"
	"os"

	"github.com/aretw0/parley/internal/cli"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:     "play [dir]",
	Aliases: []string{"run"},
	Short:   "Play a dialogue on the terminal",
	Long:    `Starts a conversation with a dialogue from the directory and reads choices from stdin.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{RepoPath: repoPath(cmd, args)}
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		opts.Dialogue, _ = cmd.Flags().GetString("dialogue")
		opts.StartNode, _ = cmd.Flags().GetString("start")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Plain, _ = cmd.Flags().GetBool("plain")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Vars, _ = cmd.Flags().GetString("vars")
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.RedisURL, _ = cmd.Flags().GetString("redis")
		if opts.RedisURL == "" {
			opts.RedisURL = os.Getenv("REDIS_URL")
		}

		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().String("dialogue", "", "Dialogue to play (required when the directory holds several)")
	playCmd.Flags().String("start", "", "Start node, overriding the dialogue's start list")
	playCmd.Flags().Bool("headless", false, "Run without banner or prompts; single options are chosen automatically")
	playCmd.Flags().BoolP("watch", "w", false, "Run in development mode with hot-reload")
	playCmd.Flags().Bool("plain", false, "Disable markdown rendering")
	playCmd.Flags().Bool("debug", false, "Log every lifecycle event to stderr")
	playCmd.Flags().String("vars", "", `Initial variables as a JSON object (e.g. '{"gold": 3}')`)
	playCmd.Flags().StringP("session", "s", "", "Persist the conversation under this session id")
	playCmd.Flags().Bool("fresh", false, "Discard the stored session before playing")
	playCmd.Flags().String("redis", "", "Redis URL for session storage (defaults to $REDIS_URL)")

	// Playing is the default command.
	rootCmd.Run = playCmd.Run
	rootCmd.Flags().AddFlagSet(playCmd.Flags())
}
