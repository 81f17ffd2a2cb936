package cli

import (
	"fmt"
	"io"
	"os"
)

// RunOptions contains all the configuration for the play command.
type RunOptions struct {
	RepoPath  string
	Dialogue  string
	StartNode string
	Headless  bool
	Watch     bool
	Plain     bool
	Debug     bool
	LogLevel  string
	Vars      string // raw JSON object of variable overrides
	SessionID string
	Fresh     bool
	RedisURL  string

	Stdin  io.Reader
	Stdout io.Writer
}

func (o RunOptions) input() io.Reader {
	if o.Stdin != nil {
		return o.Stdin
	}
	return os.Stdin
}

func (o RunOptions) output() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

// Execute handles the play command, dispatching to session or watch mode.
func Execute(opts RunOptions) error {
	if opts.Watch {
		if opts.Headless {
			return fmt.Errorf("--watch and --headless cannot be used together")
		}
		return RunWatch(opts)
	}

	if opts.Fresh {
		if err := ResetSession(opts); err != nil {
			return err
		}
	}
	return RunSession(opts)
}
