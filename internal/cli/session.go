package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/session"
)

// newRunner builds the conversation runner for the CLI. Markdown rendering is
// used on interactive terminals unless plain output was requested.
func newRunner(opts RunOptions, in io.Reader, out io.Writer, manager *session.Manager) *parley.Runner {
	r := parley.NewRunner(in, out)
	r.Headless = opts.Headless

	if f, ok := out.(*os.File); ok && !opts.Plain && !opts.Headless && tui.IsInteractive(f) {
		r.Format = tui.FormatView
		r.Renderer = tui.NewRenderer()
	}

	if opts.SessionID != "" {
		r.OnTurn = func(ctx context.Context, snap *domain.Snapshot) error {
			return manager.Save(ctx, opts.SessionID, snap)
		}
	}
	return r
}

// RunSession plays one conversation on the terminal.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts)
	out := opts.output()
	quiet := opts.Headless

	if !quiet {
		tui.PrintBanner(out)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	dialogueID, err := pickDialogue(sigCtx, engine, opts.Dialogue)
	if err != nil {
		return err
	}

	manager, closeStore, err := SetupPersistence(opts, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	c, loaded, err := hydrate(sigCtx, out, engine, manager, dialogueID, opts, logger)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}
	logSessionStatus(out, logger, opts.SessionID, currentNodeID(c), loaded, quiet)

	r := newRunner(opts, opts.input(), out, manager)
	runErr := r.Run(sigCtx, c)

	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}
	logCompletion(out, currentNodeID(c), runErr, quiet, sigCtx.Signal())

	return handleExecutionError(runErr)
}

func currentNodeID(c *parley.Context) string {
	if n := c.CurrentNode(); n != nil {
		return n.ID
	}
	return ""
}
