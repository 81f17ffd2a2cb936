package cli

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/session"
)

// RunWatch plays a dialogue in development mode: when its files change, the
// dialogue is reloaded and the conversation resumes from the saved session.
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts)
	out := opts.output()
	tui.PrintBanner(out)

	// Sessions are scoped by path hash to prevent collisions between projects.
	if opts.SessionID == "" {
		hash := md5.Sum([]byte(opts.RepoPath))
		opts.SessionID = fmt.Sprintf("watch-%x", hash[:4])
	}
	if opts.Fresh {
		if err := ResetSession(opts); err != nil {
			return err
		}
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

	logger.Info("starting watcher", "path", opts.RepoPath, "session_id", opts.SessionID)
	printSystemMessage(out, "Watching '%s' in session '%s'.", dialogueID, opts.SessionID)

	w := &watcher{
		engine:     engine,
		manager:    manager,
		dialogueID: dialogueID,
		opts:       opts,
		lines:      NewLineSource(opts.input()),
		logger:     logger,
	}
	for w.iterate(sigCtx) {
		logger.Info("watcher restarting")
	}
	return nil
}

type watcher struct {
	engine     *parley.Engine
	manager    *session.Manager
	dialogueID string
	opts       RunOptions
	lines      *LineSource
	logger     *slog.Logger
}

// iterate runs the conversation until it ends, the dialogue changes or a signal
// arrives. It reports whether the watcher should run again.
func (w *watcher) iterate(parent *SignalContext) bool {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	out := w.opts.output()

	changes, err := w.engine.Watch(ctx)
	if err != nil {
		w.logger.Error("watch unavailable", "err", err)
		return false
	}

	c, loaded, err := hydrate(ctx, out, w.engine, w.manager, w.dialogueID, w.opts, w.logger)
	if err != nil {
		w.logger.Error("state rehydration failed", "err", err)
		printSystemMessage(out, "Waiting for a fix: %v", err)
		select {
		case <-parent.Done():
			return false
		case _, ok := <-changes:
			return ok
		}
	}
	if loaded {
		printSystemMessage(out, "Resuming at '%s' node...", currentNodeID(c))
	}

	r := newRunner(w.opts, w.lines.Reader(ctx.Done()), out, w.manager)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, c) }()

	select {
	case <-parent.Done():
		cancel()
		<-done
		logCompletion(out, currentNodeID(c), context.Canceled, false, parent.Signal())
		return false

	case id, ok := <-changes:
		cancel()
		<-done
		if !ok {
			return false
		}
		fmt.Fprintln(out)
		printSystemMessage(out, "Change detected in '%s'.", id)
		return true

	case err := <-done:
		logCompletion(out, currentNodeID(c), err, false, parent.Signal())
		if err != nil && !isInterrupted(err) {
			w.logger.Error("conversation failed", "err", err)
		}
		if !c.IsFinished() {
			return false
		}
		printSystemMessage(out, "Waiting for changes (Ctrl+C to exit)...")
		select {
		case <-parent.Done():
			return false
		case _, ok := <-changes:
			if ok {
				// A finished conversation restarts from the top after an edit.
				if err := w.manager.Delete(ctx, w.opts.SessionID); err != nil {
					w.logger.Warn("failed to reset session", "err", err)
				}
			}
			return ok
		}
	}
}
