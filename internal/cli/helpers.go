package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/compiler"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/bag"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger. Logs go to Stderr so the
// conversation on Stdout stays clean; without debug or a level, nothing is logged.
func createLogger(opts RunOptions) *slog.Logger {
	switch {
	case opts.Debug:
		return logging.New(slog.LevelDebug)
	case opts.LogLevel != "":
		return logging.New(logging.ParseLevel(opts.LogLevel))
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func logSessionStatus(w io.Writer, logger *slog.Logger, sessionID, nodeID string, loaded, quiet bool) {
	if loaded {
		logger.Info("session resumed", "session_id", sessionID, "node", nodeID)
		if !quiet {
			printSystemMessage(w, "Resuming at '%s' node...", nodeID)
		}
	} else if sessionID != "" {
		logger.Info("session created", "session_id", sessionID)
		if !quiet {
			printSystemMessage(w, "Session '%s' active.", sessionID)
		}
	}
}

var errInterrupted = errors.New("interrupted")

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, errInterrupted) || errors.Is(err, io.EOF)
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(w io.Writer, nodeID string, err error, quiet bool, sig os.Signal) {
	if quiet {
		return
	}
	if err == nil {
		printSystemMessage(w, "Finished at '%s' node.", nodeID)
		return
	}
	if !isInterrupted(err) {
		return
	}
	switch {
	case sig == os.Interrupt:
		fmt.Fprintf(w, "[CTRL+C]\n")
		printSystemMessage(w, "Interrupted at '%s' node.", nodeID)
	case sig != nil:
		fmt.Fprintf(w, "\n")
		printSystemMessage(w, "Terminated at '%s' node.", nodeID)
	default:
		fmt.Fprintf(w, "\n")
		printSystemMessage(w, "Interrupted at '%s' node.", nodeID)
	}
}

// OpenStore returns the session store: Redis when a URL is configured, otherwise
// files under <repo>/.parley/sessions. The close func releases the backend.
func OpenStore(opts RunOptions) (ports.SnapshotStore, ports.SessionLocker, func() error, error) {
	if opts.RedisURL == "" {
		store, err := secureStore(file.New(filepath.Join(opts.RepoPath, ".parley", "sessions")))
		return store, nil, func() error { return nil }, err
	}
	redisOpts, err := backend.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rs := redis.NewFromClient(backend.NewClient(redisOpts))
	store, err := secureStore(rs)
	if err != nil {
		rs.Close()
		return nil, nil, nil, err
	}
	return store, redis.NewLocker(rs.Client(), "parley:"), rs.Close, nil
}

// secureStore wraps store with the protections configured in the environment:
// PARLEY_MASK_VARIABLES lists variable name patterns masked before saving,
// PARLEY_ENCRYPTION_KEY (base64, 32 bytes) seals snapshots at rest and
// PARLEY_ENCRYPTION_FALLBACK_KEYS lists retired keys still accepted on load.
func secureStore(store ports.SnapshotStore) (ports.SnapshotStore, error) {
	var mws []middleware.Middleware
	if patterns := splitList(os.Getenv("PARLEY_MASK_VARIABLES")); len(patterns) > 0 {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("invalid PARLEY_MASK_VARIABLES pattern %q: %w", p, err)
			}
		}
		mws = append(mws, middleware.NewPIIMiddleware(patterns))
	}
	if raw := os.Getenv("PARLEY_ENCRYPTION_KEY"); raw != "" {
		cfg := middleware.EncryptionConfig{}
		var err error
		if cfg.ActiveKey, err = decodeKey(raw); err != nil {
			return nil, fmt.Errorf("PARLEY_ENCRYPTION_KEY: %w", err)
		}
		for _, old := range splitList(os.Getenv("PARLEY_ENCRYPTION_FALLBACK_KEYS")) {
			key, err := decodeKey(old)
			if err != nil {
				return nil, fmt.Errorf("PARLEY_ENCRYPTION_FALLBACK_KEYS: %w", err)
			}
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(cfg))
	}
	return middleware.Chain(store, mws...), nil
}

func decodeKey(raw string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("key is not base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SetupPersistence initializes the snapshot store and session manager.
func SetupPersistence(opts RunOptions, logger *slog.Logger) (*session.Manager, func() error, error) {
	store, locker, closeStore, err := OpenStore(opts)
	if err != nil {
		return nil, nil, err
	}
	managerOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	return session.NewManager(store, managerOpts...), closeStore, nil
}

// ResetSession clears the stored snapshot of opts.SessionID.
func ResetSession(opts RunOptions) error {
	if opts.SessionID == "" {
		return nil
	}
	store, _, closeStore, err := OpenStore(opts)
	if err != nil {
		return err
	}
	defer closeStore()
	return store.Delete(context.Background(), opts.SessionID)
}

// applyVars writes a JSON object of variable overrides into b, converting each value
// to the declared kind of its variable.
func applyVars(raw string, b *bag.Bag) error {
	if raw == "" {
		return nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return fmt.Errorf("error parsing --vars JSON: %w", err)
	}
	for name, rawValue := range vars {
		var kind domain.ValueKind
		if cur, ok := b.Lookup(name); ok {
			kind = cur.Kind
		}
		v, err := compiler.ParseValue(rawValue, kind)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		if err := b.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// hydrate resumes the stored session of opts.SessionID, or starts a new conversation.
// A snapshot that no longer fits the dialogue (e.g. its node was removed) is discarded.
func hydrate(ctx context.Context, w io.Writer, engine *parley.Engine, manager *session.Manager, dialogueID string, opts RunOptions, logger *slog.Logger) (*parley.Context, bool, error) {
	d, err := engine.Dialogue(ctx, dialogueID)
	if err != nil {
		return nil, false, err
	}
	b := bag.ForDialogue(d)

	if opts.SessionID != "" {
		snap, err := manager.Load(ctx, opts.SessionID)
		switch {
		case err == nil && snap.DialogueID != dialogueID:
			return nil, false, fmt.Errorf("session %q belongs to dialogue %q", opts.SessionID, snap.DialogueID)
		case err == nil:
			c, err := engine.Resume(ctx, snap, b)
			if err == nil {
				return c, true, nil
			}
			logger.Warn("stored session no longer fits the dialogue, starting over", "session_id", opts.SessionID, "err", err)
			printSystemMessage(w, "Session '%s' could not be resumed, starting over.", opts.SessionID)
			b = bag.ForDialogue(d)
		case !errors.Is(err, domain.ErrSessionNotFound):
			return nil, false, err
		}
	}

	if err := applyVars(opts.Vars, b); err != nil {
		return nil, false, err
	}
	ctxOpts := []parley.ContextOption{}
	if opts.SessionID != "" {
		ctxOpts = append(ctxOpts, parley.WithSessionID(opts.SessionID))
	}
	if opts.StartNode != "" {
		ctxOpts = append(ctxOpts, parley.WithStartNode(opts.StartNode))
	}
	c, err := engine.CreateContext(ctx, dialogueID, b, ctxOpts...)
	if err != nil {
		return nil, false, err
	}
	if opts.SessionID != "" {
		if err := manager.Save(ctx, opts.SessionID, c.Snapshot()); err != nil {
			return nil, false, err
		}
	}
	return c, false, nil
}
