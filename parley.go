package parley

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/loam"

	"github.com/aretw0/parley/internal/compiler"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/internal/validator"
	loamAdapter "github.com/aretw0/parley/pkg/adapters/loam"
	"github.com/aretw0/parley/pkg/bag"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/history"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
)

// Context is a single in-progress conversation. See internal/runtime for the state machine.
type Context = runtime.Context

// ContextOption configures one context.
type ContextOption = runtime.Option

// WithSessionID tags a context for logs, hooks and snapshots.
func WithSessionID(id string) ContextOption { return runtime.WithSessionID(id) }

// WithStartNode enters nodeID instead of the dialogue's declared start nodes.
func WithStartNode(nodeID string) ContextOption { return runtime.WithStart(nodeID) }

// WithSharedBag tells Resume that the bag holds world state shared with other
// conversations, so the snapshot's variables must not roll it back.
func WithSharedBag() ContextOption { return runtime.WithKeepVariables() }

// Engine is the high-level entry point for the Parley library.
// It owns the dialogue catalog and the collaborators shared by every conversation.
type Engine struct {
	loader   ports.DialogueLoader
	compiler *compiler.Compiler
	registry *registry.Registry
	memory   ports.Memory
	random   ports.RandomSource
	hooks    domain.LifecycleHooks
	noChild  domain.NoChildPolicy
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	dialogues map[string]*domain.Dialogue
	static    map[string]bool // registered in code, never reloaded
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader sets where dialogues missing from the catalog are loaded from.
func WithLoader(l ports.DialogueLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithRegistry provides the custom conditions and events dialogues may reference.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithMemory replaces the in-process long-term memory.
func WithMemory(m ports.Memory) Option {
	return func(e *Engine) {
		e.memory = m
	}
}

// WithRandom injects the random source used by random selectors.
func WithRandom(r ports.RandomSource) Option {
	return func(e *Engine) {
		e.random = r
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls chain.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithNoChildPolicy decides what happens on a node without satisfied children.
func WithNoChildPolicy(p domain.NoChildPolicy) Option {
	return func(e *Engine) {
		e.noChild = p
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides time.Now for snapshots and hook timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes a new Engine. Without a loader, only registered dialogues exist.
func New(opts ...Option) *Engine {
	e := &Engine{
		compiler:  compiler.New(),
		registry:  registry.NewRegistry(),
		memory:    history.New(),
		noChild:   domain.NoChildEnd,
		logger:    logging.NewNop(),
		dialogues: make(map[string]*domain.Dialogue),
		static:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open creates an Engine that loads dialogues from a Loam repository at repoPath.
// The repository is opened read-only; the engine never writes dialogues.
func Open(repoPath string, opts ...Option) (*Engine, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	loader := loamAdapter.New(loam.NewTypedRepository[compiler.Document](repo))
	return New(append([]Option{WithLoader(loader)}, opts...)...), nil
}

// Register validates d and adds it to the catalog, replacing any dialogue with the same id.
func (e *Engine) Register(d *domain.Dialogue) error {
	if err := validator.Validate(d); err != nil {
		return err
	}
	d.Reindex()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.dialogues[d.ID] = d
	e.static[d.ID] = true
	return nil
}

// RegisterDocument compiles a YAML or JSON dialogue document and registers it.
func (e *Engine) RegisterDocument(data []byte) (*domain.Dialogue, error) {
	d, err := e.compiler.Compile(data)
	if err != nil {
		return nil, err
	}
	if err := e.Register(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Dialogue returns a dialogue from the catalog, loading and compiling it on first use.
func (e *Engine) Dialogue(ctx context.Context, id string) (*domain.Dialogue, error) {
	e.mu.RLock()
	d, ok := e.dialogues[id]
	e.mu.RUnlock()
	if ok {
		return d, nil
	}
	return e.load(ctx, id)
}

// Reload drops a loaded dialogue from the catalog and loads it again.
// Contexts already running keep the old definition.
func (e *Engine) Reload(ctx context.Context, id string) (*domain.Dialogue, error) {
	e.mu.Lock()
	if !e.static[id] {
		delete(e.dialogues, id)
	}
	e.mu.Unlock()
	return e.Dialogue(ctx, id)
}

func (e *Engine) load(ctx context.Context, id string) (*domain.Dialogue, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDialogueNotFound, id)
	}

	data, err := e.loader.GetDialogue(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := e.compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compile dialogue %s: %w", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.dialogues[id]; ok {
		return existing, nil
	}
	e.dialogues[id] = d
	e.logger.Debug("dialogue loaded", "dialogue", id, "nodes", len(d.Nodes))
	return d, nil
}

// Dialogues lists registered and loadable dialogue ids.
func (e *Engine) Dialogues(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	e.mu.RLock()
	for id := range e.dialogues {
		seen[id] = true
	}
	e.mu.RUnlock()

	if e.loader != nil {
		ids, err := e.loader.ListDialogues(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = true
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (e *Engine) contextOptions(opts []ContextOption) []ContextOption {
	base := []ContextOption{
		runtime.WithLogger(e.logger),
		runtime.WithRegistry(e.registry),
		runtime.WithMemory(e.memory),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithNoChildPolicy(e.noChild),
	}
	if e.random != nil {
		base = append(base, runtime.WithRandom(e.random))
	}
	if e.now != nil {
		base = append(base, runtime.WithClock(e.now))
	}
	return append(base, opts...)
}

// CreateContext starts a conversation of dialogueID. A nil bag gets one holding the
// dialogue's declared variables; participants are bound by the caller.
func (e *Engine) CreateContext(ctx context.Context, dialogueID string, b *bag.Bag, opts ...ContextOption) (*Context, error) {
	d, err := e.Dialogue(ctx, dialogueID)
	if err != nil {
		return nil, err
	}
	return runtime.NewContext(ctx, d, b, e.contextOptions(opts)...)
}

// Resume rebuilds a conversation from a snapshot without firing enter events.
// The snapshot's variables are written into b; pass WithSharedBag when b is shared
// world state that other conversations may have changed since.
func (e *Engine) Resume(ctx context.Context, snap *domain.Snapshot, b *bag.Bag, opts ...ContextOption) (*Context, error) {
	if snap == nil {
		return nil, errors.New("resume: nil snapshot")
	}
	d, err := e.Dialogue(ctx, snap.DialogueID)
	if err != nil {
		return nil, err
	}
	return runtime.Resume(ctx, d, b, snap, e.contextOptions(opts)...)
}

// Inspection summarizes a dialogue for tooling.
type Inspection struct {
	Dialogue    *domain.Dialogue `json:"dialogue"`
	Unreachable []string         `json:"unreachable,omitempty"`
}

// Inspect loads a dialogue and reports nodes no start node can reach.
func (e *Engine) Inspect(ctx context.Context, dialogueID string) (*Inspection, error) {
	d, err := e.Dialogue(ctx, dialogueID)
	if err != nil {
		return nil, err
	}
	return &Inspection{Dialogue: d, Unreachable: validator.Unreachable(d)}, nil
}

// Watch reloads dialogues as the loader reports changes and forwards their ids.
// Returns an error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		for id := range changes {
			if _, err := e.Reload(ctx, id); err != nil {
				e.logger.Warn("dialogue reload failed", "dialogue", id, "err", err)
				continue
			}
			select {
			case out <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Loader returns the underlying DialogueLoader, or nil.
func (e *Engine) Loader() ports.DialogueLoader {
	return e.loader
}

// Registry returns the custom condition and event registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Memory returns the long-term memory shared by every context.
func (e *Engine) Memory() ports.Memory {
	return e.memory
}
