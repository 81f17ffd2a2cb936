package runtime

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
)

// Config holds the collaborators shared by every context an engine creates.
type Config struct {
	Logger   *slog.Logger
	Random   ports.RandomSource
	Registry *registry.Registry
	Memory   ports.Memory
	Hooks    domain.LifecycleHooks
	NoChild  domain.NoChildPolicy
	Now      func() time.Time

	// Per-context settings.
	SessionID     string
	StartID       string
	KeepVariables bool
}

// Option configures a Context.
type Option func(*Config)

// WithLogger sets the diagnostics sink.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithRandom injects the random source used by random selectors.
func WithRandom(r ports.RandomSource) Option {
	return func(c *Config) { c.Random = r }
}

// WithRegistry provides the custom conditions and events dialogues may reference.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Config) { c.Registry = r }
}

// WithMemory sets the long-term memory consulted by "once" restrictions and
// long-term visited conditions.
func WithMemory(m ports.Memory) Option {
	return func(c *Config) { c.Memory = m }
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(c *Config) { c.Hooks = c.Hooks.Merge(h) }
}

// WithNoChildPolicy decides what happens on a node without satisfied children.
func WithNoChildPolicy(p domain.NoChildPolicy) Option {
	return func(c *Config) { c.NoChild = p }
}

// WithClock overrides time.Now for snapshots and hook timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Config) { c.Now = now }
}

// WithSessionID tags the context for logs, hooks and snapshots.
func WithSessionID(id string) Option {
	return func(c *Config) { c.SessionID = id }
}

// WithStart enters the given node instead of the dialogue's start nodes.
func WithStart(nodeID string) Option {
	return func(c *Config) { c.StartID = nodeID }
}

// WithKeepVariables makes Resume leave the bag's variables untouched instead of
// restoring them from the snapshot. Use it when the bag is world state shared by
// several conversations.
func WithKeepVariables() Option {
	return func(c *Config) { c.KeepVariables = true }
}

func newConfig(opts []Option) Config {
	cfg := Config{NoChild: domain.NoChildEnd}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Random == nil {
		cfg.Random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if !cfg.NoChild.Valid() {
		cfg.Logger.Warn("unknown no-child policy, using end", "policy", cfg.NoChild)
		cfg.NoChild = domain.NoChildEnd
	}
	return cfg
}
