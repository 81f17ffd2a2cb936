package parley

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aretw0/parley/pkg/bag"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/session"
)

// ParticipantBinder binds host participant handles into the bag of a session.
// It runs every time a session is started or resumed.
type ParticipantBinder func(ctx context.Context, sessionID string, d *domain.Dialogue, b *bag.Bag)

// Turn is the outcome of a session call.
type Turn struct {
	View       domain.View          `json:"view"`
	AllOptions []domain.Option      `json:"all_options,omitempty"`
	Snapshot   *domain.Snapshot     `json:"-"`
	Diff       *domain.SnapshotDiff `json:"diff,omitempty"`
	Created    bool                 `json:"created,omitempty"`
}

// Sessions runs persistent conversations keyed by session id.
// Every call resumes the stored snapshot, acts on it and saves it back under the
// session lock, so replicas sharing a store and locker can serve the same session.
type Sessions struct {
	engine  *Engine
	manager *session.Manager
	bind    ParticipantBinder
	newID   func() string
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithParticipantBinder sets the callback binding participants into session bags.
func WithParticipantBinder(b ParticipantBinder) SessionsOption {
	return func(s *Sessions) {
		s.bind = b
	}
}

// WithIDGenerator overrides how session ids are generated when none is given.
func WithIDGenerator(fn func() string) SessionsOption {
	return func(s *Sessions) {
		s.newID = fn
	}
}

// Sessions returns a session service backed by m.
func (e *Engine) Sessions(m *session.Manager, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		engine:  e,
		manager: m,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine sessions are played on.
func (s *Sessions) Engine() *Engine { return s.engine }

func (s *Sessions) bagFor(ctx context.Context, sessionID string, d *domain.Dialogue) *bag.Bag {
	b := bag.ForDialogue(d)
	if s.bind != nil {
		s.bind(ctx, sessionID, d, b)
	}
	return b
}

func turnOf(c *Context, old *domain.Snapshot) *Turn {
	snap := c.Snapshot()
	return &Turn{
		View:       c.View(),
		AllOptions: c.AllOptions(),
		Snapshot:   snap,
		Diff:       domain.Diff(old, snap),
	}
}

// Start begins a conversation of dialogueID. An empty sessionID gets a generated one.
// Starting an existing session returns its current turn instead.
func (s *Sessions) Start(ctx context.Context, dialogueID, sessionID string) (*Turn, error) {
	if sessionID == "" {
		sessionID = s.newID()
	}
	d, err := s.engine.Dialogue(ctx, dialogueID)
	if err != nil {
		return nil, err
	}

	var turn *Turn
	err = s.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		store := s.manager.Store()
		existing, err := store.Load(ctx, sessionID)
		if err == nil {
			if existing.DialogueID != dialogueID {
				return fmt.Errorf("session %q belongs to dialogue %q", sessionID, existing.DialogueID)
			}
			c, err := s.engine.Resume(ctx, existing, s.bagFor(ctx, sessionID, d))
			if err != nil {
				return err
			}
			turn = turnOf(c, existing)
			turn.Diff = nil
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		c, err := s.engine.CreateContext(ctx, dialogueID, s.bagFor(ctx, sessionID, d), WithSessionID(sessionID))
		if err != nil {
			return err
		}
		turn = turnOf(c, nil)
		turn.Created = true
		return store.Save(ctx, sessionID, turn.Snapshot)
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}

// View returns the current turn of a session without changing it.
func (s *Sessions) View(ctx context.Context, sessionID string) (*Turn, error) {
	snap, err := s.manager.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.resume(ctx, snap)
	if err != nil {
		return nil, err
	}
	turn := turnOf(c, snap)
	turn.Diff = nil
	return turn, nil
}

// Choose picks an option of the current option list and persists the result.
// If the conversation ended while resuming, the finished turn is stored and returned.
func (s *Sessions) Choose(ctx context.Context, sessionID string, index int) (*Turn, error) {
	return s.update(ctx, sessionID, func(ctx context.Context, c *Context) error {
		_, err := c.ChooseOption(ctx, index)
		return err
	})
}

// ChooseFromAll picks an entry of the full option list, unsatisfied ones included.
func (s *Sessions) ChooseFromAll(ctx context.Context, sessionID string, index int) (*Turn, error) {
	return s.update(ctx, sessionID, func(ctx context.Context, c *Context) error {
		_, err := c.ChooseFromAll(ctx, index)
		return err
	})
}

// Reevaluate recomputes the options of a session after host-side world changes.
func (s *Sessions) Reevaluate(ctx context.Context, sessionID string) (*Turn, error) {
	return s.update(ctx, sessionID, func(ctx context.Context, c *Context) error {
		return c.Reevaluate(ctx)
	})
}

func (s *Sessions) update(ctx context.Context, sessionID string, fn func(context.Context, *Context) error) (*Turn, error) {
	var turn *Turn
	_, err := s.manager.Update(ctx, sessionID, func(old *domain.Snapshot) (*domain.Snapshot, error) {
		c, err := s.resume(ctx, old)
		if err != nil {
			return nil, err
		}
		if c.IsFinished() && old.Status != domain.StatusFinished {
			// World changes ended the conversation; store that instead of failing fn.
			turn = turnOf(c, old)
			return turn.Snapshot, nil
		}
		if err := fn(ctx, c); err != nil {
			return nil, err
		}
		turn = turnOf(c, old)
		return turn.Snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}

func (s *Sessions) resume(ctx context.Context, snap *domain.Snapshot) (*Context, error) {
	d, err := s.engine.Dialogue(ctx, snap.DialogueID)
	if err != nil {
		return nil, err
	}
	return s.engine.Resume(ctx, snap, s.bagFor(ctx, snap.SessionID, d))
}

// Snapshot returns the stored snapshot of a session.
func (s *Sessions) Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return s.manager.Load(ctx, sessionID)
}

// Delete removes a session.
func (s *Sessions) Delete(ctx context.Context, sessionID string) error {
	return s.manager.Delete(ctx, sessionID)
}

// List returns the stored session ids.
func (s *Sessions) List(ctx context.Context) ([]string, error) {
	return s.manager.List(ctx)
}
