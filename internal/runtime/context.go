// Package runtime implements the conversation state machine: a Context walks a
// Dialogue, evaluating conditions, firing events and selecting children.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/parley/internal/validator"
	"github.com/aretw0/parley/pkg/bag"
	"github.com/aretw0/parley/pkg/domain"
)

// option is one entry of the option list of the current node.
type option struct {
	link      domain.ChildLink
	target    *domain.Node
	satisfied bool
	// next is set for the synthetic "continue" option of a sequence node.
	next bool
}

// Context is the live cursor of one conversation over a shared Dialogue.
//
// A Context is not safe for concurrent use: all traversal calls run to completion
// on the caller's goroutine. Independent contexts over the same Dialogue need no
// coordination. The Bag may be shared between contexts.
type Context struct {
	cfg      Config
	log      *slog.Logger
	dialogue *domain.Dialogue
	bag      *bag.Bag

	status   domain.Status
	current  *domain.Node
	seqIndex int
	step     int

	history        []string
	visited        map[string]struct{}
	selectorMemory map[string][]string

	options []option // satisfied options, what ChooseOption indexes
	all     []option // satisfied plus visible unsatisfied options

	// guard holds the nodes entered during the current step.
	guard map[string]struct{}
	// checking holds the nodes whose children are being inspected, so that
	// has_satisfied_child conditions cannot recurse forever.
	checking map[string]struct{}
}

// NewContext validates d, then starts a conversation over it.
//
// The start node is the one given with WithStart, entered unconditionally, or else
// the first declared start node that may be entered. When none may be entered the
// returned context is already finished.
func NewContext(ctx context.Context, d *domain.Dialogue, b *bag.Bag, opts ...Option) (*Context, error) {
	c, err := newContext(d, b, opts)
	if err != nil {
		return nil, err
	}

	var start *domain.Node
	if id := c.cfg.StartID; id != "" {
		n, ok := d.Node(id)
		if !ok {
			return nil, fmt.Errorf("start node %q: %w", id, domain.ErrMalformedGraph)
		}
		start = n
	} else {
		for _, id := range d.Start {
			n, _ := d.Node(id)
			if c.canEnter(ctx, n) {
				start = n
				break
			}
		}
	}

	c.beginStep()
	if start == nil {
		c.log.Warn("no start node may be entered")
		c.finish(ctx, nil, domain.ReasonNoChild)
		return c, nil
	}
	c.enterNode(ctx, start, false)
	return c, nil
}

// Resume rebuilds a context from a snapshot without replaying enter events, then
// re-evaluates the options of the current node. If no child is satisfied any more the
// context finishes as it would after a choice, and OnFinished fires.
//
// The snapshot's variables overwrite the bag's unless WithKeepVariables is given.
func Resume(ctx context.Context, d *domain.Dialogue, b *bag.Bag, snap *domain.Snapshot, opts ...Option) (*Context, error) {
	if snap == nil {
		return nil, fmt.Errorf("resume: nil snapshot")
	}
	if snap.DialogueID != d.ID {
		return nil, fmt.Errorf("resume: snapshot belongs to dialogue %q, not %q", snap.DialogueID, d.ID)
	}
	if snap.SessionID != "" {
		opts = append([]Option{WithSessionID(snap.SessionID)}, opts...)
	}
	c, err := newContext(d, b, opts)
	if err != nil {
		return nil, err
	}

	c.step = snap.Step
	if !c.cfg.KeepVariables {
		c.bag.Restore(snap.Variables)
	}
	for _, id := range snap.History {
		c.markVisited(id)
	}
	for id, picks := range snap.SelectorMemory {
		c.selectorMemory[id] = append([]string(nil), picks...)
	}

	if snap.CurrentNodeID != "" {
		n, ok := d.Node(snap.CurrentNodeID)
		if !ok {
			return nil, fmt.Errorf("resume: current node %q: %w", snap.CurrentNodeID, domain.ErrMalformedGraph)
		}
		c.current = n
	}

	if snap.Status == domain.StatusFinished || c.current == nil {
		c.status = domain.StatusFinished
		return c, nil
	}

	c.seqIndex = snap.SequenceIndex
	if c.current.Kind != domain.NodeSequence || c.seqIndex < 0 || c.seqIndex >= len(c.current.Sequence) {
		c.seqIndex = 0
	}
	c.guard = map[string]struct{}{c.current.ID: {}}
	c.settle(ctx)
	return c, nil
}

func newContext(d *domain.Dialogue, b *bag.Bag, opts []Option) (*Context, error) {
	if err := validator.Validate(d); err != nil {
		return nil, err
	}
	if b == nil {
		b = bag.ForDialogue(d)
	} else {
		b.DeclareAll(d.Variables)
	}

	cfg := newConfig(opts)
	log := cfg.Logger.With("dialogue", d.ID)
	if cfg.SessionID != "" {
		log = log.With("context", cfg.SessionID)
	}

	return &Context{
		cfg:            cfg,
		log:            log,
		dialogue:       d,
		bag:            b,
		status:         domain.StatusAtNode,
		visited:        make(map[string]struct{}),
		selectorMemory: make(map[string][]string),
		checking:       make(map[string]struct{}),
	}, nil
}

// Dialogue returns the dialogue this context walks.
func (c *Context) Dialogue() *domain.Dialogue { return c.dialogue }

// Bag returns the data bag this context reads and mutates.
func (c *Context) Bag() *bag.Bag { return c.bag }

// SessionID returns the id given with WithSessionID.
func (c *Context) SessionID() string { return c.cfg.SessionID }

// Status returns the current traversal state.
func (c *Context) Status() domain.Status { return c.status }

// IsFinished reports whether the conversation is over.
func (c *Context) IsFinished() bool { return c.status == domain.StatusFinished }

// CurrentNode returns the node the cursor is on, or nil before any node was entered.
// A finished context keeps the node it finished on.
func (c *Context) CurrentNode() *domain.Node { return c.current }

// Step returns how many external calls moved the cursor.
func (c *Context) Step() int { return c.step }

// Visited reports whether this context entered nodeID.
func (c *Context) Visited(nodeID string) bool {
	_, ok := c.visited[nodeID]
	return ok
}

// History returns the entered node ids in order.
func (c *Context) History() []string {
	return append([]string(nil), c.history...)
}

// CurrentOptions returns the satisfied options, in link order.
func (c *Context) CurrentOptions() []domain.Option {
	return c.render(c.options)
}

// AllOptions returns the satisfied options plus links flagged IncludeIfUnsatisfied.
func (c *Context) AllOptions() []domain.Option {
	return c.render(c.all)
}

func (c *Context) render(opts []option) []domain.Option {
	out := make([]domain.Option, len(opts))
	for i, o := range opts {
		out[i] = domain.Option{
			Index:        i,
			Text:         o.link.Text,
			SpeakerState: o.link.SpeakerState,
			Target:       o.link.Target,
			Satisfied:    o.satisfied,
		}
	}
	return out
}

// ChooseOption advances along the index-th satisfied option.
// It fails with ErrConversationEnded on a finished context and with ErrInvalidChoice
// when not awaiting a choice or when index is out of range; state is unchanged then.
func (c *Context) ChooseOption(ctx context.Context, index int) (domain.Status, error) {
	if err := c.checkChoice(index, len(c.options)); err != nil {
		return c.status, err
	}
	return c.choose(ctx, index, c.options[index])
}

// ChooseFromAll advances along the index-th entry of AllOptions.
// Picking an unsatisfied entry fails with ErrInvalidChoice.
func (c *Context) ChooseFromAll(ctx context.Context, index int) (domain.Status, error) {
	if err := c.checkChoice(index, len(c.all)); err != nil {
		return c.status, err
	}
	opt := c.all[index]
	if !opt.satisfied {
		return c.status, &domain.ChoiceError{Index: index, Options: len(c.all), Reason: "option is not satisfied"}
	}
	return c.choose(ctx, index, opt)
}

func (c *Context) checkChoice(index, n int) error {
	switch {
	case c.status == domain.StatusFinished:
		return domain.ErrConversationEnded
	case c.status != domain.StatusAwaitingChoice:
		return &domain.ChoiceError{Index: index, Options: n, Reason: "not awaiting a choice"}
	case index < 0 || index >= n:
		return &domain.ChoiceError{Index: index, Options: n}
	}
	return nil
}

func (c *Context) choose(ctx context.Context, index int, opt option) (domain.Status, error) {
	parent := c.current
	c.beginStep()

	if c.cfg.Hooks.OnOptionChosen != nil {
		c.cfg.Hooks.OnOptionChosen(ctx, &domain.ChoiceEvent{
			HookBase: c.hookBase(domain.HookOptionChosen),
			NodeID:   parent.ID,
			Index:    index,
			Target:   opt.link.Target,
		})
	}

	if opt.next {
		c.seqIndex++
		c.settle(ctx)
		return c.status, nil
	}

	c.take(ctx, parent, opt)
	return c.status, nil
}

// Reevaluate recomputes the options of the current node after the world changed.
// Enter events are not fired again.
func (c *Context) Reevaluate(ctx context.Context) error {
	if c.status == domain.StatusFinished {
		return domain.ErrConversationEnded
	}
	c.guard = map[string]struct{}{c.current.ID: {}}
	c.settle(ctx)
	return nil
}

// View returns what a host needs to render the current line.
func (c *Context) View() domain.View {
	v := domain.View{
		SessionID:  c.cfg.SessionID,
		DialogueID: c.dialogue.ID,
		Options:    c.CurrentOptions(),
		Finished:   c.IsFinished(),
	}
	if n := c.current; n != nil {
		v.NodeID = n.ID
		v.Speaker = n.Speaker
		v.SpeakerState = n.SpeakerState
		v.Text = n.Text
		if n.Kind == domain.NodeSequence && c.seqIndex < len(n.Sequence) {
			entry := n.Sequence[c.seqIndex]
			v.Text = entry.Text
			if entry.Speaker != "" {
				v.Speaker = entry.Speaker
			}
		}
	}
	return v
}

// Snapshot captures the cursor and the bag variables.
func (c *Context) Snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		SessionID:     c.cfg.SessionID,
		DialogueID:    c.dialogue.ID,
		Status:        c.status,
		Step:          c.step,
		SequenceIndex: c.seqIndex,
		History:       c.History(),
		Variables:     c.bag.Variables(),
		UpdatedAt:     c.cfg.Now().UTC(),
	}
	if c.current != nil {
		snap.CurrentNodeID = c.current.ID
	}
	if len(c.selectorMemory) > 0 {
		snap.SelectorMemory = make(map[string][]string, len(c.selectorMemory))
		for id, picks := range c.selectorMemory {
			snap.SelectorMemory[id] = append([]string(nil), picks...)
		}
	}
	return snap
}

func (c *Context) hookBase(t domain.HookType) domain.HookBase {
	return domain.HookBase{
		Timestamp:  c.cfg.Now(),
		Type:       t,
		DialogueID: c.dialogue.ID,
		SessionID:  c.cfg.SessionID,
	}
}
