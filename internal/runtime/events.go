package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// fireEvents runs events in order. Failures are logged and never stop the sequence.
func (c *Context) fireEvents(ctx context.Context, events []domain.Event, owner *domain.Node) {
	for _, e := range events {
		c.fire(ctx, e, owner)
	}
}

func (c *Context) fire(ctx context.Context, e domain.Event, owner *domain.Node) {
	var err error
	switch e.Kind {
	case domain.EventSet:
		err = c.bag.Set(e.Variable, e.Value)
	case domain.EventModify:
		err = c.bag.Modify(e.Variable, e.Value)
	case domain.EventAddToSet:
		err = c.bag.AddToSet(e.Variable, e.Value.Name)
	case domain.EventRemoveFromSet:
		err = c.bag.RemoveFromSet(e.Variable, e.Value.Name)

	case domain.EventNotify:
		p, name, ok := c.participant(e.Participant, owner)
		if !ok {
			return
		}
		receiver, ok := p.(ports.EventReceiver)
		if !ok {
			c.log.Warn("participant cannot receive events", "node", owner.ID, "participant", name, "event", e.Name)
			return
		}
		c.safely(owner, e.Name, func() { receiver.OnDialogueEvent(ctx, e.Name) })

	case domain.EventCustom:
		custom, lookupErr := c.cfg.Registry.Event(e.Custom)
		if lookupErr != nil {
			c.log.Error("custom event unavailable", "node", owner.ID, "error", lookupErr)
			return
		}
		p, ok := c.optionalParticipant(e.Participant, owner)
		if !ok {
			return
		}
		c.safely(owner, e.Custom, func() { custom.Enter(ctx, c.scope(owner, e.Params), p) })

	default:
		c.log.Warn("unknown event kind", "node", owner.ID, "kind", e.Kind)
	}

	if err != nil {
		c.log.Error("event rejected", "node", owner.ID, "event", e.Kind, "variable", e.Variable, "error", err)
	}
}

// scope is the read-mostly view handed to custom conditions and events.
// It exposes the bag and the history, never the cursor.
type scope struct {
	c      *Context
	node   *domain.Node
	params map[string]any
}

func (c *Context) scope(n *domain.Node, params map[string]any) ports.Scope {
	return &scope{c: c, node: n, params: params}
}

func (s *scope) DialogueID() string                  { return s.c.dialogue.ID }
func (s *scope) NodeID() string                      { return s.node.ID }
func (s *scope) Params() map[string]any              { return s.params }
func (s *scope) Visited(nodeID string) bool          { return s.c.Visited(nodeID) }
func (s *scope) Logger() *slog.Logger                { return s.c.log }
func (s *scope) Participant(name string) (any, bool) { return s.c.bag.Participant(name) }

func (s *scope) Variable(name string) (domain.Value, bool) {
	return s.c.bag.Lookup(name)
}

func (s *scope) SetVariable(name string, v domain.Value) error {
	return s.c.bag.Set(name, v)
}
