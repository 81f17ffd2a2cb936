package runtime

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// evalConditions evaluates a condition list owned by owner.
//
// Conditions without Or must all hold; the first failure ends the evaluation. The Or
// conditions form one any-of pool, so once a member holds the rest are skipped.
func (c *Context) evalConditions(ctx context.Context, conds []domain.Condition, owner *domain.Node) bool {
	anyOf, matched := false, false
	for _, cond := range conds {
		if !cond.Or {
			if !c.evalCondition(ctx, cond, owner) {
				return false
			}
			continue
		}
		anyOf = true
		if !matched {
			matched = c.evalCondition(ctx, cond, owner)
		}
	}
	return matched || !anyOf
}

func (c *Context) evalCondition(ctx context.Context, cond domain.Condition, owner *domain.Node) bool {
	switch cond.Kind {
	case domain.CondCompare:
		left, ok := c.variable(cond.Variable, owner)
		if !ok {
			return false
		}
		right := cond.Value
		if cond.OtherVariable != "" {
			if right, ok = c.variable(cond.OtherVariable, owner); !ok {
				return false
			}
		}
		return c.compare(cond, owner, left, right)

	case domain.CondParticipantValue:
		return c.evalParticipantValue(cond, owner)

	case domain.CondParticipantCheck:
		p, name, ok := c.participant(cond.Participant, owner)
		if !ok {
			return false
		}
		checker, ok := p.(ports.ConditionChecker)
		if !ok {
			c.log.Warn("participant cannot check conditions", "node", owner.ID, "participant", name)
			return false
		}
		var got bool
		c.safely(owner, cond.Variable, func() { got = checker.CheckCondition(ctx, cond.Variable) })
		return got == cond.Expect

	case domain.CondVisited:
		var seen bool
		if cond.LongTerm && c.cfg.Memory != nil {
			seen = c.cfg.Memory.WasVisited(c.dialogue.ID, cond.NodeID)
		} else {
			seen = c.Visited(cond.NodeID)
		}
		return seen == cond.Expect

	case domain.CondHasSatisfiedChild:
		n, ok := c.dialogue.Node(cond.NodeID)
		if !ok {
			c.log.Warn("condition refers to missing node", "node", owner.ID, "target", cond.NodeID)
			return false
		}
		return c.hasSatisfiedChild(ctx, n) == cond.Expect

	case domain.CondSetContains:
		v, _ := c.bag.Lookup(cond.Variable)
		return v.Contains(cond.Value.Name) == cond.Expect

	case domain.CondCustom:
		custom, err := c.cfg.Registry.Condition(cond.Custom)
		if err != nil {
			c.log.Error("custom condition unavailable", "node", owner.ID, "error", err)
			return false
		}
		p, ok := c.optionalParticipant(cond.Participant, owner)
		if !ok {
			return false
		}
		var got bool
		c.safely(owner, cond.Custom, func() {
			got = custom.IsSatisfied(ctx, c.scope(owner, cond.Params), p)
		})
		return got
	}

	c.log.Warn("unknown condition kind", "node", owner.ID, "kind", cond.Kind)
	return false
}

func (c *Context) evalParticipantValue(cond domain.Condition, owner *domain.Node) bool {
	left, ok := c.participantValue(cond.Participant, cond.Variable, owner)
	if !ok {
		return false
	}
	right := cond.Value
	if cond.OtherVariable != "" {
		other := cond.OtherParticipant
		if other == "" {
			other = cond.Participant
		}
		if right, ok = c.participantValue(other, cond.OtherVariable, owner); !ok {
			return false
		}
	}
	return c.compare(cond, owner, left, right)
}

func (c *Context) participantValue(participant, name string, owner *domain.Node) (domain.Value, bool) {
	p, resolved, ok := c.participant(participant, owner)
	if !ok {
		return domain.Value{}, false
	}
	provider, ok := p.(ports.ValueProvider)
	if !ok {
		c.log.Warn("participant cannot provide values", "node", owner.ID, "participant", resolved)
		return domain.Value{}, false
	}
	v, ok := provider.DialogueValue(name)
	if !ok {
		c.log.Debug("participant has no such value", "node", owner.ID, "participant", resolved, "value", name)
	}
	return v, ok
}

func (c *Context) variable(name string, owner *domain.Node) (domain.Value, bool) {
	v, ok := c.bag.Lookup(name)
	if !ok {
		c.log.Warn("condition reads unknown variable", "node", owner.ID, "variable", name)
	}
	return v, ok
}

func (c *Context) compare(cond domain.Condition, owner *domain.Node, left, right domain.Value) bool {
	op := cond.Op
	if op == "" {
		op = domain.OpEqual
	}
	ok, err := left.Compare(op, right)
	if err != nil {
		c.log.Warn("condition comparison failed", "node", owner.ID, "variable", cond.Variable, "error", err)
		return false
	}
	return ok
}

// participant resolves a participant name, defaulting to the owner's speaker.
// A name that resolves to nothing is logged as ErrUnresolvedParticipant.
func (c *Context) participant(name string, owner *domain.Node) (any, string, bool) {
	if name == "" {
		name = owner.Speaker
	}
	if name == "" {
		c.log.Warn("no participant to resolve", "node", owner.ID, "error", domain.ErrUnresolvedParticipant)
		return nil, "", false
	}
	p, ok := c.bag.Participant(name)
	if !ok {
		c.log.Warn("participant not bound", "node", owner.ID, "participant", name, "error", domain.ErrUnresolvedParticipant)
		return nil, name, false
	}
	return p, name, true
}

// optionalParticipant is like participant, but a missing name yields a nil handle
// instead of a failure. Custom logic may not need any participant.
func (c *Context) optionalParticipant(name string, owner *domain.Node) (any, bool) {
	if name == "" && owner.Speaker == "" {
		return nil, true
	}
	p, _, ok := c.participant(name, owner)
	return p, ok
}

// safely runs host code, turning a panic into a logged error.
func (c *Context) safely(owner *domain.Node, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("host callback panicked", "node", owner.ID, "callback", what, "panic", r)
		}
	}()
	fn()
}
