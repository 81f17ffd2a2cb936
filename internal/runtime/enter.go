package runtime

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// beginStep starts handling one external call (start or choice).
func (c *Context) beginStep() {
	c.guard = make(map[string]struct{})
	c.step++
}

// enterNode makes n current, fires its enter events, then either follows automatic
// links (selector, proxy), settles on the node's options, or finishes.
func (c *Context) enterNode(ctx context.Context, n *domain.Node, auto bool) {
	if _, again := c.guard[n.ID]; again {
		c.log.Warn("node re-entered within one step, ending conversation", "node", n.ID)
		c.finish(ctx, n, domain.ReasonReentry)
		return
	}
	c.guard[n.ID] = struct{}{}

	c.current = n
	c.status = domain.StatusAtNode
	c.seqIndex = 0
	c.options, c.all = nil, nil

	c.markVisited(n.ID)
	if c.cfg.Memory != nil {
		c.cfg.Memory.MarkVisited(c.dialogue.ID, n.ID)
	}

	if c.cfg.Hooks.OnNodeEnter != nil {
		c.cfg.Hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			HookBase: c.hookBase(domain.HookNodeEnter),
			NodeID:   n.ID,
			NodeKind: n.Kind,
			Auto:     auto,
		})
	}

	c.fireEvents(ctx, n.EnterEvents, n)

	switch n.Kind {
	case domain.NodeEnd:
		c.finish(ctx, n, domain.ReasonEndNode)

	case domain.NodeProxy:
		target, ok := c.dialogue.Node(n.ProxyTo)
		if !ok {
			c.log.Error("proxy target missing", "node", n.ID, "target", n.ProxyTo)
			c.finish(ctx, n, domain.ReasonMissingNode)
			return
		}
		if !c.canEnter(ctx, target) {
			c.log.Warn("proxy target may not be entered", "node", n.ID, "target", n.ProxyTo)
			c.finish(ctx, n, domain.ReasonNoChild)
			return
		}
		c.enterNode(ctx, target, true)

	case domain.NodeSelector:
		if len(n.Children) == 0 {
			c.finish(ctx, n, domain.ReasonEndNode)
			return
		}
		c.refreshOptions(ctx, n)
		opt, ok := c.selectChild(n)
		if !ok {
			c.log.Warn("selector has no satisfied child", "node", n.ID)
			c.finish(ctx, n, domain.ReasonNoChild)
			return
		}
		c.take(ctx, n, opt)

	default:
		c.settle(ctx)
	}
}

// settle computes the options of the current node and waits for a choice,
// or finishes when the node cannot continue.
func (c *Context) settle(ctx context.Context) {
	n := c.current

	if n.Kind == domain.NodeSequence && c.seqIndex < len(n.Sequence)-1 {
		entry := n.Sequence[c.seqIndex]
		next := option{
			link:      domain.ChildLink{Target: n.ID, Text: entry.EdgeText},
			target:    n,
			satisfied: true,
			next:      true,
		}
		c.options = []option{next}
		c.all = c.options
		c.status = domain.StatusAwaitingChoice
		return
	}

	if len(n.Children) == 0 {
		c.finish(ctx, n, domain.ReasonEndNode)
		return
	}

	c.refreshOptions(ctx, n)
	if len(c.options) > 0 {
		c.status = domain.StatusAwaitingChoice
		return
	}

	switch c.cfg.NoChild {
	case domain.NoChildContinue:
		c.log.Warn("no satisfied child, waiting for the host", "node", n.ID)
		c.status = domain.StatusAwaitingChoice
	case domain.NoChildErrorAndEnd:
		c.log.Error("no satisfied child, ending conversation", "node", n.ID)
		c.finish(ctx, n, domain.ReasonNoChild)
	default:
		c.log.Warn("no satisfied child, ending conversation", "node", n.ID)
		c.finish(ctx, n, domain.ReasonNoChild)
	}
}

// take follows a link out of parent: link events first, then the target.
func (c *Context) take(ctx context.Context, parent *domain.Node, opt option) {
	c.fireEvents(ctx, opt.link.Events, parent)
	c.enterNode(ctx, opt.target, parent.AutoSelects())
}

func (c *Context) finish(ctx context.Context, n *domain.Node, reason string) {
	c.status = domain.StatusFinished
	c.options, c.all = nil, nil

	ev := &domain.FinishEvent{HookBase: c.hookBase(domain.HookFinished), Reason: reason}
	if n != nil {
		ev.NodeID = n.ID
	}
	c.log.Debug("conversation finished", "node", ev.NodeID, "reason", reason)
	if c.cfg.Hooks.OnFinished != nil {
		c.cfg.Hooks.OnFinished(ctx, ev)
	}
}

func (c *Context) markVisited(id string) {
	c.history = append(c.history, id)
	c.visited[id] = struct{}{}
}
