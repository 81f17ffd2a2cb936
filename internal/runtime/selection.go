package runtime

import (
	"context"
	"slices"

	"github.com/aretw0/parley/pkg/domain"
)

// refreshOptions filters the children of n, keeping link order.
// A link is satisfied when its own conditions hold and its target may be entered.
func (c *Context) refreshOptions(ctx context.Context, n *domain.Node) {
	c.options, c.all = nil, nil
	for _, l := range n.Children {
		target, ok := c.dialogue.Node(l.Target)
		if !ok {
			continue
		}
		o := option{link: l, target: target, satisfied: c.linkSatisfied(ctx, n, l, target)}
		switch {
		case o.satisfied:
			c.options = append(c.options, o)
			c.all = append(c.all, o)
		case l.IncludeIfUnsatisfied:
			c.all = append(c.all, o)
		}
	}
}

func (c *Context) linkSatisfied(ctx context.Context, parent *domain.Node, l domain.ChildLink, target *domain.Node) bool {
	return c.evalConditions(ctx, l.Conditions, parent) && c.canEnter(ctx, target)
}

// canEnter checks the entry restriction, the enter conditions and, when flagged,
// that the node has a satisfied child.
func (c *Context) canEnter(ctx context.Context, n *domain.Node) bool {
	switch n.Restriction {
	case domain.RestrictOnce:
		if c.cfg.Memory != nil {
			if c.cfg.Memory.WasVisited(c.dialogue.ID, n.ID) {
				return false
			}
		} else if c.Visited(n.ID) {
			return false
		}
	case domain.RestrictOncePerContext:
		if c.Visited(n.ID) {
			return false
		}
	}

	if !c.evalConditions(ctx, n.EnterConditions, n) {
		return false
	}
	if n.CheckChildren && !c.hasSatisfiedChild(ctx, n) {
		return false
	}
	return true
}

func (c *Context) hasSatisfiedChild(ctx context.Context, n *domain.Node) bool {
	if _, busy := c.checking[n.ID]; busy {
		return false
	}
	c.checking[n.ID] = struct{}{}
	defer delete(c.checking, n.ID)

	if n.Kind == domain.NodeProxy {
		target, ok := c.dialogue.Node(n.ProxyTo)
		return ok && c.canEnter(ctx, target)
	}

	for _, l := range n.Children {
		target, ok := c.dialogue.Node(l.Target)
		if ok && c.linkSatisfied(ctx, n, l, target) {
			return true
		}
	}
	return false
}

// selectChild applies the selector policy to the satisfied options.
func (c *Context) selectChild(n *domain.Node) (option, bool) {
	if len(c.options) == 0 {
		return option{}, false
	}
	if n.Policy() == domain.SelectFirst {
		return c.options[0], true
	}

	sel := n.Selector
	used := c.selectorMemory[n.ID]
	var last string
	if len(used) > 0 {
		last = used[len(used)-1]
	}

	pool := c.options
	if sel.Cycle {
		pool = slices.DeleteFunc(slices.Clone(c.options), func(o option) bool {
			return slices.Contains(used, o.link.Target)
		})
		if len(pool) == 0 {
			used = nil
			pool = c.options
		}
	}
	if sel.AvoidRepeat && last != "" && len(pool) > 1 {
		rest := slices.DeleteFunc(slices.Clone(pool), func(o option) bool { return o.link.Target == last })
		if len(rest) > 0 {
			pool = rest
		}
	}

	i := int(c.cfg.Random.Float64() * float64(len(pool)))
	i = min(max(i, 0), len(pool)-1)
	picked := pool[i]

	if sel.Cycle {
		c.selectorMemory[n.ID] = append(used, picked.link.Target)
	} else {
		c.selectorMemory[n.ID] = []string{picked.link.Target}
	}
	return picked, true
}
