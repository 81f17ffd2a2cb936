// Package validator checks dialogue graphs before any context may run over them.
package validator

import (
	"fmt"
	"slices"

	"github.com/aretw0/parley/pkg/domain"
)

// Validate reports every structural problem of d as a *domain.MalformedGraphError.
// A nil error means contexts may be created over d.
func Validate(d *domain.Dialogue) error {
	if d == nil {
		return &domain.MalformedGraphError{Problems: []string{"dialogue is nil"}}
	}

	v := &checker{d: d, ids: make(map[string]*domain.Node, len(d.Nodes)), vars: make(map[string]domain.ValueKind)}
	v.run()

	if len(v.problems) > 0 {
		return &domain.MalformedGraphError{DialogueID: d.ID, Problems: v.problems}
	}
	return nil
}

type checker struct {
	d        *domain.Dialogue
	ids      map[string]*domain.Node
	vars     map[string]domain.ValueKind
	problems []string
}

func (v *checker) fail(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *checker) run() {
	if v.d.ID == "" {
		v.fail("dialogue id is empty")
	}
	if len(v.d.Nodes) == 0 {
		v.fail("dialogue has no nodes")
	}

	for i, n := range v.d.Nodes {
		switch {
		case n == nil:
			v.fail("node #%d is nil", i)
		case n.ID == "":
			v.fail("node #%d has an empty id", i)
		case v.ids[n.ID] != nil:
			v.fail("duplicate node id %q", n.ID)
		default:
			v.ids[n.ID] = n
		}
	}

	for _, decl := range v.d.Variables {
		if decl.Name == "" {
			v.fail("variable declaration with empty name")
			continue
		}
		if _, dup := v.vars[decl.Name]; dup {
			v.fail("variable %q declared twice", decl.Name)
		}
		if decl.Default.IsZero() {
			v.fail("variable %q has no default value", decl.Name)
		}
		v.vars[decl.Name] = decl.Default.Kind
	}

	if len(v.d.Start) == 0 {
		v.fail("no start node declared")
	}
	for _, s := range v.d.Start {
		if v.ids[s] == nil {
			v.fail("start node %q does not exist", s)
		}
	}

	for _, n := range v.d.Nodes {
		if n != nil && n.ID != "" {
			v.checkNode(n)
		}
	}
}

func (v *checker) checkNode(n *domain.Node) {
	switch n.Kind {
	case domain.NodeText, domain.NodeCustom, domain.NodeSelector:
	case domain.NodeEnd:
		if len(n.Children) > 0 {
			v.fail("end node %q has children", n.ID)
		}
	case domain.NodeSequence:
		if len(n.Sequence) == 0 {
			v.fail("sequence node %q has no entries", n.ID)
		}
	case domain.NodeProxy:
		switch {
		case n.ProxyTo == "":
			v.fail("proxy node %q has no target", n.ID)
		case n.ProxyTo == n.ID:
			v.fail("proxy node %q targets itself", n.ID)
		case v.ids[n.ProxyTo] == nil:
			v.fail("proxy node %q targets missing node %q", n.ID, n.ProxyTo)
		}
		if len(n.Children) > 0 {
			v.fail("proxy node %q has children", n.ID)
		}
	default:
		v.fail("node %q has unknown kind %q", n.ID, n.Kind)
	}

	if n.Selector != nil {
		if n.Kind != domain.NodeSelector {
			v.fail("node %q is not a selector but has selector settings", n.ID)
		}
		if p := n.Selector.Policy; p != "" && p != domain.SelectFirst && p != domain.SelectRandom {
			v.fail("selector %q has unknown policy %q", n.ID, p)
		}
	}

	switch n.Restriction {
	case domain.RestrictNone, domain.RestrictOnce, domain.RestrictOncePerContext:
	default:
		v.fail("node %q has unknown restriction %q", n.ID, n.Restriction)
	}

	for _, name := range n.Participants() {
		if !v.d.HasParticipant(name) {
			v.fail("node %q references undeclared participant %q", n.ID, name)
		}
	}

	v.checkConditions(n.ID, n.EnterConditions)
	v.checkEvents(n.ID, n.EnterEvents)

	for i, l := range n.Children {
		where := fmt.Sprintf("%s->#%d", n.ID, i)
		switch {
		case l.Target == "":
			v.fail("child %s has no target", where)
		case v.ids[l.Target] == nil:
			v.fail("child %s targets missing node %q", where, l.Target)
		case l.Target == n.ID && !l.AllowCycle:
			v.fail("child %s targets its own node without allow_cycle", where)
		}
		v.checkConditions(where, l.Conditions)
		v.checkEvents(where, l.Events)
	}
}

var operations = []domain.Operation{
	"", domain.OpEqual, domain.OpNotEqual, domain.OpLess,
	domain.OpLessOrEqual, domain.OpGreater, domain.OpGreaterOrEqual,
}

func (v *checker) checkConditions(where string, conds []domain.Condition) {
	for i, c := range conds {
		at := fmt.Sprintf("%s condition #%d", where, i)
		if !slices.Contains(operations, c.Op) {
			v.fail("%s: unknown operation %q", at, c.Op)
		}
		switch c.Kind {
		case domain.CondCompare:
			if c.Variable == "" {
				v.fail("%s: compare without variable", at)
			}
			if c.OtherVariable == "" && c.Value.IsZero() {
				v.fail("%s: compare without value", at)
			}
			v.checkKinds(at, c.Variable, c.Value.Kind)
			if c.OtherVariable != "" {
				v.checkKinds(at, c.Variable, v.vars[c.OtherVariable])
			}
		case domain.CondParticipantValue, domain.CondParticipantCheck:
			if c.Variable == "" {
				v.fail("%s: %s without name", at, c.Kind)
			}
		case domain.CondVisited, domain.CondHasSatisfiedChild:
			if v.ids[c.NodeID] == nil {
				v.fail("%s: %s refers to missing node %q", at, c.Kind, c.NodeID)
			}
		case domain.CondSetContains:
			if c.Variable == "" || c.Value.Name == "" {
				v.fail("%s: set_contains needs a variable and a member", at)
			}
			v.checkKinds(at, c.Variable, domain.KindSet)
		case domain.CondCustom:
			if c.Custom == "" {
				v.fail("%s: custom condition without name", at)
			}
		default:
			v.fail("%s: unknown kind %q", at, c.Kind)
		}
	}
}

func (v *checker) checkEvents(where string, events []domain.Event) {
	for i, e := range events {
		at := fmt.Sprintf("%s event #%d", where, i)
		switch e.Kind {
		case domain.EventSet:
			if e.Variable == "" || e.Value.IsZero() {
				v.fail("%s: set needs a variable and a value", at)
			}
			v.checkKinds(at, e.Variable, e.Value.Kind)
		case domain.EventModify:
			if e.Variable == "" {
				v.fail("%s: modify without variable", at)
			}
			if e.Value.Kind != domain.KindInt && e.Value.Kind != domain.KindFloat {
				v.fail("%s: modify needs a numeric delta", at)
			}
			if declared, ok := v.vars[e.Variable]; ok && declared != e.Value.Kind {
				v.fail("%s: %s delta on %s variable %q", at, e.Value.Kind, declared, e.Variable)
			}
		case domain.EventAddToSet, domain.EventRemoveFromSet:
			if e.Variable == "" || e.Value.Name == "" {
				v.fail("%s: %s needs a variable and a member", at, e.Kind)
			}
			v.checkKinds(at, e.Variable, domain.KindSet)
		case domain.EventNotify:
			if e.Name == "" {
				v.fail("%s: notify without name", at)
			}
		case domain.EventCustom:
			if e.Custom == "" {
				v.fail("%s: custom event without name", at)
			}
		default:
			v.fail("%s: unknown kind %q", at, e.Kind)
		}
	}
}

// checkKinds flags a declared variable used with an incompatible kind.
// Int and float are interchangeable for comparisons.
func (v *checker) checkKinds(at, variable string, got domain.ValueKind) {
	declared, ok := v.vars[variable]
	if !ok || got == "" || declared == got {
		return
	}
	numeric := func(k domain.ValueKind) bool { return k == domain.KindInt || k == domain.KindFloat }
	if numeric(declared) && numeric(got) {
		return
	}
	v.fail("%s: variable %q is %s, used as %s", at, variable, declared, got)
}

// Unreachable returns, in declaration order, the ids of nodes no start node can reach.
// Unreachable nodes are not an error; tooling reports them as warnings.
func Unreachable(d *domain.Dialogue) []string {
	visited := make(map[string]bool)
	queue := slices.Clone(d.Start)

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		n, ok := d.Node(currentID)
		if !ok {
			continue
		}
		for _, l := range n.Children {
			if !visited[l.Target] {
				queue = append(queue, l.Target)
			}
		}
		if n.ProxyTo != "" && !visited[n.ProxyTo] {
			queue = append(queue, n.ProxyTo)
		}
	}

	var out []string
	for _, id := range d.NodeIDs() {
		if !visited[id] {
			out = append(out, id)
		}
	}
	return out
}
