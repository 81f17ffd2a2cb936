package dsl

import "github.com/aretw0/parley/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Text sets the line of the node.
func (n *NodeBuilder) Text(content string) *NodeBuilder {
	n.node.Text = content
	return n
}

// Says sets speaker and line at once.
func (n *NodeBuilder) Says(speaker, content string) *NodeBuilder {
	n.node.Speaker = speaker
	n.node.Text = content
	return n
}

// Speaker sets the owning participant.
func (n *NodeBuilder) Speaker(name string) *NodeBuilder {
	n.node.Speaker = name
	return n
}

// Mood sets the speaker state hint.
func (n *NodeBuilder) Mood(state string) *NodeBuilder {
	n.node.SpeakerState = state
	return n
}

// End marks the node as an end node.
func (n *NodeBuilder) End() *NodeBuilder {
	n.node.Kind = domain.NodeEnd
	n.node.Children = nil
	return n
}

// First makes the node a selector entering its first satisfied child.
func (n *NodeBuilder) First() *NodeBuilder {
	n.node.Kind = domain.NodeSelector
	n.node.Selector = &domain.Selector{Policy: domain.SelectFirst}
	return n
}

// Random makes the node a selector entering a random satisfied child.
func (n *NodeBuilder) Random() *NodeBuilder {
	n.node.Kind = domain.NodeSelector
	n.node.Selector = &domain.Selector{Policy: domain.SelectRandom}
	return n
}

// Cycle makes a random selector use every satisfied child once before repeating.
func (n *NodeBuilder) Cycle() *NodeBuilder {
	n.ensureRandom()
	n.node.Selector.Cycle = true
	return n
}

// AvoidRepeat keeps a random selector from picking the same child twice in a row.
func (n *NodeBuilder) AvoidRepeat() *NodeBuilder {
	n.ensureRandom()
	n.node.Selector.AvoidRepeat = true
	return n
}

func (n *NodeBuilder) ensureRandom() {
	if n.node.Selector == nil || n.node.Selector.Policy != domain.SelectRandom {
		n.Random()
	}
}

// Line appends an entry to a sequence node.
func (n *NodeBuilder) Line(speaker, text, edgeText string) *NodeBuilder {
	n.node.Kind = domain.NodeSequence
	n.node.Sequence = append(n.node.Sequence, domain.SequenceEntry{Speaker: speaker, Text: text, EdgeText: edgeText})
	return n
}

// Proxy makes the node forward entry to target.
func (n *NodeBuilder) Proxy(target string) *NodeBuilder {
	n.node.Kind = domain.NodeProxy
	n.node.ProxyTo = target
	return n
}

// Custom marks the node with a host-defined kind. It behaves like a text node.
func (n *NodeBuilder) Custom(kind string) *NodeBuilder {
	n.node.Kind = domain.NodeCustom
	n.node.Custom = kind
	return n
}

// When adds enter conditions.
func (n *NodeBuilder) When(conds ...domain.Condition) *NodeBuilder {
	n.node.EnterConditions = append(n.node.EnterConditions, conds...)
	return n
}

// OnEnter adds enter events.
func (n *NodeBuilder) OnEnter(events ...domain.Event) *NodeBuilder {
	n.node.EnterEvents = append(n.node.EnterEvents, events...)
	return n
}

// Once allows a single entry across every context sharing the same memory.
func (n *NodeBuilder) Once() *NodeBuilder {
	n.node.Restriction = domain.RestrictOnce
	return n
}

// OncePerContext allows a single entry per conversation.
func (n *NodeBuilder) OncePerContext() *NodeBuilder {
	n.node.Restriction = domain.RestrictOncePerContext
	return n
}

// CheckChildren makes the node enterable only while it has a satisfied child.
func (n *NodeBuilder) CheckChildren() *NodeBuilder {
	n.node.CheckChildren = true
	return n
}

// Go adds a link without display text.
func (n *NodeBuilder) Go(target string, conds ...domain.Condition) *NodeBuilder {
	return n.Link(domain.ChildLink{Target: target, Conditions: conds})
}

// Option adds a link displayed with text.
func (n *NodeBuilder) Option(target, text string, conds ...domain.Condition) *NodeBuilder {
	return n.Link(domain.ChildLink{Target: target, Text: text, Conditions: conds})
}

// Link adds a fully specified link.
func (n *NodeBuilder) Link(l domain.ChildLink) *NodeBuilder {
	n.node.Children = append(n.node.Children, l)
	return n
}

// Meta attaches free-form metadata.
func (n *NodeBuilder) Meta(key, value string) *NodeBuilder {
	if n.node.Metadata == nil {
		n.node.Metadata = make(map[string]string)
	}
	n.node.Metadata[key] = value
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
