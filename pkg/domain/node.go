package domain

// NodeKind defines the control flow behavior of a node.
type NodeKind string

const (
	// NodeText displays a line and waits for the player to pick one of its options.
	NodeText NodeKind = "text"
	// NodeSelector picks a child automatically according to its SelectorPolicy.
	NodeSelector NodeKind = "selector"
	// NodeEnd terminates the conversation when entered.
	NodeEnd NodeKind = "end"
	// NodeSequence plays a list of lines, one synthetic option per line, then exposes its children.
	NodeSequence NodeKind = "sequence"
	// NodeProxy forwards entry to another node.
	NodeProxy NodeKind = "proxy"
	// NodeCustom behaves like a text node; Custom names the host-side kind.
	NodeCustom NodeKind = "custom"
)

// SelectorPolicy defines how a selector node picks among its satisfied children.
type SelectorPolicy string

const (
	SelectFirst  SelectorPolicy = "first"
	SelectRandom SelectorPolicy = "random"
)

// EntryRestriction limits how often a node may be entered.
type EntryRestriction string

const (
	RestrictNone EntryRestriction = ""
	// RestrictOnce allows a single entry across all contexts (long-term memory).
	RestrictOnce EntryRestriction = "once"
	// RestrictOncePerContext allows a single entry per conversation.
	RestrictOncePerContext EntryRestriction = "once_per_context"
)

// Selector configures a NodeSelector.
type Selector struct {
	Policy SelectorPolicy `json:"policy" yaml:"policy"`
	// Cycle avoids repeating a random pick until every satisfied child was picked once.
	Cycle bool `json:"cycle,omitempty" yaml:"cycle,omitempty"`
	// AvoidRepeat never picks the same child twice in a row when there is another choice.
	AvoidRepeat bool `json:"avoid_repeat,omitempty" yaml:"avoid_repeat,omitempty"`
}

// SequenceEntry is one line of a NodeSequence.
type SequenceEntry struct {
	Speaker  string `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text     string `json:"text" yaml:"text"`
	EdgeText string `json:"edge_text,omitempty" yaml:"edge_text,omitempty"`
}

// Node is a vertex of the dialogue graph.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Kind NodeKind `json:"kind" yaml:"kind"`

	// Speaker is the participant that owns this node. Conditions and events with no
	// explicit participant resolve to it.
	Speaker string `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	// SpeakerState is an opaque hint for the presentation layer.
	SpeakerState string `json:"speaker_state,omitempty" yaml:"speaker_state,omitempty"`

	Children        []ChildLink `json:"children,omitempty" yaml:"children,omitempty"`
	EnterConditions []Condition `json:"enter_conditions,omitempty" yaml:"enter_conditions,omitempty"`
	EnterEvents     []Event     `json:"enter_events,omitempty" yaml:"enter_events,omitempty"`

	Restriction EntryRestriction `json:"restriction,omitempty" yaml:"restriction,omitempty"`
	// CheckChildren makes the node enterable only while it has a satisfied child.
	CheckChildren bool `json:"check_children,omitempty" yaml:"check_children,omitempty"`

	// Kind specific payloads.
	Selector *Selector       `json:"selector,omitempty" yaml:"selector,omitempty"`
	Sequence []SequenceEntry `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	ProxyTo  string          `json:"proxy_to,omitempty" yaml:"proxy_to,omitempty"`
	Custom   string          `json:"custom,omitempty" yaml:"custom,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsTerminal reports whether entering the node always ends the conversation.
// A node without children is treated as an end node regardless of its kind,
// except proxies, which never own children, and sequences with lines left to play.
func (n *Node) IsTerminal() bool {
	if n.Kind == NodeProxy || (n.Kind == NodeSequence && len(n.Sequence) > 1) {
		return false
	}
	return n.Kind == NodeEnd || len(n.Children) == 0
}

// AutoSelects reports whether the node picks its child without player input.
func (n *Node) AutoSelects() bool {
	return n.Kind == NodeSelector
}

// Policy returns the selector policy, defaulting to SelectFirst.
func (n *Node) Policy() SelectorPolicy {
	if n.Selector == nil || n.Selector.Policy == "" {
		return SelectFirst
	}
	return n.Selector.Policy
}

// Participants lists every participant name the node refers to, speaker first.
func (n *Node) Participants() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	add(n.Speaker)
	for _, e := range n.Sequence {
		add(e.Speaker)
	}
	addConditions := func(conds []Condition) {
		for _, c := range conds {
			add(c.Participant)
			add(c.OtherParticipant)
		}
	}
	addEvents := func(events []Event) {
		for _, e := range events {
			add(e.Participant)
		}
	}
	addConditions(n.EnterConditions)
	addEvents(n.EnterEvents)
	for _, l := range n.Children {
		addConditions(l.Conditions)
		addEvents(l.Events)
	}
	return out
}
