package domain

// ChildLink is a directed, ordered edge from a node to one of its children.
// Links of a node are evaluated in declaration order; first-satisfied policies rely on it.
type ChildLink struct {
	Target string `json:"target" yaml:"target"`

	// Text is the option label shown to the player. Links out of selectors and speech
	// sequences are never displayed.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	// SpeakerState is an opaque hint for the presentation layer (mood, animation).
	SpeakerState string `json:"speaker_state,omitempty" yaml:"speaker_state,omitempty"`

	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	// Events fire when this link is taken, before the target node is entered.
	Events []Event `json:"events,omitempty" yaml:"events,omitempty"`

	// IncludeIfUnsatisfied keeps the link in the "all options" list even when its
	// conditions fail, flagged as unsatisfied.
	IncludeIfUnsatisfied bool `json:"include_if_unsatisfied,omitempty" yaml:"include_if_unsatisfied,omitempty"`

	// AllowCycle permits a link whose target is its own parent node.
	AllowCycle bool `json:"allow_cycle,omitempty" yaml:"allow_cycle,omitempty"`
}
