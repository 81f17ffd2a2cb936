package domain

// ConditionKind selects how a Condition is evaluated.
type ConditionKind string

const (
	// CondCompare compares a bag variable against a constant or another variable.
	CondCompare ConditionKind = "compare"
	// CondParticipantValue compares a value exposed by a participant.
	CondParticipantValue ConditionKind = "participant_value"
	// CondParticipantCheck asks the participant to check a named condition.
	CondParticipantCheck ConditionKind = "participant_check"
	// CondVisited checks whether a node was visited before.
	CondVisited ConditionKind = "visited"
	// CondHasSatisfiedChild checks whether a node has at least one satisfied child.
	CondHasSatisfiedChild ConditionKind = "has_satisfied_child"
	// CondSetContains checks whether a set variable contains a name.
	CondSetContains ConditionKind = "set_contains"
	// CondCustom delegates to a registered custom condition.
	CondCustom ConditionKind = "custom"
)

// Condition is a predicate gating entry into a node or a child link.
//
// A list of conditions holds when every condition without Or holds and, if any
// condition has Or set, at least one of those does. The Or conditions form a single
// any-of pool wherever they sit in the list.
type Condition struct {
	Kind ConditionKind `json:"kind" yaml:"kind"`

	// Or moves this condition into the list's any-of pool.
	Or bool `json:"or,omitempty" yaml:"or,omitempty"`

	// Participant resolves the participant handle. Empty means the owning node speaker.
	Participant string `json:"participant,omitempty" yaml:"participant,omitempty"`

	// Variable is the left operand (bag variable or participant value name),
	// or the check name for CondParticipantCheck, or the set variable for CondSetContains.
	Variable string    `json:"variable,omitempty" yaml:"variable,omitempty"`
	Op       Operation `json:"op,omitempty" yaml:"op,omitempty"`

	// Value is the constant right operand. For CondSetContains Value.Name is the member.
	Value Value `json:"value,omitempty" yaml:"value,omitempty"`

	// OtherVariable, when set, makes the right operand another bag variable
	// (or, for CondParticipantValue, a value of OtherParticipant).
	OtherVariable    string `json:"other_variable,omitempty" yaml:"other_variable,omitempty"`
	OtherParticipant string `json:"other_participant,omitempty" yaml:"other_participant,omitempty"`

	// NodeID is the node inspected by CondVisited and CondHasSatisfiedChild.
	NodeID string `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	// LongTerm makes CondVisited consult long-term memory instead of the context history.
	LongTerm bool `json:"long_term,omitempty" yaml:"long_term,omitempty"`

	// Expect is the boolean the check must produce for the condition to hold.
	// Used by check-style kinds (participant_check, visited, has_satisfied_child, set_contains).
	Expect bool `json:"expect" yaml:"expect"`

	// Custom is the registry name of a custom condition.
	Custom string         `json:"custom,omitempty" yaml:"custom,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// AnyOf returns a copy of c placed in the any-of pool of its list.
func (c Condition) AnyOf() Condition {
	c.Or = true
	return c
}

// Of returns a copy of c bound to a participant.
func (c Condition) Of(participant string) Condition {
	c.Participant = participant
	return c
}

// Compare builds a variable comparison against a constant.
func Compare(variable string, op Operation, value Value) Condition {
	return Condition{Kind: CondCompare, Variable: variable, Op: op, Value: value}
}

// CompareVariables builds a comparison between two bag variables.
func CompareVariables(variable string, op Operation, other string) Condition {
	return Condition{Kind: CondCompare, Variable: variable, Op: op, OtherVariable: other}
}

// ParticipantValue builds a comparison of a participant exposed value against a constant.
func ParticipantValue(participant, name string, op Operation, value Value) Condition {
	return Condition{Kind: CondParticipantValue, Participant: participant, Variable: name, Op: op, Value: value}
}

// ParticipantCheck builds a named participant check expected to return expect.
func ParticipantCheck(participant, name string, expect bool) Condition {
	return Condition{Kind: CondParticipantCheck, Participant: participant, Variable: name, Expect: expect}
}

// Visited builds a "was node visited" check against this context's history.
func Visited(nodeID string, expect bool) Condition {
	return Condition{Kind: CondVisited, NodeID: nodeID, Expect: expect}
}

// VisitedEver builds a "was node visited" check against long-term memory.
func VisitedEver(nodeID string, expect bool) Condition {
	return Condition{Kind: CondVisited, NodeID: nodeID, LongTerm: true, Expect: expect}
}

// HasSatisfiedChild builds a check on whether nodeID currently has a satisfied child.
func HasSatisfiedChild(nodeID string, expect bool) Condition {
	return Condition{Kind: CondHasSatisfiedChild, NodeID: nodeID, Expect: expect}
}

// SetContains builds a membership check on a set variable.
func SetContains(variable, member string, expect bool) Condition {
	return Condition{Kind: CondSetContains, Variable: variable, Value: Name(member), Expect: expect}
}

// CustomCondition builds a reference to a registered custom condition.
func CustomCondition(name string, params map[string]any) Condition {
	return Condition{Kind: CondCustom, Custom: name, Params: params}
}

// InvolvesParticipant reports whether evaluating c requires a participant handle.
func (c Condition) InvolvesParticipant() bool {
	return c.Kind == CondParticipantValue || c.Kind == CondParticipantCheck || c.Kind == CondCustom
}
