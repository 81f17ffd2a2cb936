package domain

// EventKind selects what an Event does when fired.
type EventKind string

const (
	// EventSet writes Value into Variable.
	EventSet EventKind = "set"
	// EventModify adds Value (int or float) to a numeric Variable.
	EventModify EventKind = "modify"
	// EventAddToSet adds Value.Name to the set Variable.
	EventAddToSet EventKind = "add_to_set"
	// EventRemoveFromSet removes Value.Name from the set Variable.
	EventRemoveFromSet EventKind = "remove_from_set"
	// EventNotify calls OnDialogueEvent(Name) on the participant.
	EventNotify EventKind = "notify"
	// EventCustom delegates to a registered custom event.
	EventCustom EventKind = "custom"
)

// Event is a side effect fired when a node is entered or a child link is taken.
// Events may mutate the Data Bag and participants, never the traversal cursor.
type Event struct {
	Kind EventKind `json:"kind" yaml:"kind"`

	// Participant resolves the participant handle. Empty means the owning node speaker.
	Participant string `json:"participant,omitempty" yaml:"participant,omitempty"`

	Variable string `json:"variable,omitempty" yaml:"variable,omitempty"`
	Value    Value  `json:"value,omitempty" yaml:"value,omitempty"`

	// Name is the event name passed to participants for EventNotify.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Custom string         `json:"custom,omitempty" yaml:"custom,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Of returns a copy of e bound to a participant.
func (e Event) Of(participant string) Event {
	e.Participant = participant
	return e
}

// SetVar builds an event writing value into variable.
func SetVar(variable string, value Value) Event {
	return Event{Kind: EventSet, Variable: variable, Value: value}
}

// ModifyVar builds an event adding delta to a numeric variable.
func ModifyVar(variable string, delta Value) Event {
	return Event{Kind: EventModify, Variable: variable, Value: delta}
}

// AddToSet builds an event inserting member into a set variable.
func AddToSet(variable, member string) Event {
	return Event{Kind: EventAddToSet, Variable: variable, Value: Name(member)}
}

// RemoveFromSet builds an event removing member from a set variable.
func RemoveFromSet(variable, member string) Event {
	return Event{Kind: EventRemoveFromSet, Variable: variable, Value: Name(member)}
}

// Notify builds an event calling OnDialogueEvent on a participant.
func Notify(participant, name string) Event {
	return Event{Kind: EventNotify, Participant: participant, Name: name}
}

// CustomEvent builds a reference to a registered custom event.
func CustomEvent(name string, params map[string]any) Event {
	return Event{Kind: EventCustom, Custom: name, Params: params}
}

// InvolvesParticipant reports whether firing e requires a participant handle.
func (e Event) InvolvesParticipant() bool {
	return e.Kind == EventNotify
}
