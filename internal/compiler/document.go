package compiler

// Document is the authoring format of a dialogue, decoded from YAML or JSON.
// Field names follow front matter conventions so loam documents decode the same way.
type Document struct {
	ID           string        `json:"id,omitempty" mapstructure:"id" validate:"required"`
	Name         string        `json:"name,omitempty" mapstructure:"name"`
	Start        []string      `json:"start,omitempty" mapstructure:"start"`
	Participants []string      `json:"participants,omitempty" mapstructure:"participants" validate:"dive,required"`
	Variables    []VariableDoc `json:"variables,omitempty" mapstructure:"variables" validate:"dive"`
	Nodes        []NodeDoc     `json:"nodes,omitempty" mapstructure:"nodes" validate:"required,min=1,dive"`
}

// VariableDoc declares a variable. Type forces the kind; otherwise it is inferred
// from Default.
type VariableDoc struct {
	Name    string `json:"name,omitempty" mapstructure:"name" validate:"required"`
	Type    string `json:"type,omitempty" mapstructure:"type" validate:"omitempty,oneof=bool int float name set"`
	Default any    `json:"default,omitempty" mapstructure:"default"`
}

type NodeDoc struct {
	ID           string `json:"id,omitempty" mapstructure:"id" validate:"required"`
	Kind         string `json:"kind,omitempty" mapstructure:"kind" validate:"omitempty,oneof=text selector end sequence proxy custom"`
	Speaker      string `json:"speaker,omitempty" mapstructure:"speaker"`
	Text         string `json:"text,omitempty" mapstructure:"text"`
	SpeakerState string `json:"speaker_state,omitempty" mapstructure:"speaker_state"`

	Policy      string `json:"policy,omitempty" mapstructure:"policy" validate:"omitempty,oneof=first random"`
	Cycle       bool   `json:"cycle,omitempty" mapstructure:"cycle"`
	AvoidRepeat bool   `json:"avoid_repeat,omitempty" mapstructure:"avoid_repeat"`

	Restriction   string `json:"restriction,omitempty" mapstructure:"restriction" validate:"omitempty,oneof=once once_per_context"`
	CheckChildren bool   `json:"check_children,omitempty" mapstructure:"check_children"`

	ProxyTo  string        `json:"proxy_to,omitempty" mapstructure:"proxy_to"`
	Custom   string        `json:"custom,omitempty" mapstructure:"custom"`
	Sequence []SequenceDoc `json:"sequence,omitempty" mapstructure:"sequence" validate:"dive"`

	When     []ConditionDoc    `json:"when,omitempty" mapstructure:"when" validate:"dive"`
	OnEnter  []EventDoc        `json:"on_enter,omitempty" mapstructure:"on_enter" validate:"dive"`
	Options  []LinkDoc         `json:"options,omitempty" mapstructure:"options" validate:"dive"`
	Metadata map[string]string `json:"metadata,omitempty" mapstructure:"metadata"`
}

type SequenceDoc struct {
	Speaker  string `json:"speaker,omitempty" mapstructure:"speaker"`
	Text     string `json:"text,omitempty" mapstructure:"text" validate:"required"`
	EdgeText string `json:"edge_text,omitempty" mapstructure:"edge_text"`
}

type LinkDoc struct {
	To                   string         `json:"to,omitempty" mapstructure:"to" validate:"required"`
	Text                 string         `json:"text,omitempty" mapstructure:"text"`
	SpeakerState         string         `json:"speaker_state,omitempty" mapstructure:"speaker_state"`
	When                 []ConditionDoc `json:"when,omitempty" mapstructure:"when" validate:"dive"`
	Do                   []EventDoc     `json:"do,omitempty" mapstructure:"do" validate:"dive"`
	IncludeIfUnsatisfied bool           `json:"include_if_unsatisfied,omitempty" mapstructure:"include_if_unsatisfied"`
	AllowCycle           bool           `json:"allow_cycle,omitempty" mapstructure:"allow_cycle"`
}

// ConditionDoc is one authored condition. Name is the check name for
// participant_check and the registry name for custom conditions.
type ConditionDoc struct {
	Kind             string         `json:"kind,omitempty" mapstructure:"kind" validate:"required,oneof=compare participant_value participant_check visited has_satisfied_child set_contains custom"`
	Or               bool           `json:"or,omitempty" mapstructure:"or"`
	Participant      string         `json:"participant,omitempty" mapstructure:"participant"`
	Var              string         `json:"var,omitempty" mapstructure:"var"`
	Op               string         `json:"op,omitempty" mapstructure:"op" validate:"omitempty,oneof=eq ne lt le gt ge == != < <= > >="`
	Value            any            `json:"value,omitempty" mapstructure:"value"`
	OtherVar         string         `json:"other_var,omitempty" mapstructure:"other_var"`
	OtherParticipant string         `json:"other_participant,omitempty" mapstructure:"other_participant"`
	Node             string         `json:"node,omitempty" mapstructure:"node"`
	LongTerm         bool           `json:"long_term,omitempty" mapstructure:"long_term"`
	Expect           *bool          `json:"expect,omitempty" mapstructure:"expect"`
	Name             string         `json:"name,omitempty" mapstructure:"name"`
	Params           map[string]any `json:"params,omitempty" mapstructure:"params"`
}

// EventDoc is one authored event. Name is the notification name for notify and the
// registry name for custom events.
type EventDoc struct {
	Kind        string         `json:"kind,omitempty" mapstructure:"kind" validate:"required,oneof=set modify add_to_set remove_from_set notify custom"`
	Participant string         `json:"participant,omitempty" mapstructure:"participant"`
	Var         string         `json:"var,omitempty" mapstructure:"var"`
	Value       any            `json:"value,omitempty" mapstructure:"value"`
	Name        string         `json:"name,omitempty" mapstructure:"name"`
	Params      map[string]any `json:"params,omitempty" mapstructure:"params"`
}
