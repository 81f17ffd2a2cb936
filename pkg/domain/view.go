package domain

// Option is one entry of a context's option list.
type Option struct {
	Index        int    `json:"index"`
	Text         string `json:"text,omitempty"`
	SpeakerState string `json:"speaker_state,omitempty"`
	Target       string `json:"target"`
	// Satisfied is false only for links listed through IncludeIfUnsatisfied.
	Satisfied bool `json:"satisfied"`
}

// View is what the presentation layer needs to render the current line.
type View struct {
	SessionID    string   `json:"session_id,omitempty"`
	DialogueID   string   `json:"dialogue_id"`
	NodeID       string   `json:"node_id,omitempty"`
	Speaker      string   `json:"speaker,omitempty"`
	SpeakerState string   `json:"speaker_state,omitempty"`
	Text         string   `json:"text,omitempty"`
	Options      []Option `json:"options"`
	Finished     bool     `json:"finished"`
}
