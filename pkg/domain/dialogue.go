package domain

// VariableDecl declares a variable and its default value. The default fixes its kind.
type VariableDecl struct {
	Name    string `json:"name" yaml:"name"`
	Default Value  `json:"default" yaml:"default"`
}

// Dialogue is the graph of one conversation definition.
// It is read-only once handed to the runtime; any number of contexts may share it.
type Dialogue struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Start lists the candidate start node ids. The first one is the default.
	Start []string `json:"start" yaml:"start"`

	Participants []string       `json:"participants,omitempty" yaml:"participants,omitempty"`
	Variables    []VariableDecl `json:"variables,omitempty" yaml:"variables,omitempty"`

	Nodes []*Node `json:"nodes" yaml:"nodes"`

	byID map[string]*Node
}

// NewDialogue assembles a dialogue and indexes its nodes.
// It performs no validation; see the validator for graph checks.
func NewDialogue(id, name string, start []string, nodes ...*Node) *Dialogue {
	d := &Dialogue{
		ID:    id,
		Name:  name,
		Start: start,
		Nodes: nodes,
	}
	d.Reindex()
	return d
}

// Reindex rebuilds the id lookup table. Call it after editing Nodes, never while a
// context references the dialogue.
func (d *Dialogue) Reindex() {
	d.byID = make(map[string]*Node, len(d.Nodes))
	for _, n := range d.Nodes {
		if n == nil {
			continue
		}
		if _, dup := d.byID[n.ID]; !dup {
			d.byID[n.ID] = n
		}
	}
}

// Node returns the node with the given id.
func (d *Dialogue) Node(id string) (*Node, bool) {
	if d.byID != nil {
		n, ok := d.byID[id]
		return n, ok
	}
	for _, n := range d.Nodes {
		if n != nil && n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// DefaultStart returns the first declared start node id, or "" if none.
func (d *Dialogue) DefaultStart() string {
	if len(d.Start) == 0 {
		return ""
	}
	return d.Start[0]
}

// IsStart reports whether id is one of the declared start nodes.
func (d *Dialogue) IsStart(id string) bool {
	for _, s := range d.Start {
		if s == id {
			return true
		}
	}
	return false
}

// HasParticipant reports whether name is declared.
func (d *Dialogue) HasParticipant(name string) bool {
	for _, p := range d.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// NodeIDs returns node ids in declaration order.
func (d *Dialogue) NodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		if n != nil {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
