// Package compiler turns authored dialogue documents (YAML or JSON) into validated
// in-memory dialogues. It is the offline step between authoring tools and the runtime.
package compiler

import (
	"errors"
	"fmt"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/parley/internal/validator"
	"github.com/aretw0/parley/pkg/domain"
)

// Compiler is responsible for converting raw documents into Dialogues.
type Compiler struct {
	validate *govalidator.Validate
}

// New creates a new compiler instance.
func New() *Compiler {
	return &Compiler{validate: govalidator.New()}
}

// Compile parses a YAML or JSON document and builds a validated dialogue.
func (c *Compiler) Compile(data []byte) (*domain.Dialogue, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dialogue document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to parse dialogue document: empty document")
	}
	return c.CompileMap(raw)
}

// CompileMap builds a dialogue from already decoded data, such as front matter.
func (c *Compiler) CompileMap(raw map[string]any) (*domain.Dialogue, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return c.CompileDocument(doc)
}

// Decode maps generic data onto a Document. Unknown keys are rejected so typos
// surface at compile time.
func Decode(raw map[string]any) (*Document, error) {
	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode dialogue document: %w", err)
	}
	return &doc, nil
}

// CompileDocument checks the document shape, converts it and validates the graph.
func (c *Compiler) CompileDocument(doc *Document) (*domain.Dialogue, error) {
	if err := c.validate.Struct(doc); err != nil {
		var verrs govalidator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return nil, &domain.MalformedGraphError{DialogueID: doc.ID, Problems: problems}
		}
		return nil, fmt.Errorf("invalid dialogue document: %w", err)
	}

	b := &build{kinds: make(map[string]domain.ValueKind)}
	d := b.dialogue(doc)
	if len(b.problems) > 0 {
		return nil, &domain.MalformedGraphError{DialogueID: doc.ID, Problems: b.problems}
	}
	if err := validator.Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// build accumulates conversion problems instead of stopping at the first.
type build struct {
	kinds    map[string]domain.ValueKind
	problems []string
}

func (b *build) fail(format string, args ...any) {
	b.problems = append(b.problems, fmt.Sprintf(format, args...))
}

func (b *build) dialogue(doc *Document) *domain.Dialogue {
	vars := make([]domain.VariableDecl, 0, len(doc.Variables))
	for _, v := range doc.Variables {
		val, err := ParseValue(v.Default, domain.ValueKind(v.Type))
		if err != nil {
			b.fail("variable %q: %v", v.Name, err)
			continue
		}
		b.kinds[v.Name] = val.Kind
		vars = append(vars, domain.VariableDecl{Name: v.Name, Default: val})
	}

	nodes := make([]*domain.Node, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		nodes = append(nodes, b.node(nd))
	}

	start := doc.Start
	if len(start) == 0 && len(nodes) > 0 {
		start = []string{nodes[0].ID}
	}

	d := domain.NewDialogue(doc.ID, doc.Name, start, nodes...)
	d.Participants = doc.Participants
	d.Variables = vars
	return d
}

func (b *build) node(nd NodeDoc) *domain.Node {
	n := &domain.Node{
		ID:            nd.ID,
		Kind:          domain.NodeKind(nd.Kind),
		Speaker:       nd.Speaker,
		Text:          nd.Text,
		SpeakerState:  nd.SpeakerState,
		Restriction:   domain.EntryRestriction(nd.Restriction),
		CheckChildren: nd.CheckChildren,
		ProxyTo:       nd.ProxyTo,
		Custom:        nd.Custom,
		Metadata:      nd.Metadata,
	}

	switch {
	case n.Kind != "":
	case nd.ProxyTo != "":
		n.Kind = domain.NodeProxy
	case len(nd.Sequence) > 0:
		n.Kind = domain.NodeSequence
	case nd.Policy != "":
		n.Kind = domain.NodeSelector
	default:
		n.Kind = domain.NodeText
	}

	if n.Kind == domain.NodeSelector {
		policy := domain.SelectorPolicy(nd.Policy)
		if policy == "" {
			policy = domain.SelectFirst
		}
		n.Selector = &domain.Selector{Policy: policy, Cycle: nd.Cycle, AvoidRepeat: nd.AvoidRepeat}
	}

	for _, s := range nd.Sequence {
		n.Sequence = append(n.Sequence, domain.SequenceEntry{Speaker: s.Speaker, Text: s.Text, EdgeText: s.EdgeText})
	}

	n.EnterConditions = b.conditions(nd.ID, nd.When)
	n.EnterEvents = b.events(nd.ID, nd.OnEnter)

	for i, l := range nd.Options {
		where := fmt.Sprintf("%s->#%d", nd.ID, i)
		n.Children = append(n.Children, domain.ChildLink{
			Target:               l.To,
			Text:                 l.Text,
			SpeakerState:         l.SpeakerState,
			Conditions:           b.conditions(where, l.When),
			Events:               b.events(where, l.Do),
			IncludeIfUnsatisfied: l.IncludeIfUnsatisfied,
			AllowCycle:           l.AllowCycle,
		})
	}
	return n
}

var opAliases = map[string]domain.Operation{
	"==": domain.OpEqual,
	"!=": domain.OpNotEqual,
	"<":  domain.OpLess,
	"<=": domain.OpLessOrEqual,
	">":  domain.OpGreater,
	">=": domain.OpGreaterOrEqual,
}

func (b *build) conditions(where string, docs []ConditionDoc) []domain.Condition {
	if len(docs) == 0 {
		return nil
	}
	out := make([]domain.Condition, 0, len(docs))
	for i, cd := range docs {
		op := domain.Operation(cd.Op)
		if alias, ok := opAliases[cd.Op]; ok {
			op = alias
		}
		expect := cd.Expect == nil || *cd.Expect

		c := domain.Condition{
			Kind:             domain.ConditionKind(cd.Kind),
			Or:               cd.Or,
			Participant:      cd.Participant,
			Variable:         cd.Var,
			Op:               op,
			OtherVariable:    cd.OtherVar,
			OtherParticipant: cd.OtherParticipant,
			NodeID:           cd.Node,
			LongTerm:         cd.LongTerm,
			Expect:           expect,
			Params:           cd.Params,
		}

		switch c.Kind {
		case domain.CondParticipantCheck:
			if c.Variable == "" {
				c.Variable = cd.Name
			}
		case domain.CondCustom:
			c.Custom = cd.Name
		case domain.CondSetContains:
			c.Value = domain.Name(fmt.Sprint(cd.Value))
		}

		if cd.Value != nil && c.Kind != domain.CondSetContains {
			hint := domain.ValueKind("")
			if c.Kind == domain.CondCompare && b.kinds[cd.Var] == domain.KindFloat {
				hint = domain.KindFloat
			}
			v, err := ParseValue(cd.Value, hint)
			if err != nil {
				b.fail("%s condition #%d: %v", where, i, err)
			}
			c.Value = v
		}
		out = append(out, c)
	}
	return out
}

func (b *build) events(where string, docs []EventDoc) []domain.Event {
	if len(docs) == 0 {
		return nil
	}
	out := make([]domain.Event, 0, len(docs))
	for i, ed := range docs {
		e := domain.Event{
			Kind:        domain.EventKind(ed.Kind),
			Participant: ed.Participant,
			Variable:    ed.Var,
			Name:        ed.Name,
			Params:      ed.Params,
		}
		switch e.Kind {
		case domain.EventCustom:
			e.Custom = ed.Name
			e.Name = ""
		case domain.EventAddToSet, domain.EventRemoveFromSet:
			e.Value = domain.Name(fmt.Sprint(ed.Value))
		case domain.EventSet, domain.EventModify:
			v, err := ParseValue(ed.Value, b.kinds[ed.Var])
			if err != nil {
				b.fail("%s event #%d: %v", where, i, err)
			}
			e.Value = v
		}
		out = append(out, e)
	}
	return out
}

// toValue converts an authored scalar to a Value. A non-empty hint forces the kind.
func ParseValue(raw any, hint domain.ValueKind) (domain.Value, error) {
	switch hint {
	case domain.KindFloat:
		switch v := raw.(type) {
		case int:
			return domain.Float(float64(v)), nil
		case int64:
			return domain.Float(float64(v)), nil
		case float64:
			return domain.Float(v), nil
		}
	case domain.KindName:
		if raw != nil {
			return domain.Name(fmt.Sprint(raw)), nil
		}
	case domain.KindSet:
		if raw == nil {
			return domain.Set(), nil
		}
	case domain.KindBool:
		if raw == nil {
			return domain.Bool(false), nil
		}
	case domain.KindInt:
		switch v := raw.(type) {
		case nil:
			return domain.Int(0), nil
		case float64:
			if v == float64(int64(v)) {
				return domain.Int(int64(v)), nil
			}
		}
	}

	switch v := raw.(type) {
	case bool:
		return domain.Bool(v), nil
	case int:
		return domain.Int(int64(v)), nil
	case int64:
		return domain.Int(v), nil
	case uint64:
		return domain.Int(int64(v)), nil
	case float64:
		return domain.Float(v), nil
	case string:
		return domain.Name(v), nil
	case []any:
		members := make([]string, 0, len(v))
		for _, m := range v {
			members = append(members, fmt.Sprint(m))
		}
		return domain.Set(members...), nil
	case nil:
		return domain.Value{}, fmt.Errorf("missing value")
	}
	return domain.Value{}, fmt.Errorf("unsupported value %v (%T)", raw, raw)
}
