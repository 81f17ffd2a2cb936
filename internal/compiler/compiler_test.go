package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/compiler"
	"github.com/aretw0/parley/pkg/domain"
)

const tavernYAML = `
id: tavern
name: The Tavern
participants: [barkeep, player]
variables:
  - name: gold
    default: 5
  - name: trust
    type: float
    default: 1
  - name: items
    type: set
nodes:
  - id: greet
    speaker: barkeep
    text: What'll it be?
    on_enter:
      - kind: notify
        participant: barkeep
        name: wave
    options:
      - to: ale
        text: An ale.
        when:
          - kind: compare
            var: gold
            op: ">="
            value: 2
          - kind: participant_check
            participant: player
            name: rich
            or: true
        do:
          - kind: modify
            var: gold
            value: -2
          - kind: add_to_set
            var: items
            value: ale
      - to: bye
        text: Nothing.
  - id: ale
    policy: random
    cycle: true
    options:
      - to: bye
  - id: bye
    kind: end
`

func TestCompile_YAML(t *testing.T) {
	d, err := compiler.New().Compile([]byte(tavernYAML))
	require.NoError(t, err)

	assert.Equal(t, "tavern", d.ID)
	assert.Equal(t, []string{"greet"}, d.Start, "start defaults to the first node")
	assert.Equal(t, []string{"barkeep", "player"}, d.Participants)

	require.Len(t, d.Variables, 3)
	assert.Equal(t, domain.Int(5), d.Variables[0].Default)
	assert.Equal(t, domain.Float(1), d.Variables[1].Default)
	assert.Equal(t, domain.KindSet, d.Variables[2].Default.Kind)

	greet, ok := d.Node("greet")
	require.True(t, ok)
	assert.Equal(t, domain.NodeText, greet.Kind)
	require.Len(t, greet.EnterEvents, 1)
	assert.Equal(t, domain.Notify("barkeep", "wave"), greet.EnterEvents[0])

	require.Len(t, greet.Children, 2)
	ale := greet.Children[0]
	want := domain.Compare("gold", domain.OpGreaterOrEqual, domain.Int(2))
	want.Expect = true
	assert.Equal(t, want, ale.Conditions[0])
	assert.Equal(t, domain.ParticipantCheck("player", "rich", true).AnyOf(), ale.Conditions[1])
	assert.Equal(t, domain.ModifyVar("gold", domain.Int(-2)), ale.Events[0])
	assert.Equal(t, domain.AddToSet("items", "ale"), ale.Events[1])

	sel, ok := d.Node("ale")
	require.True(t, ok)
	assert.Equal(t, domain.NodeSelector, sel.Kind)
	assert.Equal(t, &domain.Selector{Policy: domain.SelectRandom, Cycle: true}, sel.Selector)
}

func TestCompile_JSON(t *testing.T) {
	doc := `{
		"id": "short",
		"start": "a",
		"nodes": [
			{"id": "a", "sequence": [{"text": "one"}, {"text": "two"}], "options": [{"to": "b"}]},
			{"id": "b", "proxy_to": "c"},
			{"id": "c", "kind": "end"}
		]
	}`
	d, err := compiler.New().Compile([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, d.Start, "a single start string is accepted")
	a, _ := d.Node("a")
	assert.Equal(t, domain.NodeSequence, a.Kind)
	assert.Len(t, a.Sequence, 2)
	b, _ := d.Node("b")
	assert.Equal(t, domain.NodeProxy, b.Kind)
}

func TestCompile_FloatHintOnSet(t *testing.T) {
	doc := `
id: f
variables:
  - name: trust
    default: 0.5
nodes:
  - id: a
    on_enter:
      - kind: set
        var: trust
        value: 2
      - kind: modify
        var: trust
        value: -1
    options:
      - to: b
        when:
          - kind: compare
            var: trust
            op: gt
            value: 1
  - id: b
    kind: end
`
	d, err := compiler.New().Compile([]byte(doc))
	require.NoError(t, err)
	a, _ := d.Node("a")
	assert.Equal(t, domain.Float(2), a.EnterEvents[0].Value)
	assert.Equal(t, domain.Float(-1), a.EnterEvents[1].Value, "authored deltas take the variable's kind")
	assert.Equal(t, domain.Float(1), a.Children[0].Conditions[0].Value)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		is   error
		msg  string
	}{
		{
			name: "Not YAML",
			doc:  "id: [unclosed",
			msg:  "failed to parse",
		},
		{
			name: "Empty",
			doc:  "",
			msg:  "empty document",
		},
		{
			name: "Unknown Key",
			doc:  "id: x\nnodez: []",
			msg:  "nodez",
		},
		{
			name: "Missing Nodes",
			doc:  "id: x",
			is:   domain.ErrMalformedGraph,
			msg:  "Nodes",
		},
		{
			name: "Bad Condition Kind",
			doc:  "id: x\nnodes:\n  - id: a\n    when:\n      - kind: magic",
			is:   domain.ErrMalformedGraph,
			msg:  "oneof",
		},
		{
			name: "Variable Without Default",
			doc:  "id: x\nvariables:\n  - name: v\nnodes:\n  - id: a",
			is:   domain.ErrMalformedGraph,
			msg:  "missing value",
		},
		{
			name: "Dangling Target",
			doc:  "id: x\nnodes:\n  - id: a\n    options:\n      - to: nowhere",
			is:   domain.ErrMalformedGraph,
			msg:  "nowhere",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.New().Compile([]byte(tt.doc))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCompileMap_FrontMatter(t *testing.T) {
	raw := map[string]any{
		"id": "fm",
		"nodes": []any{
			map[string]any{"id": "only", "text": "hello"},
		},
	}
	d, err := compiler.New().CompileMap(raw)
	require.NoError(t, err)
	n, ok := d.Node("only")
	require.True(t, ok)
	assert.True(t, n.IsTerminal())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		hint domain.ValueKind
		want domain.Value
	}{
		{"Bool", true, "", domain.Bool(true)},
		{"Int", 3, "", domain.Int(3)},
		{"JSON Number As Int", float64(4), domain.KindInt, domain.Int(4)},
		{"Fraction Stays Float", 1.5, "", domain.Float(1.5)},
		{"Int As Float", 2, domain.KindFloat, domain.Float(2)},
		{"Name", "guard", "", domain.Name("guard")},
		{"Number As Name", 7, domain.KindName, domain.Name("7")},
		{"Set", []any{"a", "b"}, "", domain.Set("a", "b")},
		{"Empty Set", nil, domain.KindSet, domain.Set()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compiler.ParseValue(tt.raw, tt.hint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := compiler.ParseValue(nil, "")
	assert.Error(t, err)
	_, err = compiler.ParseValue(struct{}{}, "")
	assert.Error(t, err)
}
