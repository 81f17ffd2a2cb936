package dsl

import (
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleDialogue(t *testing.T) {
	b := New("tavern").Name("Tavern").Participants("barkeep").Var("gold", domain.Int(5))

	b.Add("start").
		Says("barkeep", "What'll it be?").
		Mood("grumpy").
		Option("ale", "Ale", domain.Compare("gold", domain.OpGreaterOrEqual, domain.Int(2))).
		Option("bye", "Nothing")

	b.Add("ale").
		Says("barkeep", "Here you go.").
		OnEnter(domain.ModifyVar("gold", domain.Int(-2))).
		Go("bye")

	b.Add("bye").End()

	d, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "tavern", d.ID)
	assert.Equal(t, "Tavern", d.Name)
	assert.Equal(t, []string{"start"}, d.Start, "first node is the default start")
	assert.Equal(t, []string{"start", "ale", "bye"}, d.NodeIDs())

	start, ok := d.Node("start")
	require.True(t, ok)
	assert.Equal(t, domain.NodeText, start.Kind)
	assert.Equal(t, "grumpy", start.SpeakerState)
	require.Len(t, start.Children, 2)
	assert.Equal(t, "Ale", start.Children[0].Text)
	assert.Len(t, start.Children[0].Conditions, 1)
}

func TestBuilder_Add_ReturnsExisting(t *testing.T) {
	b := New("d")
	first := b.Add("a")
	assert.Same(t, first, b.Add("a"))
}

func TestBuilder_NodeKinds(t *testing.T) {
	b := New("kinds").Start("sel")
	b.Add("sel").Cycle().AvoidRepeat().Go("seq").Go("proxy")
	b.Add("seq").Line("", "one", "next").Line("", "two", "").Go("end")
	b.Add("proxy").Proxy("seq")
	b.Add("custom").Custom("shop").Once().CheckChildren().Go("end")
	b.Add("end").End()

	d := b.MustBuild()

	sel, _ := d.Node("sel")
	assert.Equal(t, domain.NodeSelector, sel.Kind)
	assert.Equal(t, &domain.Selector{Policy: domain.SelectRandom, Cycle: true, AvoidRepeat: true}, sel.Selector)

	seq, _ := d.Node("seq")
	assert.Equal(t, domain.NodeSequence, seq.Kind)
	assert.Len(t, seq.Sequence, 2)

	custom, _ := d.Node("custom")
	assert.Equal(t, domain.RestrictOnce, custom.Restriction)
	assert.True(t, custom.CheckChildren)
}

func TestBuilder_Invalid(t *testing.T) {
	b := New("broken")
	b.Add("start").Go("ghost")

	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)
	assert.Panics(t, func() { b.MustBuild() })
}

func TestBuilder_UndeclaredParticipant(t *testing.T) {
	b := New("d")
	b.Add("start").Says("stranger", "Hi")

	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)
}
