package parley_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/bag"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
)

func tavern() *domain.Dialogue {
	b := dsl.New("tavern").Participants("barkeep").Var("gold", domain.Int(5))
	b.Add("greet").Says("barkeep", "What'll it be?").
		Option("ale", "An ale.", domain.Compare("gold", domain.OpGreaterOrEqual, domain.Int(2))).
		Option("bye", "Nothing.")
	b.Add("ale").Says("barkeep", "Here you go.").
		OnEnter(domain.ModifyVar("gold", domain.Int(-2))).
		Go("bye")
	b.Add("bye").End()
	return b.MustBuild()
}

const marketDoc = `
id: market
participants: [merchant]
nodes:
  - id: hello
    speaker: merchant
    text: Fresh fish!
    options:
      - to: bye
        text: No thanks.
  - id: bye
    kind: end
`

func newEngine(t *testing.T, opts ...parley.Option) *parley.Engine {
	t.Helper()
	eng := parley.New(opts...)
	require.NoError(t, eng.Register(tavern()))
	return eng
}

func TestEngine_CreateContext(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	c, err := eng.CreateContext(ctx, "tavern", nil, parley.WithSessionID("s1"))
	require.NoError(t, err)

	view := c.View()
	assert.Equal(t, "s1", view.SessionID)
	assert.Equal(t, "barkeep", view.Speaker)
	assert.Equal(t, "What'll it be?", view.Text)
	require.Len(t, view.Options, 2)

	_, err = c.ChooseOption(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "ale", c.CurrentNode().ID)

	gold, err := c.Bag().Get("gold")
	require.NoError(t, err)
	assert.Equal(t, domain.Int(3), gold)

	status, err := c.ChooseOption(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, status)

	_, err = c.ChooseOption(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrConversationEnded)
}

func TestEngine_StartNode(t *testing.T) {
	c, err := newEngine(t).CreateContext(context.Background(), "tavern", nil, parley.WithStartNode("ale"))
	require.NoError(t, err)
	assert.Equal(t, "ale", c.CurrentNode().ID)
}

func TestEngine_Register_Invalid(t *testing.T) {
	eng := parley.New()
	d := domain.NewDialogue("broken", "", []string{"a"},
		&domain.Node{ID: "a", Kind: domain.NodeText, Children: []domain.ChildLink{{Target: "ghost"}}},
	)
	assert.ErrorIs(t, eng.Register(d), domain.ErrMalformedGraph)

	_, err := eng.CreateContext(context.Background(), "broken", nil)
	assert.ErrorIs(t, err, domain.ErrDialogueNotFound)
}

func TestEngine_Loader(t *testing.T) {
	ctx := context.Background()
	loader := memory.NewLoader(map[string]string{"market": marketDoc})
	eng := newEngine(t, parley.WithLoader(loader))

	ids, err := eng.Dialogues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"market", "tavern"}, ids)

	c, err := eng.CreateContext(ctx, "market", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fresh fish!", c.View().Text)

	loader.Add("market", []byte(`{"id": "market", "nodes": [{"id": "hello", "text": "Closed."}]}`))
	d, err := eng.Dialogue(ctx, "market")
	require.NoError(t, err)
	hello, _ := d.Node("hello")
	assert.Equal(t, "Fresh fish!", hello.Text, "loaded dialogues are cached")

	d, err = eng.Reload(ctx, "market")
	require.NoError(t, err)
	hello, _ = d.Node("hello")
	assert.Equal(t, "Closed.", hello.Text)

	_, err = eng.Dialogue(ctx, "nowhere")
	assert.ErrorIs(t, err, domain.ErrDialogueNotFound)
}

func TestEngine_RegisterDocument(t *testing.T) {
	eng := parley.New()
	d, err := eng.RegisterDocument([]byte(marketDoc))
	require.NoError(t, err)
	assert.Equal(t, "market", d.ID)

	_, err = eng.RegisterDocument([]byte("id: x\nnodes: []"))
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)
}

func TestEngine_Resume(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	c, err := eng.CreateContext(ctx, "tavern", nil, parley.WithSessionID("s1"))
	require.NoError(t, err)
	_, err = c.ChooseOption(ctx, 0)
	require.NoError(t, err)
	snap := c.Snapshot()

	entered := 0
	eng2 := newEngine(t, parley.WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.NodeEvent) { entered++ },
	}))
	resumed, err := eng2.Resume(ctx, snap, bag.New())
	require.NoError(t, err)

	assert.Equal(t, 0, entered, "resume fires no enter hooks")
	assert.Equal(t, "ale", resumed.CurrentNode().ID)
	assert.Equal(t, "s1", resumed.SessionID())
	gold, _ := resumed.Bag().Get("gold")
	assert.Equal(t, domain.Int(3), gold, "events are not fired again")

	_, err = eng2.Resume(ctx, nil, nil)
	assert.Error(t, err)
}

func TestEngine_SharedMemory(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("secret")
	b.Add("hub").Option("reveal", "Tell me.").Option("bye", "Bye.")
	b.Add("reveal").Once().Text("The key is under the mat.").Go("bye")
	b.Add("bye").End()

	eng := parley.New()
	require.NoError(t, eng.Register(b.MustBuild()))

	first, err := eng.CreateContext(ctx, "secret", nil)
	require.NoError(t, err)
	assert.Len(t, first.CurrentOptions(), 2)
	_, err = first.ChooseOption(ctx, 0)
	require.NoError(t, err)

	second, err := eng.CreateContext(ctx, "secret", nil)
	require.NoError(t, err)
	require.Len(t, second.CurrentOptions(), 1, "a once node is gone for every later context")
	assert.Equal(t, "bye", second.CurrentOptions()[0].Target)
	assert.True(t, eng.Memory().WasVisited("secret", "reveal"))
}

func TestEngine_NoChildPolicy(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("stuck").Var("flag", domain.Bool(false))
	b.Add("a").Option("b", "Go", domain.Compare("flag", domain.OpEqual, domain.Bool(true)))
	b.Add("b").End()

	eng := parley.New(parley.WithNoChildPolicy(domain.NoChildContinue))
	require.NoError(t, eng.Register(b.MustBuild()))

	c, err := eng.CreateContext(ctx, "stuck", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingChoice, c.Status())
	assert.Empty(t, c.CurrentOptions())

	require.NoError(t, c.Bag().Set("flag", domain.Bool(true)))
	require.NoError(t, c.Reevaluate(ctx))
	assert.Len(t, c.CurrentOptions(), 1)
}

func TestEngine_Inspect(t *testing.T) {
	b := dsl.New("island")
	b.Add("a").Go("b")
	b.Add("b").End()
	b.Add("lost").Go("b")

	eng := parley.New()
	require.NoError(t, eng.Register(b.MustBuild()))

	in, err := eng.Inspect(context.Background(), "island")
	require.NoError(t, err)
	assert.Equal(t, "island", in.Dialogue.ID)
	assert.Equal(t, []string{"lost"}, in.Unreachable)
}

func TestEngine_Watch_Unsupported(t *testing.T) {
	_, err := parley.New().Watch(context.Background())
	assert.Error(t, err)
}
