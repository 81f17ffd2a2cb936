package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/bag"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
	"github.com/aretw0/parley/pkg/history"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_OrderAndScope(t *testing.T) {
	b := dsl.New("events").Var("log", domain.Set()).Var("count", domain.Int(0))
	b.Add("start").Text("go").
		OnEnter(domain.AddToSet("log", "start"), domain.ModifyVar("count", domain.Int(1))).
		Link(domain.ChildLink{
			Target: "next",
			Text:   "next",
			Events: []domain.Event{domain.AddToSet("log", "edge"), domain.ModifyVar("count", domain.Int(10))},
		})
	b.Add("next").Text("done").
		OnEnter(domain.AddToSet("log", "next"), domain.ModifyVar("count", domain.Int(100))).
		Go("end")
	b.Add("end").End()

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, b.MustBuild(), nil)
	require.NoError(t, err)
	_, err = c.ChooseOption(ctx, 0)
	require.NoError(t, err)

	vars := c.Bag().Variables()
	assert.Equal(t, []string{"start", "edge", "next"}, vars["log"].Set)
	assert.Equal(t, int64(111), vars["count"].Int)
}

func TestEvents_TypeMismatchIsNonFatal(t *testing.T) {
	d := domain.NewDialogue("mismatch", "", []string{"start"},
		&domain.Node{
			ID: "start", Kind: domain.NodeText,
			// Validation cannot see kinds of undeclared variables.
			EnterEvents: []domain.Event{domain.SetVar("x", domain.Bool(true)), domain.SetVar("x", domain.Int(3)), domain.SetVar("y", domain.Int(1))},
			Children:    []domain.ChildLink{{Target: "end"}},
		},
		&domain.Node{ID: "end", Kind: domain.NodeEnd},
	)

	c, err := runtime.NewContext(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingChoice, c.Status())

	vars := c.Bag().Variables()
	assert.Equal(t, domain.Bool(true), vars["x"], "rejected write leaves the bag unchanged")
	assert.Equal(t, domain.Int(1), vars["y"], "later events still run")
}

func TestParticipants_Capabilities(t *testing.T) {
	b := dsl.New("npc").Participants("guard", "player")
	b.Add("start").Says("guard", "Papers?").
		Option("bribe", "Bribe", domain.ParticipantValue("", "greed", domain.OpGreater, domain.Int(5))).
		Option("show", "Show papers", domain.ParticipantCheck("player", "has_papers", true)).
		Option("compare", "Compare", domain.Condition{
			Kind: domain.CondParticipantValue, Participant: "guard", Variable: "rank",
			Op: domain.OpGreater, OtherParticipant: "player", OtherVariable: "rank",
		}).
		Option("end", "Leave")
	b.Add("bribe").Speaker("guard").OnEnter(domain.Notify("", "bribed")).Go("end")
	b.Add("show").Go("end")
	b.Add("compare").Go("end")
	b.Add("end").End()
	d := b.MustBuild()

	guard, player := newNPC(), newNPC()
	guard.values["greed"] = domain.Int(9)
	guard.values["rank"] = domain.Int(3)
	player.values["rank"] = domain.Int(1)
	player.checks["has_papers"] = false

	bg := bag.ForDialogue(d)
	bg.Bind("guard", guard)
	bg.Bind("player", player)

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, d, bg)
	require.NoError(t, err)

	var targets []string
	for _, o := range c.CurrentOptions() {
		targets = append(targets, o.Target)
	}
	assert.Equal(t, []string{"bribe", "compare", "end"}, targets)

	_, err = c.ChooseOption(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bribed"}, guard.events, "notify defaults to the node speaker")
}

func TestParticipants_Unresolved(t *testing.T) {
	b := dsl.New("ghost").Participants("ghost")
	b.Add("start").Text("?").
		OnEnter(domain.Notify("ghost", "boo")).
		Option("a", "a", domain.ParticipantCheck("ghost", "scary", false)).
		Option("end", "leave")
	b.Add("a").Go("end")
	b.Add("end").End()

	c, err := runtime.NewContext(context.Background(), b.MustBuild(), nil)
	require.NoError(t, err)
	require.Len(t, c.CurrentOptions(), 1, "conditions on missing participants are false")
	assert.Equal(t, "end", c.CurrentOptions()[0].Target)
}

func TestParticipants_WithoutCapability(t *testing.T) {
	b := dsl.New("rock").Participants("rock")
	b.Add("start").Says("rock", "...").
		OnEnter(domain.Notify("", "poke")).
		Option("a", "a", domain.ParticipantValue("", "mass", domain.OpGreater, domain.Int(0))).
		Option("end", "leave")
	b.Add("a").Go("end")
	b.Add("end").End()
	d := b.MustBuild()

	bg := bag.ForDialogue(d)
	bg.Bind("rock", struct{}{})

	c, err := runtime.NewContext(context.Background(), d, bg)
	require.NoError(t, err)
	assert.Len(t, c.CurrentOptions(), 1)
}

func TestVisitedConditions(t *testing.T) {
	b := dsl.New("visited")
	b.Add("hub").Text("hub").
		Option("story", "story", domain.Visited("story", false)).
		Option("again", "tell me again", domain.Visited("story", true)).
		Option("end", "bye")
	b.Add("story").Text("once upon a time").Go("hub")
	b.Add("again").Text("as I said").Go("hub")
	b.Add("end").End()

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, b.MustBuild(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"story", "end"}, targets(c.CurrentOptions()))

	mustChoose(t, c, 0) // story
	mustChoose(t, c, 0) // back to hub
	assert.Equal(t, []string{"again", "end"}, targets(c.CurrentOptions()))
}

func TestRestrictions(t *testing.T) {
	build := func() *domain.Dialogue {
		b := dsl.New("restrict")
		b.Add("hub").Text("hub").Option("local", "local").Option("global", "global").Option("end", "bye")
		b.Add("local").OncePerContext().Text("only once here").Go("hub")
		b.Add("global").Once().Text("only once ever").Go("hub")
		b.Add("end").End()
		return b.MustBuild()
	}
	d := build()
	mem := history.New()
	ctx := context.Background()

	c, err := runtime.NewContext(ctx, d, nil, runtime.WithMemory(mem))
	require.NoError(t, err)
	mustChoose(t, c, 0) // local
	mustChoose(t, c, 0) // hub
	assert.Equal(t, []string{"global", "end"}, targets(c.CurrentOptions()))
	mustChoose(t, c, 0) // global
	mustChoose(t, c, 0) // hub
	assert.Equal(t, []string{"end"}, targets(c.CurrentOptions()))

	// A second conversation remembers "global" but not "local".
	c2, err := runtime.NewContext(ctx, d, nil, runtime.WithMemory(mem))
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "end"}, targets(c2.CurrentOptions()))
	assert.True(t, mem.WasVisited("restrict", "global"))
}

func TestVisitedEver(t *testing.T) {
	b := dsl.New("ever")
	b.Add("start").Text("hi").
		Option("intro", "who are you?", domain.VisitedEver("intro", false)).
		Option("end", "bye")
	b.Add("intro").Text("I am me").Go("end")
	b.Add("end").End()
	d := b.MustBuild()

	mem := history.New()
	ctx := context.Background()
	c, err := runtime.NewContext(ctx, d, nil, runtime.WithMemory(mem))
	require.NoError(t, err)
	mustChoose(t, c, 0)

	c2, err := runtime.NewContext(ctx, d, nil, runtime.WithMemory(mem))
	require.NoError(t, err)
	assert.Equal(t, []string{"end"}, targets(c2.CurrentOptions()))
}

func TestCheckChildren(t *testing.T) {
	b := dsl.New("check").Var("flag", domain.Bool(false))
	b.Add("start").Text("?").Option("menu", "menu").Option("end", "bye")
	b.Add("menu").CheckChildren().Text("menu").Option("item", "item", yes)
	b.Add("item").Go("end")
	b.Add("end").End()
	d := b.MustBuild()

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, d, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"end"}, targets(c.CurrentOptions()))

	require.NoError(t, c.Bag().Set("flag", domain.Bool(true)))
	require.NoError(t, c.Reevaluate(ctx))
	assert.Equal(t, []string{"menu", "end"}, targets(c.CurrentOptions()))
}

func TestHasSatisfiedChildCondition(t *testing.T) {
	b := dsl.New("hsc").Var("flag", domain.Bool(false))
	b.Add("start").Text("?").
		Option("shop", "shop", domain.HasSatisfiedChild("shop", true)).
		Option("closed", "shop closed", domain.HasSatisfiedChild("shop", false))
	b.Add("shop").Text("buy").Option("end", "sword", yes)
	b.Add("closed").Go("end")
	b.Add("end").End()

	c, err := runtime.NewContext(context.Background(), b.MustBuild(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"closed"}, targets(c.CurrentOptions()))
}

func TestHasSatisfiedChild_Recursive(t *testing.T) {
	// Two nodes requiring each other to have satisfied children must not recurse forever.
	b := dsl.New("mutual")
	b.Add("start").Text("?").Option("a", "a").Option("end", "bye")
	b.Add("a").CheckChildren().Go("b")
	b.Add("b").CheckChildren().Go("a")
	b.Add("end").End()

	c, err := runtime.NewContext(context.Background(), b.MustBuild(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"end"}, targets(c.CurrentOptions()))
}

func TestSetContains(t *testing.T) {
	b := dsl.New("sets").Var("items", domain.Set("key"))
	b.Add("start").Text("door").
		Option("open", "open", domain.SetContains("items", "key", true)).
		Option("knock", "knock", domain.SetContains("items", "key", false)).
		Option("end", "leave")
	b.Add("open").OnEnter(domain.RemoveFromSet("items", "key")).Go("end")
	b.Add("knock").Go("end")
	b.Add("end").End()

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, b.MustBuild(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "end"}, targets(c.CurrentOptions()))
	mustChoose(t, c, 0)

	items, err := c.Bag().Get("items")
	require.NoError(t, err)
	assert.Empty(t, items.Set)
}

func TestCompareVariables(t *testing.T) {
	b := dsl.New("cmp").Var("gold", domain.Int(5)).Var("price", domain.Float(4.5))
	b.Add("start").Text("buy?").
		Option("buy", "buy", domain.CompareVariables("gold", domain.OpGreaterOrEqual, "price")).
		Option("end", "leave")
	b.Add("buy").Go("end")
	b.Add("end").End()

	c, err := runtime.NewContext(context.Background(), b.MustBuild(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"buy", "end"}, targets(c.CurrentOptions()))
}

func TestCustomConditionsAndEvents(t *testing.T) {
	reg := registry.NewRegistry()
	var seenParams map[string]any
	reg.RegisterCondition("min_level", ports.ConditionFunc(func(_ context.Context, s ports.Scope, p any) bool {
		seenParams = s.Params()
		hero := p.(*npc)
		return hero.values["level"].Int >= int64(s.Params()["level"].(int))
	}))
	reg.RegisterEvent("reward", ports.EventFunc(func(_ context.Context, s ports.Scope, _ any) {
		_ = s.SetVariable("gold", domain.Int(100))
	}))
	reg.RegisterEvent("explode", ports.EventFunc(func(context.Context, ports.Scope, any) {
		panic("boom")
	}))

	b := dsl.New("custom").Participants("hero").Var("gold", domain.Int(0))
	b.Add("start").Text("quest?").
		Option("accept", "accept", domain.CustomCondition("min_level", map[string]any{"level": 3}).Of("hero")).
		Option("missing", "missing", domain.CustomCondition("not_registered", nil)).
		Option("end", "leave")
	b.Add("accept").
		OnEnter(domain.CustomEvent("explode", nil), domain.CustomEvent("reward", nil)).
		Go("end")
	b.Add("missing").Go("end")
	b.Add("end").End()
	d := b.MustBuild()

	hero := newNPC()
	hero.values["level"] = domain.Int(4)
	bg := bag.ForDialogue(d)
	bg.Bind("hero", hero)

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, d, bg, runtime.WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, []string{"accept", "end"}, targets(c.CurrentOptions()))
	assert.Equal(t, 3, seenParams["level"])

	mustChoose(t, c, 0)
	gold, _ := c.Bag().Get("gold")
	assert.Equal(t, int64(100), gold.Int, "a panicking event does not stop the next one")
}

func TestSequenceNode(t *testing.T) {
	b := dsl.New("seq").Participants("a", "b")
	b.Add("talk").Speaker("a").
		Line("", "Hello.", "...").
		Line("b", "Hi.", "and?").
		Line("", "Bye.", "").
		Option("end", "leave")
	b.Add("end").End()

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, b.MustBuild(), nil)
	require.NoError(t, err)

	v := c.View()
	assert.Equal(t, "Hello.", v.Text)
	assert.Equal(t, "a", v.Speaker)
	require.Len(t, v.Options, 1)
	assert.Equal(t, "...", v.Options[0].Text)

	mustChoose(t, c, 0)
	v = c.View()
	assert.Equal(t, "Hi.", v.Text)
	assert.Equal(t, "b", v.Speaker)

	mustChoose(t, c, 0)
	v = c.View()
	assert.Equal(t, "Bye.", v.Text)
	assert.Equal(t, []string{"end"}, targets(v.Options))
	assert.Equal(t, []string{"talk"}, c.History(), "lines do not re-enter the node")

	mustChoose(t, c, 0)
	assert.True(t, c.IsFinished())
}

func TestNoChildPolicy(t *testing.T) {
	build := func() *domain.Dialogue {
		b := dsl.New("policy").Var("flag", domain.Bool(false))
		b.Add("start").Text("wait").Option("end", "go", yes)
		b.Add("end").End()
		return b.MustBuild()
	}
	ctx := context.Background()

	for _, p := range []domain.NoChildPolicy{domain.NoChildEnd, domain.NoChildErrorAndEnd} {
		c, err := runtime.NewContext(ctx, build(), nil, runtime.WithNoChildPolicy(p))
		require.NoError(t, err)
		assert.True(t, c.IsFinished(), string(p))
	}

	c, err := runtime.NewContext(ctx, build(), nil, runtime.WithNoChildPolicy(domain.NoChildContinue))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingChoice, c.Status())
	assert.Empty(t, c.CurrentOptions())

	_, err = c.ChooseOption(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	require.NoError(t, c.Bag().Set("flag", domain.Bool(true)))
	require.NoError(t, c.Reevaluate(ctx))
	assert.Equal(t, []string{"end"}, targets(c.CurrentOptions()))
}

func TestAllOptions(t *testing.T) {
	b := dsl.New("all").Var("flag", domain.Bool(false))
	b.Add("start").Text("?").
		Link(domain.ChildLink{Target: "locked", Text: "[locked]", Conditions: []domain.Condition{yes}, IncludeIfUnsatisfied: true}).
		Link(domain.ChildLink{Target: "hidden", Text: "hidden", Conditions: []domain.Condition{yes}}).
		Option("end", "leave")
	b.Add("locked").Go("end")
	b.Add("hidden").Go("end")
	b.Add("end").End()

	ctx := context.Background()
	c, err := runtime.NewContext(ctx, b.MustBuild(), nil)
	require.NoError(t, err)

	all := c.AllOptions()
	require.Len(t, all, 2)
	assert.False(t, all[0].Satisfied)
	assert.True(t, all[1].Satisfied)
	assert.Len(t, c.CurrentOptions(), 1)

	_, err = c.ChooseFromAll(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	_, err = c.ChooseFromAll(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.IsFinished())
}

func TestRandomCycleAndAvoidRepeat(t *testing.T) {
	walk := func(configure func(*dsl.NodeBuilder), rolls int) []string {
		b := dsl.New("rnd")
		b.Add("hub").Text("again").Option("sel", "roll").Option("end", "stop")
		sel := b.Add("sel")
		configure(sel)
		sel.Go("a").Go("b").Go("c")
		for _, id := range []string{"a", "b", "c"} {
			b.Add(id).Text(id).Option("hub", "back")
		}
		b.Add("end").End()

		ctx := context.Background()
		c, err := runtime.NewContext(ctx, b.MustBuild(), nil, runtime.WithRandom(ports.FixedRandom(0)))
		require.NoError(t, err)

		var picks []string
		for range rolls {
			mustChoose(t, c, 0)
			picks = append(picks, c.CurrentNode().ID)
			mustChoose(t, c, 0)
		}
		return picks
	}

	plain := walk(func(n *dsl.NodeBuilder) { n.Random() }, 4)
	assert.Equal(t, []string{"a", "a", "a", "a"}, plain)

	cycle := walk(func(n *dsl.NodeBuilder) { n.Cycle() }, 5)
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, cycle)

	avoid := walk(func(n *dsl.NodeBuilder) { n.AvoidRepeat() }, 4)
	assert.Equal(t, []string{"a", "b", "a", "b"}, avoid)
}

func TestLifecycleHooks(t *testing.T) {
	rec := &recorder{}
	ctx := context.Background()
	c, err := runtime.NewContext(ctx, twoChoices(t), nil, runtime.WithLifecycleHooks(rec.hooks()))
	require.NoError(t, err)
	mustChoose(t, c, 0)
	mustChoose(t, c, 0)

	assert.Equal(t, []string{"n0", "n1", "n2"}, rec.entered)
	assert.Equal(t, []int{0, 0}, rec.chosen)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, "n2", rec.finished[0].NodeID)
	assert.Equal(t, domain.ReasonEndNode, rec.finished[0].Reason)
}

func targets(opts []domain.Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Target)
	}
	return out
}

func mustChoose(t *testing.T, c *runtime.Context, i int) {
	t.Helper()
	_, err := c.ChooseOption(context.Background(), i)
	require.NoError(t, err)
}
