package runtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/bag"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resumable() *domain.Dialogue {
	b := dsl.New("resume").Var("visits", domain.Int(0))
	b.Add("hub").Text("hub").
		OnEnter(domain.ModifyVar("visits", domain.Int(1))).
		Option("sel", "roll").
		Option("talk", "talk").
		Option("end", "bye")
	b.Add("sel").Cycle().Go("a").Go("b")
	b.Add("a").Text("A").Option("hub", "back")
	b.Add("b").Text("B").Option("hub", "back")
	b.Add("talk").Line("", "one", "").Line("", "two", "").Option("hub", "back")
	b.Add("end").End()
	return b.MustBuild()
}

func TestSnapshotResume(t *testing.T) {
	d := resumable()
	ctx := context.Background()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	c, err := runtime.NewContext(ctx, d, nil,
		runtime.WithSessionID("s1"),
		runtime.WithRandom(ports.FixedRandom(0)),
		runtime.WithClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)
	mustChoose(t, c, 0) // sel -> a
	mustChoose(t, c, 0) // hub
	mustChoose(t, c, 1) // talk, line one

	snap := c.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, "talk", snap.CurrentNodeID)
	assert.Equal(t, domain.StatusAwaitingChoice, snap.Status)
	assert.Equal(t, 4, snap.Step)
	assert.Equal(t, []string{"a"}, snap.SelectorMemory["sel"])
	assert.Equal(t, int64(2), snap.Variables["visits"].Int)
	assert.Equal(t, fixed, snap.UpdatedAt)

	// Round trip through JSON as a store would.
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var loaded domain.Snapshot
	require.NoError(t, json.Unmarshal(data, &loaded))

	rec := &recorder{}
	r, err := runtime.Resume(ctx, d, bag.New(), &loaded,
		runtime.WithRandom(ports.FixedRandom(0)),
		runtime.WithLifecycleHooks(rec.hooks()),
	)
	require.NoError(t, err)
	assert.Empty(t, rec.entered, "resume fires no enter hooks")
	assert.Equal(t, "s1", r.SessionID())
	assert.Equal(t, c.View(), r.View())
	assert.Equal(t, int64(2), mustGet(t, r.Bag(), "visits").Int, "enter events are not fired again")
	assert.True(t, r.Visited("a"))

	mustChoose(t, r, 0) // line two
	mustChoose(t, r, 0) // hub
	mustChoose(t, r, 0) // sel: cycle memory restored, so b
	assert.Equal(t, "b", r.CurrentNode().ID)
}

func TestResume_Finished(t *testing.T) {
	d := resumable()
	ctx := context.Background()
	c, err := runtime.NewContext(ctx, d, nil)
	require.NoError(t, err)
	mustChoose(t, c, 2)
	require.True(t, c.IsFinished())

	r, err := runtime.Resume(ctx, d, nil, c.Snapshot())
	require.NoError(t, err)
	assert.True(t, r.IsFinished())
	_, err = r.ChooseOption(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrConversationEnded)
}

func TestResume_SharedBag(t *testing.T) {
	d := resumable()
	ctx := context.Background()
	c, err := runtime.NewContext(ctx, d, nil)
	require.NoError(t, err)
	snap := c.Snapshot()
	require.Equal(t, int64(1), snap.Variables["visits"].Int)

	world := bag.ForDialogue(d)
	require.NoError(t, world.Set("visits", domain.Int(7)))

	_, err = runtime.Resume(ctx, d, world, snap, runtime.WithKeepVariables())
	require.NoError(t, err)
	assert.Equal(t, int64(7), mustGet(t, world, "visits").Int, "shared variables are not rolled back")

	_, err = runtime.Resume(ctx, d, world, snap)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mustGet(t, world, "visits").Int)
}

func TestResume_NoSatisfiedChild(t *testing.T) {
	b := dsl.New("fade").Var("flag", domain.Bool(true))
	b.Add("start").Text("?").Option("end", "go", yes)
	b.Add("end").End()
	d := b.MustBuild()
	ctx := context.Background()

	c, err := runtime.NewContext(ctx, d, nil)
	require.NoError(t, err)
	snap := c.Snapshot()
	require.Equal(t, domain.StatusAwaitingChoice, snap.Status)
	snap.Variables["flag"] = domain.Bool(false)

	rec := &recorder{}
	r, err := runtime.Resume(ctx, d, nil, snap, runtime.WithLifecycleHooks(rec.hooks()))
	require.NoError(t, err)
	assert.True(t, r.IsFinished())
	assert.Empty(t, rec.entered)
	assert.Equal(t, domain.ReasonNoChild, rec.lastReason())
}

func TestResume_Errors(t *testing.T) {
	d := resumable()
	ctx := context.Background()

	_, err := runtime.Resume(ctx, d, nil, nil)
	assert.Error(t, err)

	_, err = runtime.Resume(ctx, d, nil, &domain.Snapshot{DialogueID: "other"})
	assert.Error(t, err)

	_, err = runtime.Resume(ctx, d, nil, &domain.Snapshot{DialogueID: "resume", CurrentNodeID: "gone", Status: domain.StatusAwaitingChoice})
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)
}

func mustGet(t *testing.T, b *bag.Bag, name string) domain.Value {
	t.Helper()
	v, err := b.Get(name)
	require.NoError(t, err)
	return v
}
