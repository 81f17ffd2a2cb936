package runtime_test

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// npc implements every participant capability.
type npc struct {
	values map[string]domain.Value
	checks map[string]bool
	events []string
}

func newNPC() *npc {
	return &npc{values: map[string]domain.Value{}, checks: map[string]bool{}}
}

func (n *npc) DialogueValue(name string) (domain.Value, bool) {
	v, ok := n.values[name]
	return v, ok
}

func (n *npc) CheckCondition(_ context.Context, name string) bool { return n.checks[name] }

func (n *npc) OnDialogueEvent(_ context.Context, name string) { n.events = append(n.events, name) }

// recorder captures lifecycle notifications.
type recorder struct {
	entered  []string
	chosen   []int
	finished []*domain.FinishEvent
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter:    func(_ context.Context, e *domain.NodeEvent) { r.entered = append(r.entered, e.NodeID) },
		OnOptionChosen: func(_ context.Context, e *domain.ChoiceEvent) { r.chosen = append(r.chosen, e.Index) },
		OnFinished:     func(_ context.Context, e *domain.FinishEvent) { r.finished = append(r.finished, e) },
	}
}

func (r *recorder) lastReason() string {
	if len(r.finished) == 0 {
		return ""
	}
	return r.finished[len(r.finished)-1].Reason
}

var (
	yes = domain.Compare("flag", domain.OpEqual, domain.Bool(true))
	no  = domain.Compare("flag", domain.OpEqual, domain.Bool(false))
)
