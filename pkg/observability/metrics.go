package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/parley/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	NodeEntries   *prometheus.CounterVec
	OptionsChosen *prometheus.CounterVec
	Finished      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "parley",
				Name:      "node_entries_total",
				Help:      "Total number of nodes entered, by dialogue and node kind.",
			},
			[]string{"dialogue", "kind"},
		),
		OptionsChosen: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "parley",
				Name:      "options_chosen_total",
				Help:      "Total number of options chosen by hosts.",
			},
			[]string{"dialogue"},
		),
		Finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "parley",
				Name:      "conversations_finished_total",
				Help:      "Total number of finished conversations, by reason.",
			},
			[]string{"dialogue", "reason"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.NodeEntries, m.OptionsChosen, m.Finished)
	}
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeEntries.WithLabelValues(e.DialogueID, string(e.NodeKind)).Inc()
		},
		OnOptionChosen: func(_ context.Context, e *domain.ChoiceEvent) {
			m.OptionsChosen.WithLabelValues(e.DialogueID).Inc()
		},
		OnFinished: func(_ context.Context, e *domain.FinishEvent) {
			m.Finished.WithLabelValues(e.DialogueID, e.Reason).Inc()
		},
	}
}
