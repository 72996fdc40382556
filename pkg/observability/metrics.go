package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wavebound/storyline/pkg/domain"
)

// Metrics holds the playback collectors.
type Metrics struct {
	NodeVisits       *prometheus.CounterVec
	ChoicesPresented *prometheus.CounterVec
	ChoicesResolved  *prometheus.CounterVec
	ChoiceWait       *prometheus.HistogramVec
	SessionsFinished *prometheus.CounterVec
	AudioCommands    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"episode_id", "node_id"},
		),
		ChoicesPresented: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_choices_presented_total",
				Help: "Total number of decision points presented",
			},
			[]string{"episode_id", "node_id"},
		),
		ChoicesResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_choices_resolved_total",
				Help: "Total number of resolved decisions by origin",
			},
			[]string{"episode_id", "node_id", "choice_id", "origin"},
		),
		ChoiceWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storyline_choice_wait_seconds",
				Help:    "Time between presenting choices and resolving them",
				Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
			},
			[]string{"origin"},
		),
		SessionsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_sessions_finished_total",
				Help: "Total number of sessions reaching a terminal phase",
			},
			[]string{"episode_id", "phase"},
		),
		AudioCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_audio_commands_total",
				Help: "Total number of media commands issued",
			},
			[]string{"command"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.NodeVisits,
			m.ChoicesPresented,
			m.ChoicesResolved,
			m.ChoiceWait,
			m.SessionsFinished,
			m.AudioCommands,
		)
	}
	return m
}

func origin(auto bool) string {
	if auto {
		return "timeout"
	}
	return "player"
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.EpisodeID, e.NodeID).Inc()
		},
		OnAudio: func(_ context.Context, e *domain.AudioEvent) {
			m.AudioCommands.WithLabelValues(string(e.Command)).Inc()
		},
		OnChoicesPresented: func(_ context.Context, e *domain.ChoiceEvent) {
			m.ChoicesPresented.WithLabelValues(e.EpisodeID, e.NodeID).Inc()
		},
		OnChoiceResolved: func(_ context.Context, e *domain.ChoiceEvent) {
			o := origin(e.Auto)
			m.ChoicesResolved.WithLabelValues(e.EpisodeID, e.NodeID, e.ChoiceID, o).Inc()
			m.ChoiceWait.WithLabelValues(o).Observe(e.Waited.Seconds())
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.SessionsFinished.WithLabelValues(e.EpisodeID, string(e.Phase)).Inc()
		},
	}
}
