package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/observability"
)

func TestChain_RunsInOrderAndSkipsNil(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnNodeEnter:  func(context.Context, *domain.NodeEvent) { calls = append(calls, "b") },
		OnSessionEnd: func(context.Context, *domain.SessionEvent) { calls = append(calls, "end") },
	}

	h := observability.Chain(a, domain.LifecycleHooks{}, b)
	h.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	h.OnSessionEnd(context.Background(), &domain.SessionEvent{})

	assert.Equal(t, []string{"a", "b", "end"}, calls)
	assert.Nil(t, h.OnAudio)
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	h := m.Hooks()
	ctx := context.Background()
	base := domain.EventBase{EpisodeID: "ep1"}

	h.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, NodeID: "fork"})
	h.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, NodeID: "fork"})
	h.OnChoicesPresented(ctx, &domain.ChoiceEvent{EventBase: base, NodeID: "fork"})
	h.OnChoiceResolved(ctx, &domain.ChoiceEvent{EventBase: base, NodeID: "fork", ChoiceID: "left", Auto: true, Waited: 30 * time.Second})
	h.OnAudio(ctx, &domain.AudioEvent{Command: domain.AudioPlay})
	h.OnSessionEnd(ctx, &domain.SessionEvent{EventBase: base, Phase: domain.PhaseEnded})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("ep1", "fork")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChoicesPresented.WithLabelValues("ep1", "fork")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChoicesResolved.WithLabelValues("ep1", "fork", "left", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AudioCommands.WithLabelValues("play")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsFinished.WithLabelValues("ep1", "ended")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := observability.LogHooks(logger)

	h.OnChoiceResolved(context.Background(), &domain.ChoiceEvent{NodeID: "fork", ChoiceID: "right"})
	h.OnSessionEnd(context.Background(), &domain.SessionEvent{Phase: domain.PhaseFailed, Err: assert.AnError})

	out := buf.String()
	assert.Contains(t, out, "choice_resolved")
	assert.Contains(t, out, "choice_id=right")
	assert.Contains(t, out, "level=WARN")
}
