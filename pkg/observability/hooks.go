package observability

import (
	"context"
	"log/slog"

	"github.com/wavebound/storyline/pkg/domain"
)

// Chain combines hook sets. Callbacks run in argument order; nil callbacks
// are skipped.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnAudio = chain(out.OnAudio, h.OnAudio)
		out.OnChoicesPresented = chain(out.OnChoicesPresented, h.OnChoicesPresented)
		out.OnChoiceResolved = chain(out.OnChoiceResolved, h.OnChoiceResolved)
		out.OnSessionEnd = chain(out.OnSessionEnd, h.OnSessionEnd)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LogHooks returns hooks that write every lifecycle event to logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_enter",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"kind", e.Kind,
			)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnAudio: func(ctx context.Context, e *domain.AudioEvent) {
			logger.DebugContext(ctx, "audio",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"command", e.Command,
				"url", e.URL,
			)
		},
		OnChoicesPresented: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.InfoContext(ctx, "choices_presented",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"choices", len(e.Choices),
				"window", e.Window,
			)
		},
		OnChoiceResolved: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.InfoContext(ctx, "choice_resolved",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"choice_id", e.ChoiceID,
				"auto", e.Auto,
				"waited", e.Waited,
			)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "session_end",
					"session_id", e.SessionID,
					"phase", e.Phase,
					"err", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, "session_end",
				"session_id", e.SessionID,
				"phase", e.Phase,
				"choices", len(e.History),
				"flags", e.Flags,
			)
		},
	}
}
