package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
)

// LoggingHooks logs every lifecycle notification at Debug, and finishes at Info.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"dialogue", e.DialogueID,
				"session_id", e.SessionID,
				"node", e.NodeID,
				"kind", e.NodeKind,
				"auto", e.Auto,
			)
		},
		OnOptionChosen: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.DebugContext(ctx, "option_chosen",
				"dialogue", e.DialogueID,
				"session_id", e.SessionID,
				"node", e.NodeID,
				"index", e.Index,
				"target", e.Target,
			)
		},
		OnFinished: func(ctx context.Context, e *domain.FinishEvent) {
			logger.InfoContext(ctx, "conversation_finished",
				"dialogue", e.DialogueID,
				"session_id", e.SessionID,
				"node", e.NodeID,
				"reason", e.Reason,
			)
		},
	}
}
