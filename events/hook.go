package events

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/casualjim/convai/pkg/slogx"
)

// Hook receives lifecycle events. There is no no-op base implementation:
// implementations decide explicitly what to do with every event type.
type Hook interface {
	OnChatStarted(context.Context, ChatStarted)

	OnChatRejected(context.Context, ChatRejected)

	OnMessageDropped(context.Context, MessageDropped)

	OnMessageObserved(context.Context, MessageObserved)

	OnReplySent(context.Context, ReplySent)

	OnChatFinished(context.Context, ChatFinished)

	OnError(context.Context, Error)
}

// Dispatch calls the hook method matching the event's type.
func Dispatch(ctx context.Context, hook Hook, event Event) error {
	switch e := event.(type) {
	case ChatStarted:
		hook.OnChatStarted(ctx, e)
	case ChatRejected:
		hook.OnChatRejected(ctx, e)
	case MessageDropped:
		hook.OnMessageDropped(ctx, e)
	case MessageObserved:
		hook.OnMessageObserved(ctx, e)
	case ReplySent:
		hook.OnReplySent(ctx, e)
	case ChatFinished:
		hook.OnChatFinished(ctx, e)
	case Error:
		hook.OnError(ctx, e)
	default:
		return fmt.Errorf("unknown event type: %T", event)
	}
	return nil
}

func LoggingHook() Hook {
	return &loggingHook{
		log: slog.Default().With(slogx.LoggerName("convai.events")),
	}
}

type loggingHook struct {
	log *slog.Logger
}

func (h *loggingHook) OnChatStarted(ctx context.Context, e ChatStarted) {
	h.log.InfoContext(ctx, "chat started", slogx.Chat(e.Chat), slog.String("agent", e.AgentID), slog.Bool("replaced", e.Replaced))
}

func (h *loggingHook) OnChatRejected(ctx context.Context, e ChatRejected) {
	h.log.WarnContext(ctx, "chat rejected", slogx.Chat(e.Chat), slog.Int("capacity", e.Capacity))
}

func (h *loggingHook) OnMessageDropped(ctx context.Context, e MessageDropped) {
	h.log.InfoContext(ctx, "message dropped", slogx.Chat(e.Chat), slog.String("reason", e.Reason))
}

func (h *loggingHook) OnMessageObserved(ctx context.Context, e MessageObserved) {
	h.log.DebugContext(ctx, "message observed", slogx.Chat(e.Chat), slog.String("text", e.Message.Text), slog.Bool("episode_done", e.Message.EpisodeDone))
}

func (h *loggingHook) OnReplySent(ctx context.Context, e ReplySent) {
	h.log.DebugContext(ctx, "reply sent", slogx.Chat(e.Chat), slog.String("text", e.Message.Text))
}

func (h *loggingHook) OnChatFinished(ctx context.Context, e ChatFinished) {
	h.log.InfoContext(ctx, "chat finished", slogx.Chat(e.Chat), slog.String("agent", e.AgentID))
}

func (h *loggingHook) OnError(ctx context.Context, e Error) {
	h.log.ErrorContext(ctx, "round failed", slogx.Chat(e.Chat), slogx.Error(e.Err))
}

func NewCompositeHook(hooks ...Hook) Hook {
	return CompositeHook(hooks)
}

// CompositeHook fans every event out to each of its hooks in order.
type CompositeHook []Hook

func (c CompositeHook) OnChatStarted(ctx context.Context, e ChatStarted) {
	for h := range slices.Values(c) {
		h.OnChatStarted(ctx, e)
	}
}

func (c CompositeHook) OnChatRejected(ctx context.Context, e ChatRejected) {
	for h := range slices.Values(c) {
		h.OnChatRejected(ctx, e)
	}
}

func (c CompositeHook) OnMessageDropped(ctx context.Context, e MessageDropped) {
	for h := range slices.Values(c) {
		h.OnMessageDropped(ctx, e)
	}
}

func (c CompositeHook) OnMessageObserved(ctx context.Context, e MessageObserved) {
	for h := range slices.Values(c) {
		h.OnMessageObserved(ctx, e)
	}
}

func (c CompositeHook) OnReplySent(ctx context.Context, e ReplySent) {
	for h := range slices.Values(c) {
		h.OnReplySent(ctx, e)
	}
}

func (c CompositeHook) OnChatFinished(ctx context.Context, e ChatFinished) {
	for h := range slices.Values(c) {
		h.OnChatFinished(ctx, e)
	}
}

func (c CompositeHook) OnError(ctx context.Context, e Error) {
	for h := range slices.Values(c) {
		h.OnError(ctx, e)
	}
}
