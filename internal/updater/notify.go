package updater

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/alfredjeanlab/adverthide/internal/events"
)

// Steps named in error notices.
const (
	StepLoad    = "load"
	StepConfig  = "config"
	StepFields  = "fields"
	StepSelect  = "select"
	StepUpdate  = "update"
	StepPersist = "persist"
)

// Notifier receives the notices a tick produces. Implementations must not
// block the tick for long and must not fail it.
type Notifier interface {
	Notify(ctx context.Context, n events.Notice)
}

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n events.Notice) {
	attrs := []any{"tick_id", n.TickID}
	if n.Step != "" {
		attrs = append(attrs, "step", n.Step)
	}
	if n.Level == events.LevelError {
		l.Logger.Error(n.Message, attrs...)
		return
	}
	l.Logger.Info(n.Message, attrs...)
}

// EventNotifier publishes notices on the notice topics.
type EventNotifier struct {
	Publisher events.Publisher
	Logger    *slog.Logger
}

func (e EventNotifier) Notify(ctx context.Context, n events.Notice) {
	if err := e.Publisher.Publish(ctx, events.NoticeTopic(n.Level), n); err != nil {
		e.Logger.Warn("publish notice failed", "tick_id", n.TickID, "err", err)
	}
}

// SentryNotifier reports error notices to Sentry. Info notices are dropped.
type SentryNotifier struct {
	Hub *sentry.Hub
}

func (s SentryNotifier) Notify(_ context.Context, n events.Notice) {
	if n.Level != events.LevelError {
		return
	}
	s.Hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("tick_id", n.TickID)
		scope.SetTag("step", n.Step)
		s.Hub.CaptureMessage(n.Message)
	})
}

// Multi fans a notice out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n events.Notice) {
	for _, nt := range m {
		nt.Notify(ctx, n)
	}
}
