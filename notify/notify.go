// Package notify delivers best-effort user notifications.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

// Title is the fixed notification title used by the agent.
const Title = "Tracker"

// Notifier shows a notification to the user. Implementations must be
// best-effort: a failed or unsupported notification is silently a
// no-op, never an error surfaced to the caller.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// LogNotifier writes notifications to the agent log. It stands in
// where no desktop notification surface is wired.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, title, body string) {
	zapctx.Info(ctx, "notification",
		zap.String("title", title), zap.String("body", body))
}

// Discard drops all notifications.
type Discard struct{}

func (Discard) Notify(ctx context.Context, title, body string) {}
