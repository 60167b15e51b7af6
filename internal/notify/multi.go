package notify

import (
	"context"
	"log/slog"

	"github.com/bikinibottom/spongeplay/internal/board"
)

var (
	_ board.Notifier = (*Multi)(nil)
	_ board.Notifier = LogNotifier{}
)

// Multi fans out board events to all registered notifiers.
type Multi struct {
	notifiers []board.Notifier
}

// NewMulti creates a notifier that delegates to every non-nil notifier given.
func NewMulti(notifiers ...board.Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify never fails; individual delivery errors are logged.
func (m *Multi) Notify(ctx context.Context, event board.Event) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			slog.Error("multi-notifier: notification failed", "event", event.Name, "error", err)
		}
	}
	return nil
}

func (m *Multi) Len() int {
	return len(m.notifiers)
}

// LogNotifier writes every board event to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event board.Event) error {
	args := []any{"event", event.Name}
	for k, v := range event.Data {
		args = append(args, k, v)
	}
	slog.Info("board event", args...)
	return nil
}
