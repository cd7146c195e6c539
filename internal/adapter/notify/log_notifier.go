package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

// LogNotifier delivers reminders as structured log entries.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, reminder domain.Reminder) error {
	n.Logger.Info().
		Str("order_id", reminder.ID).
		Time("fire_at", reminder.FireAt).
		Str("title", reminder.Title).
		Str("body", reminder.Body).
		Msg("reminder")
	return nil
}
