package port

import (
	"context"
	"time"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

type ReminderScheduler interface {
	// Schedule registers the reminder, replacing any pending one with the same ID
	Schedule(ctx context.Context, reminder domain.Reminder) error

	// Cancel drops a pending reminder; unknown IDs are not an error
	Cancel(ctx context.Context, id string) error
}

type ReminderQueue interface {
	// Due claims and removes every reminder whose fire time is at or before now
	Due(ctx context.Context, now time.Time) ([]domain.Reminder, error)
}

type Notifier interface {
	Notify(ctx context.Context, reminder domain.Reminder) error
}
