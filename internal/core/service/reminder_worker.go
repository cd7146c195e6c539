package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/cookie-tracker/internal/port"
)

// ReminderWorker delivers due reminders to a notifier.
type ReminderWorker struct {
	queue    port.ReminderQueue
	notifier port.Notifier
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewReminderWorker(queue port.ReminderQueue, notifier port.Notifier, interval time.Duration, logger zerolog.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ReminderWorker{
		queue:    queue,
		notifier: notifier,
		interval: interval,
		log:      logger.With().Str("component", "reminder_worker").Logger(),
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled. Queue errors are logged and retried on the
// next tick.
func (w *ReminderWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Tick(ctx); err != nil {
			w.log.Error().Err(err).Msg("poll reminders")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick delivers the reminders due now and reports how many were delivered.
func (w *ReminderWorker) Tick(ctx context.Context) (int, error) {
	// Reminders claimed alongside an error are already off the queue, so
	// deliver them before reporting it.
	due, claimErr := w.queue.Due(ctx, w.now())

	delivered := 0
	for _, r := range due {
		if err := w.notifier.Notify(ctx, r); err != nil {
			w.log.Warn().Err(err).Str("order_id", r.ID).Msg("notify reminder")
			continue
		}
		delivered++
	}
	if claimErr != nil {
		return delivered, fmt.Errorf("claim due reminders: %w", claimErr)
	}
	return delivered, nil
}
