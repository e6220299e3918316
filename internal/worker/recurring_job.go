package worker

import (
	"context"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// RecurringMaterializer creates the auto-recurring rows of a month and
// reports how many it added. Refresh re-reads the store, which other
// processes write to between passes.
type RecurringMaterializer interface {
	Refresh(ctx context.Context) error
	EnsureRecurring(ctx context.Context, month core.Month) (int, error)
}

// RecurringJob runs the recurring pass for the current month on a timer, so
// the ledger gains its recurring rows even when nobody opens the app.
type RecurringJob struct {
	ledger RecurringMaterializer
	now    func() time.Time
}

func NewRecurringJob(ledger RecurringMaterializer) *RecurringJob {
	return &RecurringJob{ledger: ledger, now: time.Now}
}

// RunOnce re-reads the ledger and materializes the current month.
func (j *RecurringJob) RunOnce(ctx context.Context) (int, error) {
	if err := j.ledger.Refresh(ctx); err != nil {
		return 0, err
	}
	month := core.MonthOf(j.now())
	added, err := j.ledger.EnsureRecurring(ctx, month)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Recurring pass complete",
		"component", "recurring",
		"month", month.String(),
		"added", added)
	return added, nil
}

// Run calls RunOnce immediately and then every interval until ctx is done.
// Failures are logged; the next tick retries.
func (j *RecurringJob) Run(ctx context.Context, interval time.Duration) error {
	if _, err := j.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial recurring pass failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Recurring pass failed", "error", err)
			}
		}
	}
}
