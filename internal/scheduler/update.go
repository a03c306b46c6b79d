package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/eligibility"
	"github.com/wonny/folio/backend/pkg/retry"
)

// Outcome is the result of one user's update
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped" // already sent, claimed elsewhere, or opted out
	OutcomeFailed  Outcome = "failed"
)

// updateDay pins "today" for every user of a run
type updateDay struct {
	date    time.Time // report date, UTC midnight
	weekend bool
}

func (o *Orchestrator) today(loc *time.Location) updateDay {
	now := o.now().In(loc)
	return updateDay{
		date:    contracts.ReportDate(now, loc),
		weekend: eligibility.IsWeekend(now),
	}
}

// TriggerForUser updates one user now. It is not gated by a running batch;
// the report's unique (user, date) key and its send lease settle any overlap.
func (o *Orchestrator) TriggerForUser(ctx context.Context, userID string) (Outcome, error) {
	outcome, err := o.updateUser(ctx, userID, o.today(o.location()))
	userOutcomesCounter.WithLabelValues(string(outcome)).Inc()

	log := o.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"outcome": outcome,
	})
	if err != nil {
		log.WithError(err).Error("Manual user update failed")
		return outcome, err
	}
	log.Info("Manual user update finished")
	return outcome, nil
}

// updateUser runs attempt under the retry policy
func (o *Orchestrator) updateUser(ctx context.Context, userID string, day updateDay) (Outcome, error) {
	policy := retry.Policy{
		Attempts:  o.cfg.RetryAttempts,
		BaseDelay: o.cfg.RetryDelay,
	}

	var outcome Outcome
	err := retry.DoWithSleep(ctx, policy, o.sleep, func(attempt int) error {
		if attempt > 1 {
			userRetriesCounter.Inc()
		}
		var err error
		outcome, err = o.attempt(ctx, userID, day)
		if err != nil {
			o.logger.WithError(err).WithFields(map[string]interface{}{
				"user_id": userID,
				"attempt": attempt,
			}).Warn("User update attempt failed")
		}
		return err
	}, func(err error) bool {
		return ctx.Err() == nil && !IsNonRetryable(err)
	})
	if err == nil {
		return outcome, nil
	}

	var exhausted *retry.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return OutcomeFailed, &RetryExhaustedError{UserID: userID, Attempts: exhausted.Attempts, Err: exhausted.Err}
	case IsNonRetryable(err):
		return OutcomeFailed, &NonRetryableError{UserID: userID, Err: err}
	default:
		return OutcomeFailed, fmt.Errorf("user %s: %w", userID, err)
	}
}

// attempt is one pass of: idempotency check, live preference check,
// generate, deliver
func (o *Orchestrator) attempt(ctx context.Context, userID string, day updateDay) (Outcome, error) {
	existing, err := o.reports.FindDailyReport(ctx, userID, day.date)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("idempotency check: %w", err)
	}
	if existing != nil && existing.EmailSent {
		return OutcomeSkipped, nil
	}

	user, err := o.users.GetUser(ctx, userID)
	if err != nil {
		return OutcomeFailed, err
	}
	if ok, reason := eligibility.Qualifies(*user, day.weekend); !ok {
		o.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"reason":  reason,
		}).Info("Skipping user")
		return OutcomeSkipped, nil
	}

	record, err := o.generator.GenerateDailyReport(ctx, userID, day.date)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("generate report: %w", err)
	}
	if record.EmailSent {
		// a concurrent run delivered it between the check and now
		return OutcomeSkipped, nil
	}

	if err := o.channel.Send(ctx, user, record); err != nil {
		if errors.Is(err, contracts.ErrDeliveryClaimed) {
			// another worker is emailing this report right now
			return OutcomeSkipped, nil
		}
		return OutcomeFailed, fmt.Errorf("deliver report: %w", err)
	}
	return OutcomeSent, nil
}
