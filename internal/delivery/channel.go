// Package delivery renders daily reports into emails and sends them.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/config"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/retry"
)

const (
	// DefaultSendTimeout bounds one SMTP attempt when config leaves it unset
	DefaultSendTimeout = 10 * time.Second
	// claimTTL is how long a send lease blocks other workers. It must
	// outlast every attempt plus backoff of one Send.
	claimTTL = 10 * time.Minute
)

// EmailChannel implements contracts.DeliveryChannel over a Mailer
// ⭐ SSOT: 리포트 이메일 발송은 여기서만
type EmailChannel struct {
	mailer      Mailer
	reports     contracts.ReportRepository
	renderer    *Renderer
	from        string
	policy      retry.Policy
	sendTimeout time.Duration
	sleep       retry.SleepFunc
	now         func() time.Time
	logger      *logger.Logger
}

// NewEmailChannel creates a channel retrying sends per cfg
func NewEmailChannel(mailer Mailer, reports contracts.ReportRepository, cfg config.EmailConfig, log *logger.Logger) *EmailChannel {
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &EmailChannel{
		mailer:   mailer,
		reports:  reports,
		renderer: NewRenderer(),
		from:     cfg.From,
		policy: retry.Policy{
			Attempts:  attempts,
			BaseDelay: cfg.RetryDelay,
			MaxDelay:  time.Minute,
		},
		sendTimeout: timeout,
		sleep:       retry.Sleep,
		now:         time.Now,
		logger:      log.WithComponent("delivery"),
	}
}

// WithSleep overrides the backoff sleep
func (c *EmailChannel) WithSleep(sleep retry.SleepFunc) *EmailChannel {
	c.sleep = sleep
	return c
}

// WithClock overrides the time source used for sent timestamps
func (c *EmailChannel) WithClock(now func() time.Time) *EmailChannel {
	c.now = now
	return c
}

var _ contracts.DeliveryChannel = (*EmailChannel)(nil)

// Send emails record to user and marks it sent. A record already marked
// sent is not emailed again. Only the worker holding the record's send
// lease emails it; a concurrent caller gets contracts.ErrDeliveryClaimed.
func (c *EmailChannel) Send(ctx context.Context, user *contracts.EligibleUser, record *contracts.DailyReportRecord) error {
	if record.EmailSent {
		return nil
	}
	if !user.EmailEnabled {
		return fmt.Errorf("%w: user %s", contracts.ErrEmailDisabled, user.ID)
	}

	to, err := ValidateAddress(user.Email)
	if err != nil {
		return fmt.Errorf("%w %q: %v", contracts.ErrInvalidEmail, user.Email, err)
	}

	msg, err := c.renderer.Render(user, record)
	if err != nil {
		return err
	}
	msg.To = to
	msg.From = c.from

	log := c.logger.WithFields(map[string]interface{}{
		"user_id":   user.ID,
		"report_id": record.ID,
	})

	claimedAt := c.now()
	claimed, err := c.reports.ClaimEmailSend(ctx, record.ID, claimedAt, claimedAt.Add(-claimTTL))
	if err != nil {
		return fmt.Errorf("failed to claim report delivery: %w", err)
	}
	if !claimed {
		log.Info("Report delivery claimed elsewhere, not sending")
		return fmt.Errorf("%w: report %s", contracts.ErrDeliveryClaimed, record.ID)
	}

	err = retry.DoWithSleep(ctx, c.policy, c.sleep, func(attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()

		err := c.mailer.Send(attemptCtx, msg)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("Email send failed")
		}
		return err
	}, func(err error) bool {
		return ctx.Err() == nil && !IsPermanent(err)
	})
	if err != nil {
		c.release(ctx, record.ID, log)
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.Attempts == 1 {
			err = exhausted.Err
		}
		return fmt.Errorf("failed to send daily report email: %w", err)
	}

	// the lease stays held if marking fails, so nobody resends until it expires
	sentAt := c.now()
	if err := c.reports.MarkEmailSent(ctx, record.ID, sentAt); err != nil {
		return fmt.Errorf("failed to mark report sent: %w", err)
	}
	record.EmailSent = true
	record.EmailSentAt = &sentAt

	log.Info("Daily report emailed")
	return nil
}

// release frees the lease after a failed send so the next run can retry
// at once. It survives cancellation of the run.
func (c *EmailChannel) release(ctx context.Context, reportID string, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sendTimeout)
	defer cancel()

	if err := c.reports.ReleaseEmailClaim(ctx, reportID); err != nil {
		log.WithError(err).Warn("Failed to release delivery claim")
	}
}
