// Package eligibility decides which users are due a daily update.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Skip reasons returned by Qualifies
const (
	ReasonEmailDisabled   = "email notifications disabled"
	ReasonDailyDisabled   = "daily updates disabled"
	ReasonWeekendDisabled = "weekend updates disabled"
)

// Filter queries the user store for today's candidates
// ⭐ SSOT: 대상자 선정은 여기서만
type Filter struct {
	users  contracts.UserRepository
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger
}

// New creates a filter evaluating weekends in loc
func New(users contracts.UserRepository, loc *time.Location, log *logger.Logger) *Filter {
	if loc == nil {
		loc = time.UTC
	}
	return &Filter{
		users:  users,
		loc:    loc,
		now:    time.Now,
		logger: log.WithComponent("eligibility"),
	}
}

// WithClock overrides the time source
func (f *Filter) WithClock(now func() time.Time) *Filter {
	f.now = now
	return f
}

// WithLocation changes the zone weekends are evaluated in
func (f *Filter) WithLocation(loc *time.Location) *Filter {
	if loc != nil {
		f.loc = loc
	}
	return f
}

// IsWeekendToday reports whether today is Saturday or Sunday in the filter's zone
func (f *Filter) IsWeekendToday() bool {
	return IsWeekend(f.now().In(f.loc))
}

// Eligible returns the users due an update today. The repository query
// already filters; the predicate is re-applied so a lenient store cannot
// leak an opted-out user into the run.
func (f *Filter) Eligible(ctx context.Context) ([]contracts.EligibleUser, error) {
	weekend := f.IsWeekendToday()

	users, err := f.users.FindEligibleUsers(ctx, weekend)
	if err != nil {
		return nil, fmt.Errorf("find eligible users: %w", err)
	}

	eligible := make([]contracts.EligibleUser, 0, len(users))
	for _, u := range users {
		if ok, reason := Qualifies(u, weekend); !ok {
			f.logger.WithFields(map[string]interface{}{
				"user_id": u.ID,
				"reason":  reason,
			}).Debug("Dropping user returned by eligibility query")
			continue
		}
		eligible = append(eligible, u)
	}

	f.logger.WithFields(map[string]interface{}{
		"weekend":  weekend,
		"returned": len(users),
		"eligible": len(eligible),
	}).Info("Eligible users resolved")

	return eligible, nil
}

// IsWeekend reports whether t falls on Saturday or Sunday in t's location
func IsWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// Qualifies applies the notification preferences. The reason is empty when ok.
func Qualifies(u contracts.EligibleUser, weekend bool) (bool, string) {
	if !u.EmailEnabled {
		return false, ReasonEmailDisabled
	}
	if !u.DailyUpdateEnabled {
		return false, ReasonDailyDisabled
	}
	if weekend && !u.WeekendsEnabled {
		return false, ReasonWeekendDisabled
	}
	return true, ""
}
