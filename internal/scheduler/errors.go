package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidScheduleError is returned by Arm for a malformed cron expression
// or an unknown timezone
type InvalidScheduleError struct {
	Schedule string
	Timezone string
	Err      error
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule %q (timezone %q): %v", e.Schedule, e.Timezone, e.Err)
}

func (e *InvalidScheduleError) Unwrap() error { return e.Err }

// NonRetryableError is a per-user failure that was not retried
type NonRetryableError struct {
	UserID string
	Err    error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("user %s: %v", e.UserID, e.Err)
}

func (e *NonRetryableError) Unwrap() error { return e.Err }

// RetryExhaustedError wraps the last cause after every attempt failed
type RetryExhaustedError struct {
	UserID   string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("user %s: retries exhausted after %d attempts: %v", e.UserID, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// nonRetryableTerms are matched case-insensitively against error messages.
// TODO: replace with a tagged error kind once collaborators export one.
var nonRetryableTerms = []string{"not found", "invalid email", "disabled"}

// IsNonRetryable reports whether a per-user failure should skip retries
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var nr *NonRetryableError
	if errors.As(err, &nr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, term := range nonRetryableTerms {
		if strings.Contains(msg, term) {
			return true
		}
	}
	return false
}
