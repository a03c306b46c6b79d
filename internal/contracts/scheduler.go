package contracts

import (
	"sync"
	"time"
)

// UserError records one user's failure within a run
type UserError struct {
	UserID    string    `json:"user_id,omitempty"` // empty for run-level errors
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStats summarizes one orchestrator run.
// Safe for concurrent recording while the run is in flight.
// ⭐ SSOT: 스케줄러 실행 통계
type RunStats struct {
	mu sync.Mutex

	RunID      string        `json:"run_id"`
	Trigger    string        `json:"trigger"` // cron, manual
	TotalUsers int           `json:"total_users"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	Errors     []UserError   `json:"errors"`
}

// RecordSuccess counts a delivered update
func (s *RunStats) RecordSuccess() {
	s.mu.Lock()
	s.Successful++
	s.mu.Unlock()
}

// RecordSkip counts a user that needed no update
func (s *RunStats) RecordSkip() {
	s.mu.Lock()
	s.Skipped++
	s.mu.Unlock()
}

// RecordFailure counts a failed user and appends the error in record order
func (s *RunStats) RecordFailure(userID string, err error, at time.Time) {
	s.mu.Lock()
	s.Failed++
	s.Errors = append(s.Errors, UserError{UserID: userID, Error: err.Error(), Timestamp: at})
	s.mu.Unlock()
}

// RecordRunError keeps a failure that is not tied to a user, such as a
// failed eligibility query. Counts are left alone.
func (s *RunStats) RecordRunError(err error, at time.Time) {
	s.mu.Lock()
	s.Errors = append(s.Errors, UserError{Error: err.Error(), Timestamp: at})
	s.mu.Unlock()
}

// Finish stamps the end time and duration
func (s *RunStats) Finish(end time.Time) {
	s.mu.Lock()
	s.EndTime = end
	s.Duration = end.Sub(s.StartTime)
	s.mu.Unlock()
}

// ErrorRate returns Failed / TotalUsers, 0 when there were no users
func (s *RunStats) ErrorRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TotalUsers == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.TotalUsers)
}

// Snapshot returns a copy safe to hand to other goroutines
func (s *RunStats) Snapshot() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RunStats{
		RunID:      s.RunID,
		Trigger:    s.Trigger,
		TotalUsers: s.TotalUsers,
		Successful: s.Successful,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Duration:   s.Duration,
		Errors:     append([]UserError(nil), s.Errors...),
	}
}

// Status is a live projection of the orchestrator state
type Status struct {
	IsRunning      bool       `json:"is_running"`    // armed
	IsProcessing   bool       `json:"is_processing"` // busy
	CronExpression string     `json:"cron_expression"`
	Timezone       string     `json:"timezone"`
	NextRun        *time.Time `json:"next_run,omitempty"`
	LastRun        *RunStats  `json:"last_run,omitempty"`
}
