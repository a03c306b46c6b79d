// Package scheduler drives the daily portfolio update: a cron timer or a
// manual trigger starts a run that fans out per-user updates in batches.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/eligibility"
	"github.com/wonny/folio/backend/pkg/config"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/retry"
)

// Run triggers
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// cronParser accepts 5 or 6 field expressions and @descriptors
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config tunes the orchestrator
type Config struct {
	Schedule      string
	Timezone      string
	RetryAttempts int
	RetryDelay    time.Duration
	BatchSize     int
	BatchDelay    time.Duration
}

// ConfigFrom maps the environment settings
func ConfigFrom(cfg config.SchedulerConfig) Config {
	return Config{
		Schedule:      cfg.Cron,
		Timezone:      cfg.Timezone,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		BatchSize:     cfg.BatchSize,
		BatchDelay:    cfg.BatchDelay,
	}
}

// Orchestrator runs daily updates on a timer or on demand.
// Armed (timer registered) and busy (run executing) are independent.
// ⭐ SSOT: 일일 업데이트 실행은 이 오케스트레이터에서만
type Orchestrator struct {
	users     contracts.UserRepository
	reports   contracts.ReportRepository
	generator contracts.ReportGenerator
	channel   contracts.DeliveryChannel
	cfg       Config
	logger    *logger.Logger

	now   func() time.Time
	sleep retry.SleepFunc

	busy atomic.Bool

	mu       sync.Mutex
	armed    bool
	cron     *cron.Cron
	sched    cron.Schedule
	schedule string
	timezone string
	loc      *time.Location
	baseCtx  context.Context
	hooks    []func(*contracts.RunStats)

	history *RunHistory
}

// New creates a disarmed orchestrator. Non-positive numbers fall back to
// defaults; an unknown timezone falls back to UTC until Arm reports it.
func New(
	users contracts.UserRepository,
	reports contracts.ReportRepository,
	generator contracts.ReportGenerator,
	channel contracts.DeliveryChannel,
	cfg Config,
	log *logger.Logger,
) *Orchestrator {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultCron
	}
	if cfg.Timezone == "" {
		cfg.Timezone = config.DefaultTimezone
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = config.DefaultRetryAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}

	o := &Orchestrator{
		users:     users,
		reports:   reports,
		generator: generator,
		channel:   channel,
		cfg:       cfg,
		logger:    log.WithComponent("scheduler"),
		now:       time.Now,
		sleep:     retry.Sleep,
		schedule:  cfg.Schedule,
		timezone:  cfg.Timezone,
		loc:       time.UTC,
		baseCtx:   context.Background(),
		history:   NewRunHistory(DefaultHistorySize),
	}

	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		o.loc = loc
	} else {
		o.logger.WithError(err).WithField("timezone", cfg.Timezone).Warn("Unknown timezone, dating runs in UTC")
	}
	return o
}

// WithClock overrides the time source
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithSleep overrides backoff and batch delays
func (o *Orchestrator) WithSleep(sleep retry.SleepFunc) *Orchestrator {
	o.sleep = sleep
	return o
}

// WithBaseContext sets the context timer-fired runs inherit
func (o *Orchestrator) WithBaseContext(ctx context.Context) *Orchestrator {
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()
	return o
}

// OnRunComplete registers a hook called with every finished run
func (o *Orchestrator) OnRunComplete(hook func(*contracts.RunStats)) {
	o.mu.Lock()
	o.hooks = append(o.hooks, hook)
	o.mu.Unlock()
}

// History returns the recent runs
func (o *Orchestrator) History() *RunHistory {
	return o.history
}

// ValidateSchedule parses a cron expression and an IANA timezone
func ValidateSchedule(schedule, timezone string) (cron.Schedule, *time.Location, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		if err == nil {
			err = fmt.Errorf("timezone is empty")
		}
		return nil, nil, &InvalidScheduleError{Schedule: schedule, Timezone: timezone, Err: err}
	}
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, nil, &InvalidScheduleError{Schedule: schedule, Timezone: timezone, Err: err}
	}
	return sched, loc, nil
}

// Arm validates and registers the recurring timer. Empty arguments use the
// configured values. Arming while armed is a logged no-op.
func (o *Orchestrator) Arm(schedule, timezone string) error {
	if schedule == "" {
		schedule = o.cfg.Schedule
	}
	if timezone == "" {
		timezone = o.cfg.Timezone
	}

	sched, loc, err := ValidateSchedule(schedule, timezone)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.armed {
		o.logger.WithFields(map[string]interface{}{
			"schedule": o.schedule,
			"timezone": o.timezone,
		}).Info("Scheduler already armed")
		return nil
	}

	cl := cronLogger{log: o.logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cronParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	c.Schedule(sched, cron.FuncJob(o.fire))
	c.Start()

	o.cron = c
	o.sched = sched
	o.schedule = schedule
	o.timezone = timezone
	o.loc = loc
	o.armed = true

	o.logger.WithFields(map[string]interface{}{
		"schedule": schedule,
		"timezone": timezone,
		"next_run": sched.Next(o.now().In(loc)),
	}).Info("Scheduler armed")
	return nil
}

// Disarm removes the timer. An in-flight run is neither cancelled nor awaited.
func (o *Orchestrator) Disarm() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.armed {
		return
	}
	o.cron.Stop()
	o.cron = nil
	o.sched = nil
	o.armed = false
	o.logger.Info("Scheduler disarmed")
}

// IsArmed reports whether the timer is registered
func (o *Orchestrator) IsArmed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.armed
}

// Status is a live projection of the orchestrator state
func (o *Orchestrator) Status() contracts.Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := contracts.Status{
		IsRunning:      o.armed,
		IsProcessing:   o.busy.Load(),
		CronExpression: o.schedule,
		Timezone:       o.timezone,
		LastRun:        o.history.Last(),
	}
	if o.armed {
		next := o.sched.Next(o.now().In(o.loc))
		st.NextRun = &next
	}
	return st
}

// TriggerNow runs immediately. ran is false when a run was already in progress.
func (o *Orchestrator) TriggerNow(ctx context.Context) (stats *contracts.RunStats, ran bool) {
	return o.RunOnce(ctx, TriggerManual)
}

func (o *Orchestrator) fire() {
	o.mu.Lock()
	ctx := o.baseCtx
	o.mu.Unlock()
	o.RunOnce(ctx, TriggerCron)
}

func (o *Orchestrator) location() *time.Location {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loc
}

// RunOnce performs one run unless another is in progress, in which case it
// returns (nil, false) without touching any collaborator.
func (o *Orchestrator) RunOnce(ctx context.Context, trigger string) (*contracts.RunStats, bool) {
	if !o.busy.CompareAndSwap(false, true) {
		runsCounter.WithLabelValues(trigger, "skipped_busy").Inc()
		o.logger.WithField("trigger", trigger).Warn("Daily update already in progress, skipping")
		return nil, false
	}
	defer o.busy.Store(false)

	processingGauge.Set(1)
	defer processingGauge.Set(0)

	stats := &contracts.RunStats{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartTime: o.now(),
	}
	log := o.logger.WithFields(map[string]interface{}{
		"run_id":  stats.RunID,
		"trigger": trigger,
	})
	log.Info("Daily update run started")

	o.execute(ctx, stats, log)
	o.finish(stats, log)
	return stats, true
}

func (o *Orchestrator) execute(ctx context.Context, stats *contracts.RunStats, log *logger.Logger) {
	loc := o.location()
	day := o.today(loc)

	users, err := eligibility.New(o.users, loc, o.logger).WithClock(o.now).Eligible(ctx)
	if err != nil {
		log.WithError(err).Error("Eligibility query failed")
		stats.RecordRunError(err, o.now())
		return
	}

	stats.TotalUsers = len(users)
	if len(users) == 0 {
		log.Info("No eligible users")
		return
	}

	size := o.cfg.BatchSize
	batches := (len(users) + size - 1) / size

	for b, start := 0, 0; start < len(users); b, start = b+1, start+size {
		end := start + size
		if end > len(users) {
			end = len(users)
		}

		if b > 0 && o.cfg.BatchDelay > 0 {
			if err := o.sleep(ctx, o.cfg.BatchDelay); err != nil {
				log.WithError(err).Warn("Run interrupted between batches")
				for _, u := range users[start:] {
					o.record(stats, u.ID, OutcomeFailed, fmt.Errorf("run interrupted: %w", err))
				}
				return
			}
		}

		log.WithFields(map[string]interface{}{
			"batch": b + 1,
			"of":    batches,
			"users": end - start,
		}).Debug("Processing batch")

		var wg sync.WaitGroup
		for _, u := range users[start:end] {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				o.runTask(ctx, stats, userID, day)
			}(u.ID)
		}
		wg.Wait()
	}
}

// runTask isolates one user's update; panics become failures
func (o *Orchestrator) runTask(ctx context.Context, stats *contracts.RunStats, userID string, day updateDay) {
	defer func() {
		if r := recover(); r != nil {
			o.record(stats, userID, OutcomeFailed, fmt.Errorf("panic during update: %v", r))
		}
	}()

	outcome, err := o.updateUser(ctx, userID, day)
	o.record(stats, userID, outcome, err)
}

func (o *Orchestrator) record(stats *contracts.RunStats, userID string, outcome Outcome, err error) {
	userOutcomesCounter.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case OutcomeSent:
		stats.RecordSuccess()
	case OutcomeSkipped:
		stats.RecordSkip()
	default:
		stats.RecordFailure(userID, err, o.now())
		o.logger.WithError(err).WithField("user_id", userID).Error("Daily update failed")
	}
}

func (o *Orchestrator) finish(stats *contracts.RunStats, log *logger.Logger) {
	stats.Finish(o.now())

	snap := stats.Snapshot()
	o.history.Add(&snap)

	runsCounter.WithLabelValues(snap.Trigger, "completed").Inc()
	runDurationHist.Observe(snap.Duration.Seconds())

	log.WithFields(map[string]interface{}{
		"total":      snap.TotalUsers,
		"successful": snap.Successful,
		"failed":     snap.Failed,
		"skipped":    snap.Skipped,
		"duration":   snap.Duration.String(),
		"error_rate": stats.ErrorRate(),
	}).Info("Daily update run completed")

	o.mu.Lock()
	hooks := append([]func(*contracts.RunStats){}, o.hooks...)
	o.mu.Unlock()
	for _, h := range hooks {
		h(&snap)
	}
}

// RecentRuns returns up to n finished runs, newest first
func (o *Orchestrator) RecentRuns(n int) []*contracts.RunStats {
	return o.history.Latest(n)
}
