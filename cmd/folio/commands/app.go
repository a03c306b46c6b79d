package commands

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/folio/backend/internal/delivery"
	"github.com/wonny/folio/backend/internal/external/alphavantage"
	"github.com/wonny/folio/backend/internal/external/yahoo"
	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/internal/report"
	"github.com/wonny/folio/backend/internal/scheduler"
	"github.com/wonny/folio/backend/internal/storage/postgres"
	"github.com/wonny/folio/backend/pkg/config"
	"github.com/wonny/folio/backend/pkg/database"
	"github.com/wonny/folio/backend/pkg/httputil"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/redis"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	redis  *redis.Client
	market *marketdata.Gateway

	// set by withDatabase
	db           *database.DB
	store        *postgres.Store
	generator    *report.Generator
	orchestrator *scheduler.Orchestrator
}

// loadApp loads config and logging, connects Redis and builds the market gateway
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		// cache and shared rate limits are optional
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}

	a := &app{cfg: cfg, log: log, redis: rc}
	a.market = newGateway(cfg, log, rc)
	return a, nil
}

// newGateway wires Alpha Vantage as primary and Yahoo as secondary
func newGateway(cfg *config.Config, log *logger.Logger, rc *redis.Client) *marketdata.Gateway {
	limiter := redis.NewRateLimiter(rc, "folio")
	md := cfg.MarketData

	avLimit := redis.AlphaVantageRateLimit(md.AlphaVantageRatePerMin)
	avHTTP := httputil.New(cfg, log).
		WithRateLimiter(limiter, avLimit).
		WithLimiter(rate.NewLimiter(rate.Every(avLimit.Window/time.Duration(avLimit.Limit)), 1))
	yahooHTTP := httputil.New(cfg, log).
		WithRateLimiter(limiter, redis.YahooRateLimit)

	primary := alphavantage.NewClient(avHTTP, md.AlphaVantageAPIKey, md.AlphaVantageBaseURL, log)
	secondary := yahoo.NewClient(yahooHTTP, md.YahooBaseURL, log)

	return marketdata.New(primary, secondary, marketdata.Config{
		BatchSize:  md.BatchSize,
		BatchDelay: md.BatchDelay,
		CacheTTL:   md.CacheTTL,
	}, log).WithCache(redis.NewCache(rc, "folio"))
}

// withDatabase connects Postgres and wires the report pipeline and orchestrator
func (a *app) withDatabase(ctx context.Context) error {
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	a.store = postgres.NewStore(db.Pool)

	a.generator = report.NewGenerator(a.store.Users, a.store.Positions, a.store.Reports, a.market, a.log)
	channel := delivery.NewEmailChannel(delivery.NewSMTPMailer(a.cfg.Email), a.store.Reports, a.cfg.Email, a.log)

	a.orchestrator = scheduler.New(
		a.store.Users,
		a.store.Reports,
		a.generator,
		channel,
		scheduler.ConfigFrom(a.cfg.Scheduler),
		a.log,
	)
	return nil
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}
