package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/folio/backend/internal/api"
	"github.com/wonny/folio/backend/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and daily update scheduler",
	Long: `Starts the control plane HTTP API and, unless disabled, arms the
daily update timer.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/scheduler/status
  POST /api/scheduler/arm | disarm | trigger
  POST /api/scheduler/trigger/{userID}
  GET  /api/scheduler/runs
  GET  /api/scheduler/events       (websocket)
  GET  /api/market/quote/{symbol}
  GET  /api/market/quotes?symbols=
  GET  /api/market/validate/{symbol}
  GET  /api/market/history/{symbol}?period=

Example:
  go run ./cmd/folio serve
  go run ./cmd/folio serve --port 8080 --no-scheduler`,
	RunE: runServe,
}

var (
	servePort     string
	noScheduler   bool
	shutdownGrace time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default from PORT)")
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not arm the daily update timer")
	serveCmd.Flags().DurationVar(&shutdownGrace, "shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	if err := a.withDatabase(ctx); err != nil {
		return err
	}
	a.log.Info("Connected to database")

	// Runs outlive request contexts but stop with the process
	a.orchestrator.WithBaseContext(ctx)

	hub := handlers.NewEventHub(a.log)
	a.orchestrator.OnRunComplete(hub.Publish)

	router := api.NewRouter(api.Handlers{
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": a.db.Pool,
			"redis":    a.redis,
		}),
		Scheduler: handlers.NewSchedulerHandler(a.orchestrator, a.log),
		Events:    hub,
		Market:    handlers.NewMarketHandler(a.market, a.log),
		Metrics:   a.cfg.MetricsEnabled,
	}, a.log)
	server := api.New(a.cfg, a.log, router)

	if a.cfg.Scheduler.Enabled && !noScheduler {
		if err := a.orchestrator.Arm("", ""); err != nil {
			return fmt.Errorf("arm scheduler: %w", err)
		}
	} else {
		a.log.Info("Daily update timer not armed")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		a.orchestrator.Disarm()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
