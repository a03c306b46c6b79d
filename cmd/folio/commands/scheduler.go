package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/scheduler"
	"github.com/wonny/folio/backend/pkg/config"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Daily update scheduler tools",
	Long: `Runs the daily update once, updates a single user, or checks a schedule.

Subcommands:
  run            - run the daily update for every eligible user now
  trigger-user   - update one user now
  validate       - check a cron expression and list the next fire times

Example:
  go run ./cmd/folio scheduler run
  go run ./cmd/folio scheduler trigger-user 4f1c...
  go run ./cmd/folio scheduler validate "0 8 * * 1-5" --timezone Europe/London`,
}

var (
	schedulerRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the daily update now",
		RunE:  runDailyUpdate,
	}

	schedulerTriggerUserCmd = &cobra.Command{
		Use:   "trigger-user [user_id]",
		Short: "Update one user now",
		Args:  cobra.ExactArgs(1),
		RunE:  runTriggerUser,
	}

	schedulerValidateCmd = &cobra.Command{
		Use:   "validate [cron]",
		Short: "Validate a schedule",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runValidateSchedule,
	}
)

var (
	validateTimezone string
	validateCount    int
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerTriggerUserCmd)
	schedulerCmd.AddCommand(schedulerValidateCmd)

	schedulerValidateCmd.Flags().StringVar(&validateTimezone, "timezone", "", "IANA timezone (default from DAILY_UPDATE_TIMEZONE)")
	schedulerValidateCmd.Flags().IntVar(&validateCount, "next", 5, "number of upcoming fire times to list")
}

func runDailyUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withDatabase(ctx); err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Println("  Daily update")
	PrintSeparator()

	stats, ran := a.orchestrator.RunOnce(ctx, scheduler.TriggerManual)
	if !ran {
		PrintWarning("A run is already in progress")
		return nil
	}

	printRunStats(stats)
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d users failed", stats.Failed, stats.TotalUsers)
	}
	return nil
}

func runTriggerUser(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withDatabase(ctx); err != nil {
		return err
	}

	outcome, err := a.orchestrator.TriggerForUser(ctx, args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("User %s: %s", args[0], outcome))
	return nil
}

func runValidateSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	expr := cfg.Scheduler.Cron
	if len(args) == 1 {
		expr = args[0]
	}
	tz := cfg.Scheduler.Timezone
	if validateTimezone != "" {
		tz = validateTimezone
	}

	sched, loc, err := scheduler.ValidateSchedule(expr, tz)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("%q is valid in %s", expr, loc))
	next := time.Now().In(loc)
	for i := 0; i < validateCount; i++ {
		next = sched.Next(next)
		fmt.Printf("   %d. %s\n", i+1, next.Format("Mon 2006-01-02 15:04 MST"))
	}
	return nil
}

func printRunStats(stats *contracts.RunStats) {
	PrintKeyValue("Run ID", stats.RunID, 10)
	PrintKeyValue("Trigger", stats.Trigger, 10)
	PrintKeyValue("Users", fmt.Sprintf("%d", stats.TotalUsers), 10)
	PrintKeyValue("Sent", fmt.Sprintf("%d", stats.Successful), 10)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", stats.Skipped), 10)
	PrintKeyValue("Failed", fmt.Sprintf("%d", stats.Failed), 10)
	PrintKeyValue("Duration", stats.Duration.Round(time.Millisecond).String(), 10)

	if len(stats.Errors) > 0 {
		fmt.Println()
		PrintTableHeader([]string{"User", "Error"}, []int{36, 60})
		for _, e := range stats.Errors {
			user := e.UserID
			if user == "" {
				user = "(run)"
			}
			PrintTableRow([]string{user, e.Error}, []int{36, 60})
		}
	}
	fmt.Println()
}
