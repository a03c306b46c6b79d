package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/delivery"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Daily report tools",
}

var reportShowCmd = &cobra.Command{
	Use:   "show [user_id]",
	Short: "Render a user's daily report in the terminal",
	Long: `Renders the stored daily report with the same template used for email.
With --generate a missing report is built and stored first (no email is sent).

Example:
  go run ./cmd/folio report show 4f1c...
  go run ./cmd/folio report show 4f1c... --date 2024-03-15
  go run ./cmd/folio report show 4f1c... --generate`,
	Args: cobra.ExactArgs(1),
	RunE: runReportShow,
}

var (
	reportDate     string
	reportGenerate bool
	reportRaw      bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportShowCmd)

	reportShowCmd.Flags().StringVar(&reportDate, "date", "", "report date YYYY-MM-DD (default today in the scheduler timezone)")
	reportShowCmd.Flags().BoolVar(&reportGenerate, "generate", false, "generate today's report when none exists")
	reportShowCmd.Flags().BoolVar(&reportRaw, "raw", false, "print markdown without terminal styling")
}

func runReportShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userID := args[0]

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withDatabase(ctx); err != nil {
		return err
	}

	user, err := a.store.Users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	record, err := loadReport(ctx, a, userID)
	if err != nil {
		return err
	}
	if record == nil {
		PrintWarning("No report for that day. Use --generate to build today's report.")
		return nil
	}

	md, err := delivery.NewRenderer().Markdown(user, record)
	if err != nil {
		return err
	}

	if reportRaw {
		fmt.Println(md)
		return nil
	}

	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create terminal renderer: %w", err)
	}
	out, err := term.Render(md)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	fmt.Print(out)

	if record.EmailSent && record.EmailSentAt != nil {
		PrintSuccess("Emailed at " + record.EmailSentAt.Format(time.RFC1123))
	}
	return nil
}

func loadReport(ctx context.Context, a *app, userID string) (*contracts.DailyReportRecord, error) {
	loc, err := time.LoadLocation(a.cfg.Scheduler.Timezone)
	if err != nil {
		loc = time.UTC
	}
	date := contracts.ReportDate(time.Now(), loc)
	if reportDate != "" {
		date, err = time.Parse("2006-01-02", reportDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --date: %w", err)
		}
	}

	if reportGenerate {
		return a.generator.GenerateDailyReport(ctx, userID, date)
	}
	return a.store.Reports.FindDailyReport(ctx, userID, date)
}
