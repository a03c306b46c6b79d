package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/report"
)

// marketCmd represents the market command
var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Query the market data gateway",
	Long: `Fetches quotes and history through the primary provider with
automatic failover to the secondary.

Example:
  go run ./cmd/folio market quote AAPL
  go run ./cmd/folio market quotes AAPL MSFT GOOGL
  go run ./cmd/folio market validate TSLA
  go run ./cmd/folio market history AAPL --period 3m`,
}

var (
	marketQuoteCmd = &cobra.Command{
		Use:   "quote [symbol]",
		Short: "Latest quote for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runMarketQuote,
	}

	marketQuotesCmd = &cobra.Command{
		Use:   "quotes [symbol...]",
		Short: "Latest quotes for several symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMarketQuotes,
	}

	marketValidateCmd = &cobra.Command{
		Use:   "validate [symbol]",
		Short: "Check that a symbol exists",
		Args:  cobra.ExactArgs(1),
		RunE:  runMarketValidate,
	}

	marketHistoryCmd = &cobra.Command{
		Use:   "history [symbol]",
		Short: "Daily bars for a period",
		Args:  cobra.ExactArgs(1),
		RunE:  runMarketHistory,
	}
)

var (
	historyPeriod string
	outputFormat  string
)

func init() {
	rootCmd.AddCommand(marketCmd)
	marketCmd.AddCommand(marketQuoteCmd)
	marketCmd.AddCommand(marketQuotesCmd)
	marketCmd.AddCommand(marketValidateCmd)
	marketCmd.AddCommand(marketHistoryCmd)

	marketCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "table, json or yaml")
	marketHistoryCmd.Flags().StringVar(&historyPeriod, "period", "1m", "1w, 1m, 3m, 6m, 1y or 5y")
}

var quoteColumns = []int{8, 12, 12, 10, 14}

func printQuotes(quotes []contracts.Quote) {
	if printStructured(quotes) {
		return
	}
	PrintTableHeader([]string{"Symbol", "Price", "Change", "Change %", "Source"}, quoteColumns)
	for _, q := range quotes {
		PrintTableRow([]string{
			q.Symbol,
			report.FormatMoney(q.Price),
			report.FormatSignedMoney(q.Change),
			report.FormatPercent(q.ChangePercent),
			q.Source,
		}, quoteColumns)
	}
}

func runMarketQuote(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := a.market.GetQuote(ctx, args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}

	printQuotes([]contracts.Quote{*q})
	return nil
}

func runMarketQuotes(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	quotes, err := a.market.GetQuotes(ctx, args)
	if err != nil {
		return err
	}

	printQuotes(quotes)
	if missing := len(args) - len(quotes); missing > 0 && outputFormat == "table" {
		PrintWarning(fmt.Sprintf("%d of %d symbols returned no quote", missing, len(args)))
	}
	return nil
}

func runMarketValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	symbol := strings.ToUpper(args[0])
	valid := a.market.ValidateSymbol(ctx, symbol)
	if printStructured(map[string]interface{}{"symbol": symbol, "valid": valid}) {
		if !valid {
			return fmt.Errorf("unknown symbol %s", symbol)
		}
		return nil
	}
	if valid {
		PrintSuccess(symbol + " is a valid symbol")
		return nil
	}
	PrintError(symbol + " was not found")
	return fmt.Errorf("unknown symbol %s", symbol)
}

func runMarketHistory(cmd *cobra.Command, args []string) error {
	period, err := contracts.ParsePeriod(historyPeriod)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	points, err := a.market.GetHistory(ctx, args[0], period)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if printStructured(points) {
		return nil
	}

	widths := []int{10, 10, 10, 10, 10, 12}
	PrintTableHeader([]string{"Date", "Open", "High", "Low", "Close", "Volume"}, widths)
	for _, p := range points {
		PrintTableRow([]string{
			p.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", p.Open),
			fmt.Sprintf("%.2f", p.High),
			fmt.Sprintf("%.2f", p.Low),
			fmt.Sprintf("%.2f", p.Close),
			fmt.Sprintf("%d", p.Volume),
		}, widths)
	}
	return nil
}
