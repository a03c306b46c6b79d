package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio - portfolio daily update service",
	Long: `Folio Unified CLI

Daily portfolio reports by email, plus a two-provider market data gateway.

Usage:
  go run ./cmd/folio [command]

Examples:
  go run ./cmd/folio serve
  go run ./cmd/folio migrate
  go run ./cmd/folio scheduler run
  go run ./cmd/folio market quote AAPL
  go run ./cmd/folio report show <user-id>`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
