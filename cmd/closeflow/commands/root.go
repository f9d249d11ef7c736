package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	envFile     string
	catalogPath string
	appVersion  string
)

// reportedError marks a failure whose details were already written as command output.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already written to the command output.
func IsReported(err error) bool {
	var re *reportedError
	return errors.As(err, &re)
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	appVersion = version

	rootCmd := &cobra.Command{
		Use:   "closeflow",
		Short: "closeflow - month-end close scheduling engine",
		Long: `closeflow plans and tracks the month-end financial close.

It lays a dependency-aware catalog of close tasks onto business days after
the period end, records task progress, and reports on:
  - Completion and schedule health
  - Blocked tasks and what holds them up
  - The critical path through the close
  - Close-control policy violations (OPA/rego)`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with CLOSEFLOW_* settings (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "task catalog file (.cue, .yaml or .json); overrides the config")

	rootCmd.AddCommand(newInitializeCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newProgressCommand())
	rootCmd.AddCommand(newBlockersCommand())
	rootCmd.AddCommand(newCalendarCommand())
	rootCmd.AddCommand(newCriticalPathCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newPeriodsCommand())
	rootCmd.AddCommand(newCatalogCommand())
	rootCmd.AddCommand(newInvokeCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
