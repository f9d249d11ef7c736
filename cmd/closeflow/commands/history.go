package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history TASK_ID",
		Short: "Show the status history of a task",
		Long: `Show every recorded status change of a task, oldest first.

History is kept by the local SQLite store only.`,
		Example: `  closeflow history 6f1c0d3e-... --limit 20`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, "task_history", func(rt *runtime) (interface{}, error) {
				store, err := rt.localStore(cmd.Context())
				if err != nil {
					return nil, err
				}
				return store.ListStatusHistory(cmd.Context(), args[0], limit, offset)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")

	return cmd
}

func newPeriodsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Manage initialized fiscal periods",
		Long: `List, inspect and remove fiscal periods in the local SQLite store.`,
	}

	cmd.AddCommand(newPeriodsListCommand())
	cmd.AddCommand(newPeriodsShowCommand())
	cmd.AddCommand(newPeriodsDeleteCommand())

	return cmd
}

func newPeriodsListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List fiscal periods, newest first",
		Example: `  closeflow periods list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, "list_periods", func(rt *runtime) (interface{}, error) {
				store, err := rt.localStore(cmd.Context())
				if err != nil {
					return nil, err
				}
				return store.ListFiscalPeriods(cmd.Context(), limit, offset)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 24, "maximum number of periods")
	cmd.Flags().IntVar(&offset, "offset", 0, "periods to skip")

	return cmd
}

func newPeriodsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "show PERIOD",
		Short:   "Show one fiscal period",
		Example: `  closeflow periods show 2025-01`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, "get_period", func(rt *runtime) (interface{}, error) {
				store, err := rt.localStore(cmd.Context())
				if err != nil {
					return nil, err
				}
				return store.GetFiscalPeriod(cmd.Context(), args[0])
			})
		},
	}
}

func newPeriodsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete PERIOD",
		Short: "Delete a fiscal period and all of its tasks",
		Long: `Delete a fiscal period together with its tasks and their history.

The period can then be initialized again.`,
		Example: `  closeflow periods delete 2025-01`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, "delete_period", func(rt *runtime) (interface{}, error) {
				store, err := rt.localStore(cmd.Context())
				if err != nil {
					return nil, err
				}
				if err := store.DeleteFiscalPeriod(cmd.Context(), args[0]); err != nil {
					return nil, err
				}
				log.Info().Str("period", args[0]).Msg("Fiscal period deleted")
				return map[string]string{"deleted": args[0]}, nil
			})
		},
	}
}
