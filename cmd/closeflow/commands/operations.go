package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/closeflow/pkg/closeops"
	"github.com/ledgerworks/closeflow/pkg/engine"
)

// runOperation loads the runtime, runs fn and writes its result as an envelope.
func runOperation(cmd *cobra.Command, op string, fn func(*runtime) (interface{}, error)) error {
	ctx := cmd.Context()

	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	data, err := fn(rt)
	return emit(cmd, op, data, err)
}

// emit writes the success or failure envelope for an operation.
func emit(cmd *cobra.Command, op string, data interface{}, err error) error {
	resp := closeops.Success(op, data)
	if err != nil {
		resp = closeops.Failure(err)
	}
	if werr := closeops.WriteResponse(cmd.OutOrStdout(), resp); werr != nil {
		return werr
	}
	if err != nil {
		return &reportedError{err: err}
	}
	return nil
}

func newInitializeCommand() *cobra.Command {
	var (
		period    string
		endDate   string
		closeDays int
		assignees map[string]string
	)

	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Create the close tasks for a period",
		Long: `Create the close tasks for a fiscal period.

Every catalog template scheduled within the close window becomes a task with
a due date on the matching business day after the period end. Tasks start
NOT_STARTED and are recorded in the local store.`,
		Example: `  # Five-day close for January
  closeflow initialize --period 2025-01 --period-end-date 2025-01-31

  # Three-day close with owners per category
  closeflow initialize --period 2025-02 --period-end-date 2025-02-28 \
    --close-days 3 --assign RECONCILIATION=alice --assign REPORTING=bob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Debug().
				Str("period", period).
				Str("period_end_date", endDate).
				Int("close_days", closeDays).
				Msg("Initializing close")

			return runOperation(cmd, closeops.OpInitializeCloseTasks, func(rt *runtime) (interface{}, error) {
				svc, err := rt.service(cmd.Context())
				if err != nil {
					return nil, err
				}
				return svc.InitializeCloseTasks(cmd.Context(), closeops.InitializeParams{
					Period:        period,
					PeriodEndDate: endDate,
					CloseDays:     &closeDays,
					Assignees:     assignees,
				})
			})
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "fiscal period name, e.g. 2025-01")
	cmd.Flags().StringVar(&endDate, "period-end-date", "", "last calendar day of the period (YYYY-MM-DD)")
	cmd.Flags().IntVar(&closeDays, "close-days", engine.DefaultCloseDays, "number of business days in the close")
	cmd.Flags().StringToStringVar(&assignees, "assign", nil, "owner per category (CATEGORY=owner)")

	return cmd
}

func newStatusCommand() *cobra.Command {
	var (
		notes       string
		completedBy string
	)

	cmd := &cobra.Command{
		Use:   "status TASK_ID STATUS",
		Short: "Update the status of a close task",
		Long: fmt.Sprintf(`Update the status of a close task.

Valid statuses: %v. Completing a task stamps the completion
time and, when given, who completed it.`, engine.AllTaskStatuses),
		Example: `  # Start a task
  closeflow status 6f1c0d3e-... IN_PROGRESS

  # Complete a task
  closeflow status 6f1c0d3e-... COMPLETED --completed-by alice --notes "tied out"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := closeops.UpdateStatusParams{TaskID: args[0], NewStatus: args[1]}
			if cmd.Flags().Changed("notes") {
				params.Notes = &notes
			}
			if cmd.Flags().Changed("completed-by") {
				params.CompletedBy = &completedBy
			}

			return runOperation(cmd, closeops.OpUpdateTaskStatus, func(rt *runtime) (interface{}, error) {
				svc, err := rt.service(cmd.Context())
				if err != nil {
					return nil, err
				}
				return svc.UpdateTaskStatus(cmd.Context(), params)
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "notes to attach to the task")
	cmd.Flags().StringVar(&completedBy, "completed-by", "", "who completed the task")

	return cmd
}

func newProgressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress PERIOD",
		Short: "Report close progress and health",
		Long: `Report completion, late tasks and overall health for a period.

Health is AT_RISK with any blocked task or more than three late tasks,
NEEDS_ATTENTION with any late task or under 50% completion, and ON_TRACK
otherwise. Close-control violations are listed when policies are enabled.`,
		Example: `  closeflow progress 2025-01`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, closeops.OpGetCloseProgress, func(rt *runtime) (interface{}, error) {
				svc, err := rt.service(cmd.Context())
				if err != nil {
					return nil, err
				}
				return svc.GetCloseProgress(cmd.Context(), closeops.PeriodParams{Period: args[0]})
			})
		},
	}
}

func newBlockersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "blockers PERIOD",
		Short: "List blocked tasks and what holds them up",
		Example: `  closeflow blockers 2025-01`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, closeops.OpIdentifyBlockers, func(rt *runtime) (interface{}, error) {
				svc, err := rt.service(cmd.Context())
				if err != nil {
					return nil, err
				}
				return svc.IdentifyBlockers(cmd.Context(), closeops.PeriodParams{Period: args[0]})
			})
		},
	}
}

func newCalendarCommand() *cobra.Command {
	var (
		closeDays int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "calendar PERIOD PERIOD_END_DATE",
		Short: "Render the close calendar",
		Long: `Render the day-by-day close calendar for a period.

The calendar comes from the catalog alone; no store is opened.`,
		Example: `  # JSON envelope
  closeflow calendar 2025-01 2025-01-31

  # Printable checklist
  closeflow calendar 2025-01 2025-01-31 --format text`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("unsupported format %q (json, text)", format)
			}

			ctx := cmd.Context()
			rt, err := loadRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			cal, err := rt.catalogService().GenerateCloseCalendar(ctx, closeops.CalendarParams{
				Period:        args[0],
				PeriodEndDate: args[1],
				CloseDays:     &closeDays,
			})
			if err != nil || format == "json" {
				return emit(cmd, closeops.OpGenerateCloseCalendar, cal, err)
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), cal.TextFormat)
			return err
		},
	}

	cmd.Flags().IntVar(&closeDays, "close-days", engine.DefaultCloseDays, "number of business days in the close")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, text)")

	return cmd
}

func newCriticalPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "critical-path PERIOD",
		Short: "Show the longest dependency chain in the catalog",
		Example: `  closeflow critical-path 2025-01

  # Against a custom catalog
  closeflow critical-path 2025-01 --catalog ./close.cue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, closeops.OpGetCriticalPath, func(rt *runtime) (interface{}, error) {
				return rt.catalogService().GetCriticalPath(cmd.Context(), closeops.PeriodParams{Period: args[0]})
			})
		},
	}
}
