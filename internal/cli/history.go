package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/groonga-club/grntest/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent harness runs",
		Long: `Show the most recent harness runs recorded in a history database.

Runs are recorded by "grntest run --db <path>" and listed newest first.

Examples:
  grntest history --db runs.db
  grntest history --db runs.db --limit 25 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the history SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "maximum number of runs to show")

	return cmd
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	st, err := history.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d passed, %d failed, %d not checked, %d omitted\n",
			r.StartedAt.Format(time.RFC3339), r.ID, r.Passed, r.Failed, r.NotChecked, r.Omitted)
	}
	return nil
}
