package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/groonga-club/grntest/internal/history"
	"github.com/groonga-club/grntest/internal/report"
	"github.com/groonga-club/grntest/internal/script"
	"github.com/groonga-club/grntest/internal/server"
	"github.com/groonga-club/grntest/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config  string
	Groonga string
	Filter  string
	History string
	Timeout float64
	OnError string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script-or-directory>...",
		Short: "Execute test scripts against a Groonga server",
		Long: `Execute test scripts against a freshly spawned Groonga server.

Each script gets its own server process and temporary database, so runs
never share state. The collected output is normalized and compared with
the script's .expected file; a mismatch produces a .reject artifact and a
missing expectation produces a .actual artifact to seed one.

Exit codes:
  0 - All scripts passed (or were omitted / not checked)
  1 - One or more scripts failed
  2 - Command error (invalid paths, server failed to start, etc.)

Examples:
  grntest run ./suite
  grntest run ./suite --filter "select-*"
  grntest run ./suite/users.test --groonga /opt/groonga/bin/groonga
  grntest run ./suite --config .grntest.yaml --db runs.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to a .grntest.yaml config file")
	cmd.Flags().StringVar(&opts.Groonga, "groonga", "", "server binary (overrides config)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scripts by glob pattern")
	cmd.Flags().StringVar(&opts.History, "db", "", "record outcomes in this SQLite database")
	cmd.Flags().Float64Var(&opts.Timeout, "timeout", 0, "seconds to wait for the first response byte")
	cmd.Flags().StringVar(&opts.OnError, "on-error", "", `error policy: "default" or "omit"`)

	return cmd
}

func runScripts(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	scripts, err := suite.Discover(paths, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to discover scripts", err)
	}
	if len(scripts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No test scripts found.")
		return nil
	}

	results := make([]*report.Result, 0, len(scripts))
	for _, path := range scripts {
		logger.Debug("running script", "path", path)
		res, err := runOne(cmd.Context(), cfg, path, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run %s", path), err)
		}
		results = append(results, res)
	}

	summary := report.Summarize(results)
	if cfg.History != "" {
		if err := recordHistory(cfg.History, summary, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to record history", err)
		}
	}

	if opts.Format == "json" {
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(cmd, summary)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scripts failed", summary.Failed, summary.Total))
	}
	return nil
}

// loadRunConfig layers the command-line flags over the config file (or the
// built-in defaults when no file is given).
func loadRunConfig(opts *RunOptions) (suite.Config, error) {
	cfg := suite.DefaultConfig()
	if opts.Config != "" {
		var err error
		cfg, err = suite.Load(opts.Config)
		if err != nil {
			return cfg, err
		}
	}
	if opts.Groonga != "" {
		cfg.Groonga = opts.Groonga
	}
	if opts.Timeout > 0 {
		cfg.ReadTimeout = opts.Timeout
	}
	if opts.OnError != "" {
		cfg.OnError = opts.OnError
	}
	if opts.History != "" {
		cfg.History = opts.History
	}
	return cfg, nil
}

// runOne executes a single script against its own server process and a
// fresh temporary database, then compares the output.
func runOne(ctx context.Context, cfg suite.Config, scriptPath string, logger *slog.Logger) (*report.Result, error) {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}

	dbDir, err := os.MkdirTemp("", "grntest-db-")
	if err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	defer os.RemoveAll(dbDir)

	args := make([]string, 0, len(cfg.Args))
	for _, a := range cfg.Args {
		args = append(args, strings.ReplaceAll(a, suite.DatabasePlaceholder, filepath.Join(dbDir, "db")))
	}
	proc, err := server.Start(ctx, cfg.Groonga, args...)
	if err != nil {
		return nil, err
	}
	defer proc.Stop(server.DefaultStopGrace)

	ch := script.NewChannel(proc.Stdin(), proc.Stdout())
	ch.SetReadTimeout(time.Duration(cfg.ReadTimeout * float64(time.Second)))

	policy := script.OnErrorDefault
	if cfg.OnError == "omit" {
		policy = script.OnErrorOmit
	}
	runCtx := script.NewContext(filepath.Dir(scriptPath),
		script.WithOnError(policy),
		script.WithLogger(logger),
	)

	log, err := script.New(runCtx, ch).Execute(scriptPath)
	if err != nil {
		return nil, err
	}

	res, err := report.Compare(scriptPath, report.Format(log), runCtx.Omitted())
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func recordHistory(path string, summary report.Summary, logger *slog.Logger) error {
	st, err := history.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	scripts := make([]history.ScriptOutcome, 0, len(summary.Scripts))
	for _, sc := range summary.Scripts {
		scripts = append(scripts, history.ScriptOutcome{
			Script:  sc.Script,
			Outcome: sc.Outcome,
			Elapsed: time.Duration(sc.ElapsedMS) * time.Millisecond,
		})
	}
	id, err := st.RecordRun(history.Run{
		Passed:     summary.Passed,
		Failed:     summary.Failed,
		NotChecked: summary.NotChecked,
		Omitted:    summary.Omitted,
	}, scripts)
	if err != nil {
		return err
	}
	logger.Debug("recorded run", "id", id, "db", path)
	return nil
}

func printSummary(cmd *cobra.Command, summary report.Summary) {
	out := cmd.OutOrStdout()
	for _, sc := range summary.Scripts {
		fmt.Fprintf(out, "%-11s %s (%dms)\n", strings.ToUpper(sc.Outcome), sc.Script, sc.ElapsedMS)
		if sc.Diff != "" {
			fmt.Fprint(out, sc.Diff)
		}
	}
	fmt.Fprintf(out, "\n%d tests: %d passed, %d failed, %d not checked, %d omitted\n",
		summary.Total, summary.Passed, summary.Failed, summary.NotChecked, summary.Omitted)
}
