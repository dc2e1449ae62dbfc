package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/roach88/chrona/internal/harness"
	"github.com/roach88/chrona/internal/logx"
	"github.com/roach88/chrona/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	MaxSteps int
	Pace     float64 // steps per wall-clock second; 0 runs flat out
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	RunID     string        `json:"run_id,omitempty"`
	Scenario  string        `json:"scenario"`
	Kind      string        `json:"kind"`
	Pass      bool          `json:"pass"`
	Errors    []string      `json:"errors,omitempty"`
	Steps     int           `json:"steps"`
	FinalTime string        `json:"final_time"`
	State     string        `json:"final_state,omitempty"`
	Actors    []string      `json:"actors,omitempty"`
	Digest    string        `json:"digest"`
	Truncated bool          `json:"truncated,omitempty"`
	Trace     []EventOutput `json:"trace"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its trace",
		Long: `Run a scenario to completion (or until max steps) and print the trace.

With --db the run and its trace are stored in a SQLite database so they can
be inspected with "chrona trace" and re-verified with "chrona replay".

Exit codes:
  0 - Run finished and all assertions passed
  1 - Assertions failed or the scheduler aborted
  2 - Command error (scenario not found, database error, etc.)

Examples:
  chrona run ./scenarios/skirmish.yaml
  chrona run ./scenarios/skirmish.yaml --db ./chrona.db
  chrona run ./scenarios/forever.yaml --max-steps 500 --pace 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path from config)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "override the scenario's max_steps")
	cmd.Flags().Float64Var(&opts.Pace, "pace", 0, "limit execution to N steps per second")

	return cmd
}

// signalContext cancels on SIGINT/SIGTERM. The command's own context is used
// as the parent so tests can cancel it.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
}

// contextOrBackground returns the command's context; cobra leaves it nil
// when the command is executed without one.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// pacer turns --pace into a harness option.
func pacer(stepsPerSecond float64) []harness.Option {
	if stepsPerSecond <= 0 {
		return nil
	}
	lim := rate.NewLimiter(rate.Limit(stepsPerSecond), 1)
	return []harness.Option{harness.WithPacer(lim.Wait)}
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	log := opts.Logger()

	if opts.Pace < 0 {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "--pace must be non-negative", nil)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, "failed to load scenario", err)
	}
	scenario = effectiveScenario(opts.RootOptions, scenario, opts.MaxSteps)

	ctx, stop := signalContext(cmd)
	defer stop()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config().Store.Path
	}

	var (
		runID  string
		result *harness.Result
	)
	if dbPath == "" {
		result, err = harness.Run(ctx, scenario, harnessOptions(opts.RootOptions, pacer(opts.Pace)...)...)
	} else {
		st, openErr := store.Open(dbPath)
		if openErr != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", openErr)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", logx.Err(closeErr))
			}
		}()
		var rec *recordedRun
		rec, err = executeRecorded(ctx, st, opts.RootOptions, scenario, pacer(opts.Pace)...)
		if rec != nil {
			runID, result = rec.RunID, rec.Result
		}
		if err == nil {
			f.VerboseLog("Stored run %s in %s", runID, dbPath)
		}
	}
	if err != nil {
		msg := "scenario run failed"
		if runID != "" {
			msg = fmt.Sprintf("scenario run %s failed", runID)
		}
		return f.Fail(ExitFailure, ErrCodeEngine, msg, err)
	}

	out := RunOutput{
		RunID:     runID,
		Scenario:  scenario.Name,
		Kind:      scenario.Kind,
		Pass:      result.Pass,
		Errors:    result.Errors,
		Steps:     result.Steps,
		FinalTime: result.FinalTime.Canonical(),
		State:     result.FinalState,
		Actors:    result.Actors,
		Digest:    result.Digest,
		Truncated: result.Truncated,
		Trace:     eventOutputs(result.Trace),
	}
	if f.JSON() {
		if err := f.Success(out); err != nil {
			return err
		}
	} else {
		printRunText(f, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}
	return nil
}

func printRunText(f *OutputFormatter, out RunOutput) {
	w := f.Writer
	for _, e := range out.Trace {
		fmt.Fprintln(w, e.Line)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scenario: %s (%s)\n", out.Scenario, out.Kind)
	fmt.Fprintf(w, "Steps: %d, final time %s\n", out.Steps, out.FinalTime)
	if out.State != "" {
		fmt.Fprintf(w, "Final state: %s\n", out.State)
	}
	if out.Kind == harness.KindEntity {
		fmt.Fprintf(w, "Actors: %v\n", out.Actors)
	}
	if out.Truncated {
		fmt.Fprintln(w, "Stopped at max steps with work still pending")
	}
	fmt.Fprintf(w, "Digest: %s\n", out.Digest)
	if out.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", out.RunID)
	}

	if out.Pass {
		fmt.Fprintln(w, "✓ assertions passed")
		return
	}
	fmt.Fprintf(w, "✗ %d assertion(s) failed\n", len(out.Errors))
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
