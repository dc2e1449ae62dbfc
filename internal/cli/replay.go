package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chrona/internal/harness"
	"github.com/roach88/chrona/internal/store"
	"github.com/roach88/chrona/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// Divergence locates the first event where a replay departs from the stored trace.
type Divergence struct {
	Seq      uint64 `json:"seq"`
	Stored   string `json:"stored,omitempty"`   // event line, empty when the stored trace ended first
	Replayed string `json:"replayed,omitempty"` // event line, empty when the replay ended first
}

// ReplayResult holds the replay command output.
type ReplayResult struct {
	RunID          string      `json:"run_id"`
	Scenario       string      `json:"scenario"`
	Deterministic  bool        `json:"deterministic"`
	StoredEvents   int         `json:"stored_events"`
	ReplayedEvents int         `json:"replayed_events"`
	StoredDigest   string      `json:"stored_digest"`
	ReplayedDigest string      `json:"replayed_digest"`
	ChainIntact    bool        `json:"chain_intact"`
	Divergence     *Divergence `json:"divergence,omitempty"`
	Warnings       []string    `json:"warnings,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute a stored run and verify it reproduces",
		Long: `Re-execute the scenario stored with a run and compare the new trace,
event by event, against the stored one.

The stored digest is also recomputed from the stored event hashes, so a
tampered or truncated trace is reported even if the replay matches it.

Exit codes:
  0 - Replay reproduced the stored trace
  1 - Replay diverged, or the stored trace is inconsistent
  2 - Command error (database or run not found, etc.)

Examples:
  chrona replay --db ./chrona.db --run 0192...
  chrona replay --db ./chrona.db --run 0192... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to replay (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.RootOptions, opts.Database, f)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return f.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		}
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	if run.Status == store.StatusRunning {
		return f.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("run %s never finished", run.ID), nil)
	}

	stored, err := st.ReadEvents(ctx, run.ID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read events", err)
	}

	scenario, err := harness.ParseScenario([]byte(run.Scenario))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, "stored scenario is invalid", err)
	}

	out := ReplayResult{
		RunID:        run.ID,
		Scenario:     run.Name,
		StoredEvents: len(stored),
		StoredDigest: run.Digest,
	}
	if run.EngineVersion != harness.EngineVersion {
		out.Warnings = append(out.Warnings, fmt.Sprintf("run was recorded by %s, replaying with %s",
			run.EngineVersion, harness.EngineVersion))
	}

	rec := trace.NewRecorder()
	_, runErr := harness.Run(ctx, scenario, harnessOptions(opts.RootOptions, harness.WithObserver(rec))...)
	failed := run.Status == store.StatusFailed
	if runErr != nil && !failed {
		return f.Fail(ExitFailure, ErrCodeEngine, "replay failed", runErr)
	}
	replayed := rec.Events()
	out.ReplayedEvents = len(replayed)
	if out.ReplayedDigest, err = trace.Digest(replayed); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to hash replayed trace", err)
	}

	out.Divergence, err = firstDivergence(stored, replayed)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to hash replayed trace", err)
	}

	if failed {
		// A failed run has no digest; it must fail again the same way.
		out.ChainIntact = true
		if runErr == nil || runErr.Error() != run.Error {
			out.Warnings = append(out.Warnings, fmt.Sprintf("stored run failed with %q, replay returned %v", run.Error, runErr))
		} else {
			out.Deterministic = out.Divergence == nil
		}
	} else {
		chain := ""
		for _, r := range stored {
			chain = trace.Chain(chain, r.Hash)
		}
		out.ChainIntact = chain == run.Digest
		out.Deterministic = out.Divergence == nil && out.ChainIntact && out.ReplayedDigest == run.Digest
	}

	if f.JSON() {
		if err := f.Success(out); err != nil {
			return err
		}
	} else {
		printReplayText(f, out)
	}

	if !out.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("replay of %s diverged", run.ID))
	}
	return nil
}

// firstDivergence compares stored and replayed events by content hash and
// returns nil when they agree.
func firstDivergence(stored []store.EventRecord, replayed []trace.Event) (*Divergence, error) {
	n := max(len(stored), len(replayed))
	for i := range n {
		var d Divergence
		var storedHash, replayedHash string
		if i < len(stored) {
			// Hash the stored content rather than trusting the hash column;
			// the column is checked separately against the digest chain.
			h, err := trace.Hash(stored[i].Event)
			if err != nil {
				return nil, err
			}
			d.Seq = stored[i].Seq
			d.Stored = stored[i].String()
			storedHash = h
		}
		if i < len(replayed) {
			h, err := trace.Hash(replayed[i])
			if err != nil {
				return nil, err
			}
			d.Seq = replayed[i].Seq
			d.Replayed = replayed[i].String()
			replayedHash = h
		}
		if storedHash != replayedHash {
			return &d, nil
		}
	}
	return nil, nil
}

func printReplayText(f *OutputFormatter, out ReplayResult) {
	w := f.Writer
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	fmt.Fprintf(w, "Run: %s (%s)\n", out.RunID, out.Scenario)
	fmt.Fprintf(w, "Events: %d stored, %d replayed\n", out.StoredEvents, out.ReplayedEvents)
	if f.Verbose {
		fmt.Fprintf(w, "Stored digest:   %s\n", out.StoredDigest)
		fmt.Fprintf(w, "Replayed digest: %s\n", out.ReplayedDigest)
	}
	if !out.ChainIntact {
		fmt.Fprintln(w, "✗ stored event hashes do not chain to the stored digest")
	}
	if d := out.Divergence; d != nil {
		fmt.Fprintf(w, "✗ diverged at event #%d\n", d.Seq)
		fmt.Fprintf(w, "  stored:   %s\n", orNone(d.Stored))
		fmt.Fprintf(w, "  replayed: %s\n", orNone(d.Replayed))
	}
	if out.Deterministic {
		fmt.Fprintln(w, "✓ replay is deterministic")
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
