package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chrona/internal/store"
	"github.com/roach88/chrona/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Subject  string // optional - filter to one actor or action
	Kind     string // optional - filter to one event kind
}

// EventOutput is one trace event as printed by the CLI.
type EventOutput struct {
	Seq     uint64            `json:"seq"`
	Time    string            `json:"time"`
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Detail  map[string]string `json:"detail,omitempty"`
	Hash    string            `json:"hash,omitempty"`
	Line    string            `json:"-"`
}

// RunInfo summarises a stored run.
type RunInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Steps         int    `json:"steps"`
	FinalTime     string `json:"final_time,omitempty"`
	FinalState    string `json:"final_state,omitempty"`
	Digest        string `json:"digest,omitempty"`
	Error         string `json:"error,omitempty"`
	EngineVersion string `json:"engine_version"`
	CreatedAt     string `json:"created_at"`
}

// TraceResult holds the trace command output.
type TraceResult struct {
	Run    RunInfo       `json:"run"`
	Events []EventOutput `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the stored timeline of a run",
		Long: `Show the events recorded for a run, in sequence order.

Without --run, lists the runs stored in the database.

Examples:
  chrona trace --db ./chrona.db
  chrona trace --db ./chrona.db --run 0192...
  chrona trace --db ./chrona.db --run 0192... --subject goblin
  chrona trace --db ./chrona.db --run 0192... --kind spawn --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.path from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "only events for this actor key or action name")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind")

	return cmd
}

// openStore resolves --db against the config and opens the database.
func openStore(opts *RootOptions, flag string, f *OutputFormatter) (*store.Store, error) {
	path := flag
	if path == "" {
		path = opts.Config().Store.Path
	}
	if path == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "no database: pass --db or set store.path", nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	return st, nil
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Kind != "" && !trace.Kind(opts.Kind).Valid() {
		return f.Fail(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("unknown kind %q: must be one of %v", opts.Kind, trace.Kinds()), nil)
	}

	st, err := openStore(opts.RootOptions, opts.Database, f)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := contextOrBackground(cmd)
	if opts.RunID == "" {
		return listRuns(ctx, st, f)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return f.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		}
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	var recs []store.EventRecord
	if opts.Subject != "" {
		recs, err = st.ReadSubjectEvents(ctx, opts.RunID, opts.Subject)
	} else {
		recs, err = st.ReadEvents(ctx, opts.RunID)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to read events", err)
	}

	result := TraceResult{Run: runInfo(run), Events: []EventOutput{}}
	for _, rec := range recs {
		if opts.Kind != "" && string(rec.Kind) != opts.Kind {
			continue
		}
		out := eventOutput(rec.Event)
		out.Hash = rec.Hash
		result.Events = append(result.Events, out)
	}

	if f.JSON() {
		return f.Success(result)
	}

	w := f.Writer
	fmt.Fprintf(w, "Run: %s (%s, %s, %s)\n", run.ID, run.Name, run.Kind, run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	for _, e := range result.Events {
		if opts.Verbose {
			fmt.Fprintf(w, "%s  [%s]\n", e.Line, shortHash(e.Hash))
			continue
		}
		fmt.Fprintln(w, e.Line)
	}
	fmt.Fprintf(w, "\n%d event(s)\n", len(result.Events))
	return nil
}

func listRuns(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}
	infos := make([]RunInfo, len(runs))
	for i, r := range runs {
		infos[i] = runInfo(r)
	}

	if f.JSON() {
		return f.Success(map[string]any{"runs": infos})
	}
	if len(infos) == 0 {
		fmt.Fprintln(f.Writer, "No runs found in database.")
		return nil
	}
	for _, r := range infos {
		fmt.Fprintf(f.Writer, "%s  %-10s %-9s steps=%-6d t=%-10s %s\n",
			r.ID, r.Status, r.Kind, r.Steps, r.FinalTime, r.Name)
	}
	return nil
}

func runInfo(r store.Run) RunInfo {
	return RunInfo{
		ID:            r.ID,
		Name:          r.Name,
		Kind:          r.Kind,
		Status:        string(r.Status),
		Steps:         r.Steps,
		FinalTime:     r.FinalTime,
		FinalState:    r.FinalState,
		Digest:        r.Digest,
		Error:         r.Error,
		EngineVersion: r.EngineVersion,
		CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func eventOutput(e trace.Event) EventOutput {
	return EventOutput{
		Seq:     e.Seq,
		Time:    e.Time.Canonical(),
		Kind:    string(e.Kind),
		Subject: e.Subject,
		Detail:  e.Detail,
		Line:    e.String(),
	}
}

func eventOutputs(events []trace.Event) []EventOutput {
	out := make([]EventOutput, len(events))
	for i, e := range events {
		out[i] = eventOutput(e)
	}
	return out
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
