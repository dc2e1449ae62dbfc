package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/chrona/internal/harness"
	"github.com/roach88/chrona/internal/logx"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <scenario.yaml>",
		Short: "Re-run a scenario whenever its file changes",
		Long: `Run a scenario, then watch its file and run it again after every save.

Editors often write a file in several steps; changes are debounced so each
save produces one run. Stops on Ctrl-C.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before re-running")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	log := opts.Logger()

	if _, err := os.Stat(path); err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, "scenario not found", err)
	}
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to start watcher", err)
	}
	defer w.Close()
	// The directory is watched, not the file: editors that save by rename
	// would otherwise drop the watch after the first save.
	if err := w.Add(dir); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to watch directory", err)
	}

	watchOnce(ctx, opts.RootOptions, path, f)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("scenario changed", logx.String("path", path), logx.String("op", ev.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(opts.Debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			watchOnce(ctx, opts.RootOptions, path, f)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", logx.Err(err), logx.String("dir", dir))
		}
	}
}

// watchOnce loads and runs the scenario at path and prints a one-block
// summary. Errors are printed, never returned: the watch keeps going.
func watchOnce(ctx context.Context, opts *RootOptions, path string, f *OutputFormatter) {
	w := f.Writer
	fmt.Fprintf(w, "── %s (%s)\n", path, time.Now().Format(time.TimeOnly))

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		fmt.Fprintf(w, "✗ load: %v\n", err)
		return
	}
	scenario = effectiveScenario(opts, scenario, 0)

	result, err := harness.Run(ctx, scenario, harnessOptions(opts)...)
	if err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(w, "✗ run: %v\n", err)
		}
		return
	}

	fmt.Fprintf(w, "%s: %d step(s), %d event(s), final time %s\n",
		scenario.Name, result.Steps, len(result.Trace), result.FinalTime.Canonical())
	if result.FinalState != "" {
		fmt.Fprintf(w, "final state: %s\n", result.FinalState)
	}
	if result.Truncated {
		fmt.Fprintln(w, "stopped at max steps")
	}
	if result.Pass {
		fmt.Fprintln(w, "✓ assertions passed")
		return
	}
	fmt.Fprintf(w, "✗ %d assertion(s) failed\n", len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
