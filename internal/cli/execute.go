package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chrona/internal/harness"
	"github.com/roach88/chrona/internal/store"
)

// effectiveScenario fills in the settings a scenario leaves to the config
// (cooldown curve, max steps) so the stored copy replays identically under a
// different config. maxSteps > 0 overrides the scenario.
func effectiveScenario(opts *RootOptions, s *harness.Scenario, maxSteps int) *harness.Scenario {
	cfg := opts.Config()
	eff := *s
	if eff.Kind == harness.KindEntity && eff.Cooldown == nil {
		c := cfg.Curve()
		eff.Cooldown = &harness.CooldownSpec{Scale: c.Scale, K: c.K}
	}
	switch {
	case maxSteps > 0:
		eff.MaxSteps = maxSteps
	case eff.MaxSteps == 0:
		eff.MaxSteps = cfg.Engine.MaxSteps
	}
	return &eff
}

// harnessOptions are the options every command passes to harness.Run.
func harnessOptions(opts *RootOptions, extra ...harness.Option) []harness.Option {
	cfg := opts.Config()
	base := []harness.Option{
		harness.WithLogger(opts.Logger()),
		harness.WithKeyGenerator(cfg.KeyGenerator()),
	}
	return append(base, extra...)
}

// recordedRun is the outcome of executing a scenario with persistence.
type recordedRun struct {
	RunID  string
	Result *harness.Result
}

// executeRecorded runs s and stores its trace under a new run ID. The run row
// is marked failed if the scheduler errors; the error is still returned.
func executeRecorded(ctx context.Context, st *store.Store, opts *RootOptions, s *harness.Scenario,
	extra ...harness.Option) (*recordedRun, error) {
	source, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode scenario: %w", err)
	}
	sum := sha256.Sum256(source)

	// Persistence must survive an interrupted run.
	wctx := context.WithoutCancel(ctx)

	runID := store.NewRunID()
	err = st.CreateRun(wctx, store.Run{
		ID:            runID,
		Name:          s.Name,
		Kind:          s.Kind,
		Scenario:      string(source),
		ScenarioHash:  hex.EncodeToString(sum[:]),
		EngineVersion: harness.EngineVersion,
	})
	if err != nil {
		return nil, err
	}

	sink := st.Sink(wctx, runID)
	hopts := harnessOptions(opts, append(extra, harness.WithObserver(sink))...)
	result, runErr := harness.Run(ctx, s, hopts...)
	flushErr := sink.Flush()

	summary := store.Summary{Status: store.StatusCompleted}
	if result != nil {
		summary.Steps = result.Steps
		summary.FinalTime = result.FinalTime.Canonical()
		summary.FinalState = result.FinalState
		summary.Digest = result.Digest
	}
	if runErr != nil {
		summary.Status = store.StatusFailed
		summary.Error = runErr.Error()
	}
	if err := st.FinishRun(wctx, runID, summary); err != nil {
		return nil, err
	}
	if flushErr != nil {
		return nil, fmt.Errorf("persist trace: %w", flushErr)
	}
	if runErr != nil {
		return &recordedRun{RunID: runID}, runErr
	}
	return &recordedRun{RunID: runID, Result: result}, nil
}
