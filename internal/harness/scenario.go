package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chrona/internal/trace"
)

// Scenario kinds.
const (
	KindEntity   = "entity"
	KindReactive = "reactive"
)

// Scenario describes one deterministic run of either scheduler together with
// the assertions its trace must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Kind selects the scheduler: "entity" or "reactive".
	Kind string `yaml:"kind"`

	// StartTime is the initial logical time.
	StartTime float64 `yaml:"start_time,omitempty"`

	// MaxSteps bounds the run. Zero falls back to DefaultMaxSteps.
	// Reaching the bound is not a failure; the result is marked truncated.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Cooldown overrides the entity cooldown curve.
	Cooldown *CooldownSpec `yaml:"cooldown,omitempty"`

	// Actors are admitted in order at StartTime (entity only).
	Actors []ActorSpec `yaml:"actors,omitempty"`

	// InitialState and Triggers define the machine (reactive only).
	InitialState *int64        `yaml:"initial_state,omitempty"`
	Triggers     []TriggerSpec `yaml:"triggers,omitempty"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CooldownSpec mirrors entity.Curve.
type CooldownSpec struct {
	Scale float64 `yaml:"scale"`
	K     float64 `yaml:"k"`
}

// ActorSpec is a scripted actor.
type ActorSpec struct {
	Key  string  `yaml:"key"`
	Rate float64 `yaml:"rate"`

	// Lifetime is the number of activations before the actor retires.
	// Zero means it never retires.
	Lifetime int `yaml:"lifetime,omitempty"`

	// RateStep lists the rates taken after the first, second, ... activation.
	RateStep []float64 `yaml:"rate_step,omitempty"`

	Spawn   []SpawnSpec  `yaml:"spawn,omitempty"`
	Removes []RemoveSpec `yaml:"removes,omitempty"`
}

// SpawnSpec inserts a new actor during the At-th activation (1-based) of its
// parent. An empty Key asks the scheduler for a fresh one.
type SpawnSpec struct {
	At       int     `yaml:"at"`
	Key      string  `yaml:"key,omitempty"`
	Rate     float64 `yaml:"rate"`
	Lifetime int     `yaml:"lifetime,omitempty"`
}

// RemoveSpec removes another actor during the At-th activation.
type RemoveSpec struct {
	At  int    `yaml:"at"`
	Key string `yaml:"key"`
}

// TriggerSpec lists the actions caused by entering State.
type TriggerSpec struct {
	State   int64        `yaml:"state"`
	Actions []ActionSpec `yaml:"actions"`
}

// ActionSpec is an arithmetic action on an integer state.
type ActionSpec struct {
	Name    string  `yaml:"name,omitempty"`
	Op      string  `yaml:"op"`
	Operand int64   `yaml:"operand"`
	Delay   float64 `yaml:"delay"`
}

// Action operators.
const (
	OpAdd = "add"
	OpSub = "sub"
	OpMul = "mul"
	OpSet = "set"
)

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Events is the expected order for trace_order, written "kind subject"
	// (e.g. "activate goblin"). Intervening events are allowed.
	Events []string `yaml:"events,omitempty"`

	// Kind and Subject select events for trace_count and trace_contains.
	// An empty Subject matches every subject.
	Kind    string `yaml:"kind,omitempty"`
	Subject string `yaml:"subject,omitempty"`

	// Detail is a subset match for trace_contains.
	Detail map[string]string `yaml:"detail,omitempty"`

	// Count is the expected number of matches for trace_count.
	Count int `yaml:"count,omitempty"`

	// Time is the expected clock at the end of the run (final_time).
	Time *float64 `yaml:"time,omitempty"`

	// State is the expected machine state (final_state).
	State *int64 `yaml:"state,omitempty"`

	// Actors is the expected set of registered keys (final_actors).
	Actors []string `yaml:"actors,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalTime     = "final_time"
	AssertFinalState    = "final_state"
	AssertFinalActors   = "final_actors"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !finite(s.StartTime) {
		return fmt.Errorf("start_time must be finite")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}
	if c := s.Cooldown; c != nil {
		if !finite(c.Scale) || c.Scale <= 0 || !finite(c.K) || c.K < 0 {
			return fmt.Errorf("cooldown: scale must be positive and k non-negative, both finite")
		}
	}

	switch s.Kind {
	case KindEntity:
		if err := validateEntity(s); err != nil {
			return err
		}
	case KindReactive:
		if err := validateReactive(s); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("kind is required (entity or reactive)")
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, s.Kind, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateEntity(s *Scenario) error {
	if len(s.Actors) == 0 {
		return fmt.Errorf("actors list is required for an entity scenario")
	}
	if s.InitialState != nil || len(s.Triggers) > 0 {
		return fmt.Errorf("initial_state and triggers are only valid for a reactive scenario")
	}
	seen := make(map[string]bool, len(s.Actors))
	for i, a := range s.Actors {
		if a.Key == "" {
			return fmt.Errorf("actors[%d]: key is required", i)
		}
		if seen[a.Key] {
			return fmt.Errorf("actors[%d]: duplicate key %q", i, a.Key)
		}
		seen[a.Key] = true
		if !validRate(a.Rate) {
			return fmt.Errorf("actors[%d]: rate must be finite and non-negative", i)
		}
		if a.Lifetime < 0 {
			return fmt.Errorf("actors[%d]: lifetime must be non-negative", i)
		}
		for j, r := range a.RateStep {
			if !validRate(r) {
				return fmt.Errorf("actors[%d].rate_step[%d]: rate must be finite and non-negative", i, j)
			}
		}
		for j, sp := range a.Spawn {
			if sp.At < 1 {
				return fmt.Errorf("actors[%d].spawn[%d]: at must be at least 1", i, j)
			}
			if !validRate(sp.Rate) {
				return fmt.Errorf("actors[%d].spawn[%d]: rate must be finite and non-negative", i, j)
			}
			if sp.Lifetime < 0 {
				return fmt.Errorf("actors[%d].spawn[%d]: lifetime must be non-negative", i, j)
			}
		}
		for j, rm := range a.Removes {
			if rm.At < 1 {
				return fmt.Errorf("actors[%d].removes[%d]: at must be at least 1", i, j)
			}
			if rm.Key == "" {
				return fmt.Errorf("actors[%d].removes[%d]: key is required", i, j)
			}
		}
	}
	return nil
}

func validateReactive(s *Scenario) error {
	if s.InitialState == nil {
		return fmt.Errorf("initial_state is required for a reactive scenario")
	}
	if len(s.Actors) > 0 || s.Cooldown != nil {
		return fmt.Errorf("actors and cooldown are only valid for an entity scenario")
	}
	seen := make(map[int64]bool, len(s.Triggers))
	for i, tr := range s.Triggers {
		if seen[tr.State] {
			return fmt.Errorf("triggers[%d]: duplicate state %d", i, tr.State)
		}
		seen[tr.State] = true
		for j, a := range tr.Actions {
			switch a.Op {
			case OpAdd, OpSub, OpMul, OpSet:
			case "":
				return fmt.Errorf("triggers[%d].actions[%d]: op is required", i, j)
			default:
				return fmt.Errorf("triggers[%d].actions[%d]: unknown op %q", i, j, a.Op)
			}
			if !finite(a.Delay) || a.Delay < 0 {
				return fmt.Errorf("triggers[%d].actions[%d]: delay must be finite and non-negative", i, j)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, kind string, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
		if !trace.Kind(a.Kind).Valid() {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Kind)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if !trace.Kind(a.Kind).Valid() {
			return fmt.Errorf("assertions[%d]: unknown event kind %q", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalTime:
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for final_time", index)
		}
	case AssertFinalState:
		if kind != KindReactive {
			return fmt.Errorf("assertions[%d]: final_state requires a reactive scenario", index)
		}
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertFinalActors:
		if kind != KindEntity {
			return fmt.Errorf("assertions[%d]: final_actors requires an entity scenario", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validRate(r float64) bool {
	return finite(r) && r >= 0
}
