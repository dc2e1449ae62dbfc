// Package harness runs scheduler scenarios described in YAML and checks their
// traces.
//
// # Scenario Format
//
// An entity scenario admits scripted actors and steps the entity scheduler:
//
//	name: skirmish
//	kind: entity
//	max_steps: 100
//	actors:
//	  - key: goblin
//	    rate: 100        # cooldown 50 on the default curve
//	    lifetime: 3      # retire after three activations
//	    spawn:
//	      - { at: 1, key: whelp, rate: 300, lifetime: 1 }
//	    removes:
//	      - { at: 2, key: troll }
//	assertions:
//	  - type: trace_order
//	    events: ["activate goblin", "spawn whelp", "retire goblin"]
//
// A reactive scenario drives an integer state through a trigger table:
//
//	name: counter
//	kind: reactive
//	initial_state: 3
//	triggers:
//	  - state: 3
//	    actions:
//	      - { name: plus4, op: add, operand: 4, delay: 3 }
//	assertions:
//	  - type: final_state
//	    state: 7
//
// # Assertion Types
//
//   - trace_contains: an event of kind (and subject) with matching details exists
//   - trace_order: the listed "kind subject" events occur in order
//   - trace_count: exactly count events match kind (and subject)
//   - final_time: the clock when the run stopped
//   - final_state: the machine state (reactive)
//   - final_actors: the registered keys (entity)
//
// # Golden Files
//
// RunWithGolden compares a run's snapshot (a summary line followed by one
// canonical JSON event per line) against testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
//
// # Schema Validation
//
// ValidateFile checks a scenario against an embedded CUE schema before the
// structural checks LoadScenario performs.
package harness
