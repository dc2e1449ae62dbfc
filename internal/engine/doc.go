// Package engine holds the infrastructure shared by the entity scheduler and
// the reactive state machine.
//
// ARCHITECTURE:
//
// Both schedulers are single-threaded loops over a time-ordered queue. Each
// step pops the nearest-due item, advances the logical Clock to its due time,
// applies the item's effect and admits whatever follow-up items that effect
// produced. This package supplies the pieces that do not depend on what an
// item is:
//
//   - Clock: the logical time (never decreases) and the per-run event sequence
//   - RuntimeError: coded errors with Is… predicates for callers
//   - QuotaEnforcer: an optional bound on the number of steps in one run
//   - Loop: the cancellable "step until empty" driver
//   - Observer: the hook through which schedulers report trace events
//
// CRITICAL PATTERNS:
//
// Logical clock: all ordering comes from due times and insertion sequence,
// never from wall-clock readings. Two runs fed the same inputs produce the
// same trace.
//
// Poisoning: once a scheduler hits an invariant violation or a panic escapes
// a callback, it refuses further work with an ABORTED error. Its queue and
// registry can no longer be trusted to agree.
package engine
