package entity

import (
	"github.com/roach88/chrona/internal/registry"
	"github.com/roach88/chrona/internal/simtime"
	"github.com/roach88/chrona/internal/trace"
)

// Key identifies an actor for its whole lifetime.
type Key = registry.Key

// Actor is anything the scheduler can activate.
type Actor interface {
	// Rate is read at admission and again after every activation that
	// re-admits the actor. Higher rates mean shorter cooldowns.
	Rate() float64

	// Activate runs one activation. Returning false retires the actor.
	Activate(h *Handle) bool
}

// Handle is the view of the scheduler an actor gets during Activate.
// It is only valid until Activate returns; using it afterwards panics.
type Handle struct {
	s    *Scheduler
	self registry.Key
	done bool
}

func (h *Handle) check() {
	if h.done {
		panic("entity: handle used after activation returned")
	}
}

// Self returns the key of the actor being activated.
func (h *Handle) Self() registry.Key {
	return h.self
}

// Now returns the current logical time.
func (h *Handle) Now() simtime.Time {
	return h.s.clock.Now()
}

// Lookup returns another actor. The actor being activated is checked out and
// therefore not visible.
func (h *Handle) Lookup(key registry.Key) (Actor, bool) {
	h.check()
	return h.s.reg.Lookup(key)
}

// Remove unregisters another actor and cancels its pending activation.
// Reports false if the key is absent (or is the activating actor itself).
func (h *Handle) Remove(key registry.Key) (Actor, bool) {
	h.check()
	a, ok := h.s.reg.Remove(key)
	if !ok {
		return nil, false
	}
	if it, pending := h.s.pending[key]; pending {
		h.s.queue.Remove(it)
		delete(h.s.pending, key)
	}
	h.s.emit.Emit(trace.KindRemove, string(key), "by", string(h.self))
	h.s.logger.Debug("actor removed", logStr("key", key), logStr("by", h.self))
	return a, true
}

// Insert registers a new actor and schedules it at now + cooldown(rate).
// Fails with DUPLICATE_KEY if key is in use, including the activating
// actor's own key, and with INVALID_RATE for a negative or non-finite rate.
func (h *Handle) Insert(key registry.Key, a Actor) error {
	h.check()
	return h.s.admit(key, a, h.s.clock.Now(), h.self)
}

// NextFreshKey returns a key not currently in use.
func (h *Handle) NextFreshKey() registry.Key {
	h.check()
	return h.s.reg.NextFreshKey()
}
