// Package registry stores actors by key and enforces the checkout discipline
// the entity scheduler relies on.
//
// A key is in exactly one of three states:
//
//   - absent: unknown to the registry
//   - resident: stored and visible through Lookup/Remove
//   - checked out: temporarily held by the scheduler while the actor runs
//
// A checked-out key is invisible to Lookup and Remove, and Insert refuses it,
// so an actor can never observe, replace or re-enter itself through the
// registry during its own activation.
//
// Thread-safety: Registry is NOT safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"slices"
)

// Key identifies an actor for its whole lifetime.
type Key string

var (
	// ErrDuplicateKey is returned by Insert when the key is resident or checked out.
	ErrDuplicateKey = errors.New("registry: key already in use")

	// ErrNotFound is returned by CheckOut when the key is not resident.
	ErrNotFound = errors.New("registry: key not found")

	// ErrNotCheckedOut is returned by CheckIn for a key that was never checked out.
	ErrNotCheckedOut = errors.New("registry: key not checked out")
)

// maxFreshKeyAttempts bounds NextFreshKey against a generator that keeps
// returning keys that are already taken.
const maxFreshKeyAttempts = 1 << 16

// Registry maps keys to values of type V.
type Registry[V any] struct {
	resident   map[Key]V
	checkedOut map[Key]struct{}
	keys       KeyGenerator
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	keys KeyGenerator
}

// WithKeyGenerator sets the generator used by NextFreshKey.
// Default: NewSequentialGenerator("actor-").
func WithKeyGenerator(g KeyGenerator) Option {
	return func(o *options) {
		o.keys = g
	}
}

// New creates an empty registry.
func New[V any](opts ...Option) *Registry[V] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.keys == nil {
		o.keys = NewSequentialGenerator("actor-")
	}
	return &Registry[V]{
		resident:   make(map[Key]V),
		checkedOut: make(map[Key]struct{}),
		keys:       o.keys,
	}
}

// Lookup returns the resident value for key.
func (r *Registry[V]) Lookup(key Key) (V, bool) {
	v, ok := r.resident[key]
	return v, ok
}

// InUse reports whether key is resident or checked out.
func (r *Registry[V]) InUse(key Key) bool {
	if _, ok := r.resident[key]; ok {
		return true
	}
	_, ok := r.checkedOut[key]
	return ok
}

// IsCheckedOut reports whether key is currently held by a caller.
func (r *Registry[V]) IsCheckedOut(key Key) bool {
	_, ok := r.checkedOut[key]
	return ok
}

// Insert stores v under key. It fails with ErrDuplicateKey if the key is in use.
func (r *Registry[V]) Insert(key Key, v V) error {
	if r.InUse(key) {
		return fmt.Errorf("insert %q: %w", key, ErrDuplicateKey)
	}
	r.resident[key] = v
	return nil
}

// Remove deletes and returns the resident value for key.
// Checked-out keys are not removable.
func (r *Registry[V]) Remove(key Key) (V, bool) {
	v, ok := r.resident[key]
	if ok {
		delete(r.resident, key)
	}
	return v, ok
}

// CheckOut moves a resident value into the checked-out state and returns it.
func (r *Registry[V]) CheckOut(key Key) (V, error) {
	v, ok := r.resident[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("check out %q: %w", key, ErrNotFound)
	}
	delete(r.resident, key)
	r.checkedOut[key] = struct{}{}
	return v, nil
}

// CheckIn returns a checked-out value to the resident state.
func (r *Registry[V]) CheckIn(key Key, v V) error {
	if _, ok := r.checkedOut[key]; !ok {
		return fmt.Errorf("check in %q: %w", key, ErrNotCheckedOut)
	}
	delete(r.checkedOut, key)
	r.resident[key] = v
	return nil
}

// Release forgets a checked-out key without returning its value, making the
// key absent. It reports whether the key was checked out.
func (r *Registry[V]) Release(key Key) bool {
	if _, ok := r.checkedOut[key]; !ok {
		return false
	}
	delete(r.checkedOut, key)
	return true
}

// NextFreshKey returns a key that is neither resident nor checked out.
//
// Panics if the generator cannot produce an unused key within a bounded
// number of attempts; that only happens with a misconfigured generator.
func (r *Registry[V]) NextFreshKey() Key {
	for i := 0; i < maxFreshKeyAttempts; i++ {
		k := r.keys.Generate()
		if !r.InUse(k) {
			return k
		}
	}
	panic("registry: key generator exhausted without producing a fresh key")
}

// Len returns the number of resident values.
func (r *Registry[V]) Len() int {
	return len(r.resident)
}

// Keys returns the resident keys in ascending order.
func (r *Registry[V]) Keys() []Key {
	keys := make([]Key, 0, len(r.resident))
	for k := range r.resident {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
