// Package simtime defines the logical time value used by the schedulers.
//
// Time is a float64 quantity with no wall-clock meaning. It is totally
// ordered and additive; the only values a scheduler accepts are finite ones.
//
// Canonical renders a Time as the shortest decimal string that parses back to
// the identical float64. Traces and hashes always use this form so that two
// runs with the same inputs produce byte-identical output.
package simtime
