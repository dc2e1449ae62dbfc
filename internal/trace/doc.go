// Package trace records what a scheduler did, one Event per observable step.
//
// Events carry a per-run sequence number from the engine clock, the logical
// time at which they happened, a Kind and the subject they concern (an actor
// key or an action name). Two runs started from identical seeds produce
// identical event lists, and therefore identical hashes.
//
// Hashing uses canonical JSON (sorted keys, NFC strings, no HTML escaping)
// with domain separation, so a trace can be persisted, reloaded and verified
// byte-for-byte on replay.
package trace
