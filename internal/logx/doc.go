// Package logx configures chrona's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Simulation times rendered in their canonical string form
//
// The zero Logger discards everything, so library code can hold one without
// checking whether the caller configured logging.
package logx
