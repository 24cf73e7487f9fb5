// Package codegendebug holds compile-time debug switches for the codegen
// core, grouped here so that enabling tracing for a debugging session never
// requires hunting through the matcher/allocator/shuffler for scattered
// print statements. This is the direct analogue of the original's
// `#if 0 printf(...)` blocks in codegen.c, and is itself grounded on
// wazero's wazevoapi debug-consts convention.
//
// These must stay false by default; flip one locally while debugging, never
// in a committed change.
package codegendebug

// Runtime mirrors of the consts below, so that a CLI --verbose flag can
// toggle tracing without a rebuild. The consts remain the source of truth
// for what ships disabled; Verbose starts equal to MatchLoggingEnabled ||
// AllocLoggingEnabled || ShuffleLoggingEnabled and a caller may set it.
var Verbose = MatchLoggingEnabled || AllocLoggingEnabled || ShuffleLoggingEnabled

const (
	// MatchLoggingEnabled traces rule-table lookups: candidate rule ids
	// considered and the reason each was rejected.
	MatchLoggingEnabled = false
	// RewriteLoggingEnabled traces rewrite-rule application: old node,
	// synthesized replacement, and patched consumer slots.
	RewriteLoggingEnabled = false
	// AllocLoggingEnabled traces register allocator policy selection: which
	// of the four policies fired for a given producer/consumer pair, and
	// the resulting masks.
	AllocLoggingEnabled = false
	// ShuffleLoggingEnabled traces the move shuffler's emitted sequence.
	ShuffleLoggingEnabled = false
)
