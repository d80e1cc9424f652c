// Package engine wires the signup form's reactive core and runs it.
//
// ARCHITECTURE:
//
// Single delivery thread:
// Every signal of an Engine is created, emitted, and subscribed on one
// logical thread, the Loop. Collaborators (username lookup, signup call,
// acknowledgement prompt) run wherever they like and post their results
// back onto the Loop. This gives:
//   - no locks around engine state
//   - a total order of emissions
//   - reproducible traces when time is stepped with Drain
//
// Signal graph:
//
//	username ─┬─ Join ── validated_username ──────────┐
//	password ─┼─ Join ── validated_password ──────────┼─ Gate ── signup_enabled
//	repeated ─┴─ Join ── validated_password_repeated ─┤
//	                                                  │
//	submit ── Coordinator ── signed_in                │
//	              └── Tracker ── signing_in ──────────┘
//
// CRITICAL PATTERNS:
//
// Logical clock:
// Emissions are stamped with a monotonic seq from Clock.Next(), never with
// wall time.
//
// Failures are values:
// Nothing that goes wrong in a collaborator escapes the engine as an error.
// A failed username lookup is an unavailable result, a failed signup is
// signed_in=false, a failed prompt is signed_in=false.
//
// No timeout:
// A collaborator that never answers keeps its field validating, or keeps
// signing_in true, indefinitely.
package engine
