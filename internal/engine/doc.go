// Package engine implements the SID ternary engine.
//
// The engine is the top-level orchestrator: it owns exactly one diagram,
// one mixer, and three semantic processors (roles I, N, U), and exposes
// the step/collapse/rewrite operations external callers drive.
//
// ARCHITECTURE:
//
// Single-Owner Synchronous Core:
// Every public operation runs to completion before returning. Nothing
// suspends, blocks on I/O, or spawns work, so there is no cancellation
// concept: an in-progress rewrite either commits or is fully rolled back
// before the call returns, with no observable intermediate state.
//
// Operation Flow:
//  1. Structural changes go through the parser -> builder -> rewrite
//     pipeline and swap the diagram wholesale on success.
//  2. Numeric changes go through the mixer -> processor pipeline; the
//     mixer borrows the three processors for the duration of one step
//     and never outlives them.
//  3. Each committed operation is stamped with a monotonic seq from
//     Clock.Next() so persisted run logs replay in a deterministic
//     order.
//
// Instances share nothing. Callers wanting concurrent engines run one
// engine per session with no cross-engine synchronization; serializing
// calls on a single instance is the embedding layer's job.
package engine
