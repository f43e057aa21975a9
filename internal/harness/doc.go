// Package harness executes YAML-defined engine scenarios.
//
// A scenario is a sized engine plus an ordered list of operations
// (step, collapse, rewrite, set_expr, run) with optional expectations
// on the final masses. Every operation's resulting masses land in the
// trace, and conservation is asserted after each one, so a scenario
// that passes demonstrates the conservation invariant across its whole
// operation sequence.
//
// Traces can additionally be pinned with golden files; see
// RunWithGolden.
package harness
