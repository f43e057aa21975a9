package rewrite

import (
	"fmt"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/expr"
)

// Result reports the outcome of a rewrite attempt. Applied is false both
// for "pattern not found" (Message explains; no error is returned) and for
// structural failures (the caller also receives the error).
type Result struct {
	Applied bool
	Diagram *diagram.Diagram
	Message string
}

// Apply parses the pattern and replacement, finds the first match in d,
// and returns a new diagram with the match replaced. The input diagram is
// never mutated: on any failure it is returned unchanged in the Result.
//
// Commit order: build the replacement into a copy, compute the removal set
// (matched minus variable-bound nodes), redirect incoming edges of removed
// nodes to the new root, drop edges touching removed nodes, delete the
// nodes, then validate and cycle-check. An introduced cycle aborts the
// whole rewrite.
func Apply(d *diagram.Diagram, patternText, replacementText, ruleID string) (Result, error) {
	pattern, err := expr.Parse(patternText)
	if err != nil {
		return Result{Diagram: d, Message: "invalid pattern: " + err.Error()}, fmt.Errorf("rule %s pattern: %w", ruleID, err)
	}
	replacement, err := expr.Parse(replacementText)
	if err != nil {
		return Result{Diagram: d, Message: "invalid replacement: " + err.Error()}, fmt.Errorf("rule %s replacement: %w", ruleID, err)
	}

	m := findMatch(d, pattern)
	if m == nil {
		return Result{Diagram: d, Message: "rewrite " + ruleID + " not applicable"}, nil
	}

	next := d.Clone()
	ids := newIDAllocator(next)
	newRoot, err := buildReplacement(replacement, next, m.binds, ids, ruleID)
	if err != nil {
		return Result{Diagram: d, Message: err.Error()}, err
	}

	// Bound nodes are reused by the replacement; only the rest of the
	// match is deleted.
	remove := make(map[string]bool, len(m.matched))
	for id := range m.matched {
		if !m.bound[id] {
			remove[id] = true
		}
	}

	edges := make([]diagram.Edge, 0, len(next.Edges))
	for _, e := range next.Edges {
		switch {
		case remove[e.To] && !remove[e.From]:
			e.To = newRoot
			edges = append(edges, e)
		case remove[e.To] || remove[e.From]:
			// Internal to the removed subgraph; discard.
		default:
			edges = append(edges, e)
		}
	}
	nodes := make([]diagram.Node, 0, len(next.Nodes))
	for _, n := range next.Nodes {
		if remove[n.ID] {
			continue
		}
		// Input lists must stay referentially valid: entries naming a
		// removed node now name the replacement root, mirroring the
		// edge redirect above.
		for i, in := range n.Inputs {
			if remove[in] {
				n.Inputs[i] = newRoot
			}
		}
		nodes = append(nodes, n)
	}
	next.Nodes = nodes
	next.Edges = edges
	next.MarkDirty()

	if err := next.Validate(); err != nil {
		return Result{Diagram: d, Message: "rewrite " + ruleID + " produced invalid diagram: " + err.Error()}, err
	}
	if next.HasCycle() {
		err := &diagram.StructuralError{
			Code:    diagram.ErrCodeCycle,
			Message: "rewrite " + ruleID + " would introduce cycle",
		}
		return Result{Diagram: d, Message: err.Message}, err
	}

	return Result{Applied: true, Diagram: next, Message: "rewrite " + ruleID + " applied"}, nil
}

// Applicable reports whether the pattern matches anywhere in the diagram.
// Unparseable patterns are simply not applicable.
func Applicable(d *diagram.Diagram, patternText string) bool {
	pattern, err := expr.Parse(patternText)
	if err != nil {
		return false
	}
	return findMatch(d, pattern) != nil
}
