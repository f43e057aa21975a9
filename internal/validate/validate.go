// Package validate inspects diagrams and reports categorized findings.
//
// Unlike Diagram.Validate, which stops at the first violation so
// mutation paths can fail fast, this validator walks the whole diagram
// and collects everything wrong with it, for diagnostics and CLI use.
package validate

import (
	"fmt"

	"github.com/sidlab/sid/internal/diagram"
)

// Category classifies a finding.
type Category string

const (
	// CategoryDuplicateID flags a node or edge id used twice.
	CategoryDuplicateID Category = "duplicate_id"
	// CategoryDanglingEdge flags an edge endpoint naming no node.
	CategoryDanglingEdge Category = "dangling_edge"
	// CategoryDanglingInput flags a node input naming no node.
	CategoryDanglingInput Category = "dangling_input"
	// CategoryCycle flags a cyclic diagram.
	CategoryCycle Category = "cycle"
	// CategoryIsolatedNode flags a node with no edges and no DOF refs.
	CategoryIsolatedNode Category = "isolated_node"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation result.
type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeID   string   `json:"edge_id,omitempty"`
}

// Check walks the diagram and returns every finding. An empty slice
// means the diagram is well-formed and acyclic.
func Check(d *diagram.Diagram) []Finding {
	var findings []Finding

	nodeIDs := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if nodeIDs[n.ID] {
			findings = append(findings, Finding{
				Category: CategoryDuplicateID,
				Severity: SeverityError,
				Message:  fmt.Sprintf("duplicate node id %q", n.ID),
				NodeID:   n.ID,
			})
		}
		nodeIDs[n.ID] = true
	}

	edgeIDs := make(map[string]bool, len(d.Edges))
	touched := make(map[string]bool)
	for _, e := range d.Edges {
		if edgeIDs[e.ID] {
			findings = append(findings, Finding{
				Category: CategoryDuplicateID,
				Severity: SeverityError,
				Message:  fmt.Sprintf("duplicate edge id %q", e.ID),
				EdgeID:   e.ID,
			})
		}
		edgeIDs[e.ID] = true

		for _, end := range []string{e.From, e.To} {
			if !nodeIDs[end] {
				findings = append(findings, Finding{
					Category: CategoryDanglingEdge,
					Severity: SeverityError,
					Message:  fmt.Sprintf("edge %q references missing node %q", e.ID, end),
					EdgeID:   e.ID,
					NodeID:   end,
				})
			}
		}
		touched[e.From] = true
		touched[e.To] = true
	}

	for _, n := range d.Nodes {
		for _, in := range n.Inputs {
			if !nodeIDs[in] {
				findings = append(findings, Finding{
					Category: CategoryDanglingInput,
					Severity: SeverityError,
					Message:  fmt.Sprintf("node %q input references missing node %q", n.ID, in),
					NodeID:   n.ID,
				})
			}
		}
		if !touched[n.ID] && len(n.Inputs) == 0 && len(n.DOFRefs) == 0 && len(n.AtomArgs) == 0 {
			findings = append(findings, Finding{
				Category: CategoryIsolatedNode,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("node %q has no edges and no DOF refs", n.ID),
				NodeID:   n.ID,
			})
		}
	}

	// Cycle detection assumes referential integrity; skip it when the
	// graph is already structurally broken.
	if !hasErrors(findings) && d.HasCycle() {
		findings = append(findings, Finding{
			Category: CategoryCycle,
			Severity: SeverityError,
			Message:  "diagram contains a cycle",
		})
	}

	return findings
}

// Errors filters findings down to the error-severity ones.
func Errors(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

func hasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
