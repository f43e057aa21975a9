package diagram

import "fmt"

// StructuralErrorCode categorizes structural failures.
type StructuralErrorCode string

const (
	// ErrCodeDanglingEdge indicates an edge endpoint references a
	// non-existent node.
	ErrCodeDanglingEdge StructuralErrorCode = "DANGLING_EDGE"

	// ErrCodeDanglingInput indicates a node input references a
	// non-existent node.
	ErrCodeDanglingInput StructuralErrorCode = "DANGLING_INPUT"

	// ErrCodeDuplicateID indicates a repeated node or edge ID.
	ErrCodeDuplicateID StructuralErrorCode = "DUPLICATE_ID"

	// ErrCodeCycle indicates the graph contains a directed cycle.
	ErrCodeCycle StructuralErrorCode = "CYCLE"

	// ErrCodeMalformed indicates wire input that does not satisfy the
	// diagram shape.
	ErrCodeMalformed StructuralErrorCode = "MALFORMED"
)

// StructuralError reports a diagram integrity violation. The attempted
// mutation is discarded in full; prior state is preserved.
type StructuralError struct {
	Code    StructuralErrorCode
	Message string

	// NodeID and EdgeID identify the offending element when known.
	NodeID string
	EdgeID string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	switch {
	case e.EdgeID != "":
		return fmt.Sprintf("%s: %s (edge=%s)", e.Code, e.Message, e.EdgeID)
	case e.NodeID != "":
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Validate checks referential integrity: every edge endpoint and every
// node input must reference an existing node, and IDs must be unique.
// Run after any external structural mutation (wire load, rewrite commit).
func (d *Diagram) Validate() error {
	nodeIDs := make(map[string]bool, len(d.Nodes))
	for i := range d.Nodes {
		id := d.Nodes[i].ID
		if nodeIDs[id] {
			return &StructuralError{Code: ErrCodeDuplicateID, Message: "duplicate node id", NodeID: id}
		}
		nodeIDs[id] = true
	}

	edgeIDs := make(map[string]bool, len(d.Edges))
	for i := range d.Edges {
		e := &d.Edges[i]
		if edgeIDs[e.ID] {
			return &StructuralError{Code: ErrCodeDuplicateID, Message: "duplicate edge id", EdgeID: e.ID}
		}
		edgeIDs[e.ID] = true
		if !nodeIDs[e.From] {
			return &StructuralError{Code: ErrCodeDanglingEdge, Message: "edge references non-existent 'from' node " + e.From, EdgeID: e.ID}
		}
		if !nodeIDs[e.To] {
			return &StructuralError{Code: ErrCodeDanglingEdge, Message: "edge references non-existent 'to' node " + e.To, EdgeID: e.ID}
		}
	}

	for i := range d.Nodes {
		n := &d.Nodes[i]
		for _, in := range n.Inputs {
			if !nodeIDs[in] {
				return &StructuralError{Code: ErrCodeDanglingInput, Message: "node references non-existent input " + in, NodeID: n.ID}
			}
		}
	}
	return nil
}
