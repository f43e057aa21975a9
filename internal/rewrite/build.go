package rewrite

import (
	"fmt"
	"strconv"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/expr"
)

// idAllocator hands out node/edge IDs that do not collide with anything
// already in the diagram. Rewrite-created IDs are prefixed with the rule ID
// so provenance is visible in the graph.
type idAllocator struct {
	existing map[string]bool
	next     map[string]int
}

func newIDAllocator(d *diagram.Diagram) *idAllocator {
	existing := make(map[string]bool, len(d.Nodes)+len(d.Edges))
	for i := range d.Nodes {
		existing[d.Nodes[i].ID] = true
	}
	for i := range d.Edges {
		existing[d.Edges[i].ID] = true
	}
	return &idAllocator{existing: existing, next: map[string]int{}}
}

func (a *idAllocator) alloc(prefix string) string {
	n := a.next[prefix]
	for {
		n++
		candidate := prefix + strconv.Itoa(n)
		if !a.existing[candidate] {
			a.existing[candidate] = true
			a.next[prefix] = n
			return candidate
		}
	}
}

// buildReplacement constructs the replacement expression inside d and
// returns the ID of the subgraph root.
//
// A bound variable resolves to its existing node, creating nothing; an
// unbound variable is a hard error. Literal atoms synthesize P nodes. O
// nodes are marked irreversible. Edges carry the argument position as
// their port.
func buildReplacement(e expr.Expr, d *diagram.Diagram, binds Bindings, ids *idAllocator, ruleID string) (string, error) {
	if e.IsAtom() {
		if e.IsVariable() {
			nodeID, ok := binds[e.VarName()]
			if !ok {
				return "", &UnboundVariableError{Variable: e.Atom, RuleID: ruleID}
			}
			return nodeID, nil
		}
		nodeID := ids.alloc(ruleID + "_n")
		d.AddNode(diagram.Node{
			ID:      nodeID,
			Op:      expr.OpProject,
			DOFRefs: []string{e.Atom},
		})
		return nodeID, nil
	}

	inputs := make([]string, len(e.Args))
	for i := range e.Args {
		childID, err := buildReplacement(e.Args[i], d, binds, ids, ruleID)
		if err != nil {
			return "", err
		}
		inputs[i] = childID
	}

	node := diagram.Node{
		ID:           ids.alloc(ruleID + "_n"),
		Op:           e.Op,
		Inputs:       inputs,
		Irreversible: e.Op.Irreversible(),
	}
	if e.Op == expr.OpProject && len(e.Args) == 1 && e.Args[0].IsAtom() && !e.Args[0].IsVariable() {
		node.DOFRefs = []string{e.Args[0].Atom}
	}
	d.AddNode(node)

	for i, in := range inputs {
		d.AddEdge(diagram.Edge{
			ID:    ids.alloc(ruleID + "_e"),
			From:  in,
			To:    node.ID,
			Label: diagram.DefaultEdgeLabel,
			Port:  i,
		})
	}
	return node.ID, nil
}

// UnboundVariableError reports a replacement variable with no binding from
// the matched pattern.
type UnboundVariableError struct {
	Variable string
	RuleID   string
}

// Error implements the error interface.
func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable %s in rule %s", e.Variable, e.RuleID)
}
