package rewrite

import (
	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/expr"
)

// Bindings maps pattern variable names (without the "$" sigil) to diagram
// node IDs.
type Bindings map[string]string

// match captures one successful anchoring of a pattern in a diagram.
type match struct {
	rootID string
	binds  Bindings

	// matched holds every node consumed by the pattern; bound holds the
	// subset referenced through variables. Bound nodes are reused by the
	// replacement and must not be deleted.
	matched map[string]bool
	bound   map[string]bool
}

// findMatch scans all diagram nodes as candidate roots and returns the
// first full match, or nil.
func findMatch(d *diagram.Diagram, pattern expr.Expr) *match {
	for i := range d.Nodes {
		m := &match{
			binds:   Bindings{},
			matched: map[string]bool{},
			bound:   map[string]bool{},
		}
		if matchExpr(pattern, d.Nodes[i].ID, d, m) {
			m.rootID = d.Nodes[i].ID
			return m
		}
	}
	return nil
}

// matchExpr recursively matches a pattern expression against the node with
// the given ID.
//
// Atom patterns: a variable binds to the candidate node ID (a conflicting
// prior binding fails the match); a literal matches if the name appears in
// the node's DOF refs or recorded atom args.
//
// Op patterns: the operator tags must be equal, then every pattern argument
// must match the corresponding candidate input in order. Candidate inputs
// beyond the pattern's arity are permitted (partial-prefix match, as the
// engine has always behaved). A node without inputs only matches an
// argument-carrying pattern in the P-with-atom form, where the variable or
// literal resolves against the node itself.
func matchExpr(pattern expr.Expr, nodeID string, d *diagram.Diagram, m *match) bool {
	node := d.FindNode(nodeID)
	if node == nil {
		return false
	}

	if pattern.IsAtom() {
		if pattern.IsVariable() {
			return m.bindVar(pattern.VarName(), nodeID)
		}
		return node.HasDOFRef(pattern.Atom)
	}

	if node.Op != pattern.Op {
		return false
	}
	m.matched[nodeID] = true

	if len(node.Inputs) > 0 {
		if len(node.Inputs) < len(pattern.Args) {
			return false
		}
		for i := range pattern.Args {
			if !matchExpr(pattern.Args[i], node.Inputs[i], d, m) {
				return false
			}
		}
		return true
	}

	// No structural inputs: the only argument-carrying pattern that can
	// still match is P over a single atom, resolved against this node.
	if len(pattern.Args) == 0 {
		return true
	}
	if pattern.Op != expr.OpProject {
		return false
	}
	arg := pattern.Args[0]
	if !arg.IsAtom() {
		return false
	}
	if arg.IsVariable() {
		return m.bindVar(arg.VarName(), nodeID)
	}
	return node.HasDOFRef(arg.Atom)
}

// bindVar records a variable binding, failing on conflict with an earlier
// binding of the same variable to a different node.
func (m *match) bindVar(name, nodeID string) bool {
	if prev, ok := m.binds[name]; ok && prev != nodeID {
		return false
	}
	m.binds[name] = nodeID
	m.bound[nodeID] = true
	return true
}
