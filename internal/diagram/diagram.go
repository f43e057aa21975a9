package diagram

import (
	"sort"

	"github.com/sidlab/sid/internal/expr"
)

// Node is an operator instance in a diagram.
type Node struct {
	ID string `json:"id"`

	// Op is the operator tag (P, S+, S-, O, C, T).
	Op expr.Operator `json:"op"`

	// Inputs are the structural argument node IDs, in argument order.
	Inputs []string `json:"inputs,omitempty"`

	// DOFRefs are literal atom names attached directly to this node,
	// used when an operator's argument is an atom rather than a
	// sub-expression.
	DOFRefs []string `json:"dof_refs,omitempty"`

	// AtomArgs records atom arguments absorbed by operators that do not
	// carry them as DOF refs. Tracking only; semantics use input edges.
	AtomArgs []string `json:"atom_args,omitempty"`

	// Irreversible is true for O (collapse) nodes.
	Irreversible bool `json:"irreversible,omitempty"`

	// Meta holds auxiliary tags, e.g. rewrite provenance.
	Meta map[string]string `json:"meta,omitempty"`
}

// Edge is an argument link between two nodes. Port defines deterministic
// argument ordering into the target node.
type Edge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
	Port  int    `json:"port"`
}

// DefaultEdgeLabel is the label carried by argument edges.
const DefaultEdgeLabel = "arg"

// Diagram is a mutable directed graph of nodes and edges with cached
// adjacency lists. The caches are derived, owned data rebuilt lazily
// whenever edges change; they are never exposed stale.
type Diagram struct {
	ID            string `json:"id"`
	CompartmentID string `json:"compartment_id,omitempty"`
	Nodes         []Node `json:"nodes"`
	Edges         []Edge `json:"edges"`

	adjacency        map[string][]string
	reverseAdjacency map[string][]string
	adjacencyDirty   bool
}

// New creates an empty diagram.
func New(id string) *Diagram {
	return &Diagram{ID: id, adjacencyDirty: true}
}

// AddNode appends a node. Node IDs are expected to be unique within the
// diagram; Validate checks referential integrity after bulk mutations.
func (d *Diagram) AddNode(n Node) {
	d.Nodes = append(d.Nodes, n)
}

// AddEdge appends an edge and marks the adjacency caches dirty.
func (d *Diagram) AddEdge(e Edge) {
	d.Edges = append(d.Edges, e)
	d.adjacencyDirty = true
}

// MarkDirty invalidates the adjacency caches. Call after mutating Edges
// directly.
func (d *Diagram) MarkDirty() {
	d.adjacencyDirty = true
}

// FindNode returns the node with the given ID, or nil.
func (d *Diagram) FindNode(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// FindEdge returns the edge with the given ID, or nil.
func (d *Diagram) FindEdge(id string) *Edge {
	for i := range d.Edges {
		if d.Edges[i].ID == id {
			return &d.Edges[i]
		}
	}
	return nil
}

// Inputs returns the IDs of nodes feeding into nodeID, sorted by edge
// port. The ordering is load-bearing for operator semantics: C's two
// arguments must never be silently swapped.
func (d *Diagram) Inputs(nodeID string) []string {
	type portEdge struct {
		port int
		from string
	}
	var in []portEdge
	for i := range d.Edges {
		if d.Edges[i].To == nodeID {
			in = append(in, portEdge{port: d.Edges[i].Port, from: d.Edges[i].From})
		}
	}
	sort.SliceStable(in, func(a, b int) bool { return in[a].port < in[b].port })

	result := make([]string, len(in))
	for i, pe := range in {
		result[i] = pe.from
	}
	return result
}

// Outputs returns the IDs of nodes that nodeID feeds into.
func (d *Diagram) Outputs(nodeID string) []string {
	var result []string
	for i := range d.Edges {
		if d.Edges[i].From == nodeID {
			result = append(result, d.Edges[i].To)
		}
	}
	return result
}

// forward returns the forward adjacency list, rebuilding caches if dirty.
// This is the only read path to adjacency data.
func (d *Diagram) forward() map[string][]string {
	d.rebuildAdjacency()
	return d.adjacency
}

func (d *Diagram) rebuildAdjacency() {
	if !d.adjacencyDirty && d.adjacency != nil {
		return
	}
	d.adjacency = make(map[string][]string, len(d.Nodes))
	d.reverseAdjacency = make(map[string][]string, len(d.Nodes))
	for i := range d.Edges {
		e := &d.Edges[i]
		d.adjacency[e.From] = append(d.adjacency[e.From], e.To)
		d.reverseAdjacency[e.To] = append(d.reverseAdjacency[e.To], e.From)
	}
	d.adjacencyDirty = false
}

// HasCycle reports whether the diagram contains a directed cycle.
//
// The walk is an iterative DFS over an explicit stack of (node, backtrack)
// frames; recursion is deliberately avoided so large graphs cannot exhaust
// the call stack. Every unvisited node seeds a walk so disconnected
// components are covered. O(V+E).
func (d *Diagram) HasCycle() bool {
	adj := d.forward()

	visited := make(map[string]bool, len(d.Nodes))
	recStack := make(map[string]bool)

	type frame struct {
		id        string
		backtrack bool
	}

	for i := range d.Nodes {
		start := d.Nodes[i].ID
		if visited[start] {
			continue
		}

		stack := []frame{{id: start}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if f.backtrack {
				delete(recStack, f.id)
				continue
			}
			if recStack[f.id] {
				return true
			}
			if visited[f.id] {
				continue
			}

			visited[f.id] = true
			recStack[f.id] = true
			// Backtrack marker pops the rec-stack entry once all
			// descendants are explored.
			stack = append(stack, frame{id: f.id, backtrack: true})

			for _, next := range adj[f.id] {
				if recStack[next] {
					return true
				}
				if !visited[next] {
					stack = append(stack, frame{id: next})
				}
			}
		}
	}
	return false
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (d *Diagram) Clone() *Diagram {
	out := &Diagram{
		ID:             d.ID,
		CompartmentID:  d.CompartmentID,
		Nodes:          make([]Node, len(d.Nodes)),
		Edges:          make([]Edge, len(d.Edges)),
		adjacencyDirty: true,
	}
	for i := range d.Nodes {
		out.Nodes[i] = d.Nodes[i].clone()
	}
	copy(out.Edges, d.Edges)
	return out
}

func (n Node) clone() Node {
	out := n
	out.Inputs = append([]string(nil), n.Inputs...)
	out.DOFRefs = append([]string(nil), n.DOFRefs...)
	out.AtomArgs = append([]string(nil), n.AtomArgs...)
	if n.Meta != nil {
		out.Meta = make(map[string]string, len(n.Meta))
		for k, v := range n.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// Equal reports structural equality including node and edge IDs and their
// order. Used to verify that a failed rewrite leaves a diagram untouched.
func (d *Diagram) Equal(other *Diagram) bool {
	if d.ID != other.ID || d.CompartmentID != other.CompartmentID {
		return false
	}
	if len(d.Nodes) != len(other.Nodes) || len(d.Edges) != len(other.Edges) {
		return false
	}
	for i := range d.Nodes {
		if !d.Nodes[i].equal(other.Nodes[i]) {
			return false
		}
	}
	for i := range d.Edges {
		if d.Edges[i] != other.Edges[i] {
			return false
		}
	}
	return true
}

func (n Node) equal(other Node) bool {
	if n.ID != other.ID || n.Op != other.Op || n.Irreversible != other.Irreversible {
		return false
	}
	if !stringsEqual(n.Inputs, other.Inputs) ||
		!stringsEqual(n.DOFRefs, other.DOFRefs) ||
		!stringsEqual(n.AtomArgs, other.AtomArgs) {
		return false
	}
	if len(n.Meta) != len(other.Meta) {
		return false
	}
	for k, v := range n.Meta {
		if other.Meta[k] != v {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HasDOFRef reports whether name appears in the node's DOF refs or
// recorded atom arguments.
func (n *Node) HasDOFRef(name string) bool {
	for _, dof := range n.DOFRefs {
		if dof == name {
			return true
		}
	}
	for _, arg := range n.AtomArgs {
		if arg == name {
			return true
		}
	}
	return false
}
