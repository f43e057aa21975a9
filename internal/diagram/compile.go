package diagram

import (
	"strconv"

	"github.com/sidlab/sid/internal/expr"
)

// buildContext assigns deterministic IDs during one compilation.
type buildContext struct {
	nodes   []Node
	edges   []Edge
	counter int
}

func (c *buildContext) nextID(prefix string) string {
	c.counter++
	return prefix + strconv.Itoa(c.counter)
}

// buildInfo is the result of compiling one sub-expression: either a created
// node, or atoms to be absorbed by the parent operator.
type buildInfo struct {
	nodeID string
	atoms  []string
}

// structuralInput pairs a child node with its positional index among all
// arguments of the parent, so argument order survives graph flattening even
// though atom children are dropped from Inputs.
type structuralInput struct {
	nodeID string
	port   int
}

// Compile converts an AST expression into a diagram.
//
// Atoms contribute no node by themselves: they are absorbed by their parent
// operator as DOF refs (P, or S+/S- with only atom children) or recorded as
// atom args otherwise. Each operator creates exactly one node; one "arg"
// edge per structural input carries the child's argument position as its
// port. A bare-atom expression synthesizes a single P node so a whole-
// diagram build never yields an empty graph.
//
// The result is validated and guaranteed acyclic.
func Compile(e expr.Expr, diagramID, compartmentID string) (*Diagram, error) {
	ctx := &buildContext{}
	info := compileExpr(e, ctx)

	if info.nodeID == "" && len(info.atoms) > 0 {
		n := Node{
			ID:      ctx.nextID("n"),
			Op:      expr.OpProject,
			DOFRefs: []string{info.atoms[0]},
			Meta:    map[string]string{"atom_only": "true"},
		}
		ctx.nodes = append(ctx.nodes, n)
	}

	d := New(diagramID)
	d.CompartmentID = compartmentID
	d.Nodes = ctx.nodes
	d.Edges = ctx.edges
	d.MarkDirty()

	if err := d.Validate(); err != nil {
		return nil, err
	}
	// A freshly built tree cannot cycle; checked as a contract anyway.
	if d.HasCycle() {
		return nil, &StructuralError{Code: ErrCodeCycle, Message: "compiled diagram contains a cycle"}
	}
	return d, nil
}

func compileExpr(e expr.Expr, ctx *buildContext) buildInfo {
	if e.IsAtom() {
		return buildInfo{atoms: []string{e.Atom}}
	}

	var atoms []string
	var structural []structuralInput
	for i, arg := range e.Args {
		child := compileExpr(arg, ctx)
		atoms = append(atoms, child.atoms...)
		if child.nodeID != "" {
			structural = append(structural, structuralInput{nodeID: child.nodeID, port: i})
		}
	}

	inputs := make([]string, 0, len(structural))
	for _, in := range structural {
		inputs = append(inputs, in.nodeID)
	}

	n := Node{
		ID:           ctx.nextID("n"),
		Op:           e.Op,
		Inputs:       inputs,
		Irreversible: e.Op.Irreversible(),
	}

	switch {
	case e.Op == expr.OpProject && len(atoms) == 1 && len(structural) == 0:
		n.DOFRefs = atoms
	case (e.Op == expr.OpSuperPlus || e.Op == expr.OpSuperMinus) && len(atoms) > 0 && len(structural) == 0:
		n.DOFRefs = atoms
	case len(atoms) > 0:
		// Tracking only; operator semantics use input edges.
		n.AtomArgs = atoms
	}

	ctx.nodes = append(ctx.nodes, n)

	for _, in := range structural {
		ctx.edges = append(ctx.edges, Edge{
			ID:    ctx.nextID("e"),
			From:  in.nodeID,
			To:    n.ID,
			Label: DefaultEdgeLabel,
			Port:  in.port,
		})
	}

	return buildInfo{nodeID: n.ID}
}
