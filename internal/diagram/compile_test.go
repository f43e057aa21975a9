package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidlab/sid/internal/expr"
)

func TestCompile_Projection(t *testing.T) {
	d, err := Compile(expr.MustParse("P(Freedom)"), "d_expr", "")
	require.NoError(t, err)

	require.Len(t, d.Nodes, 1)
	require.Empty(t, d.Edges)
	n := d.Nodes[0]
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, expr.OpProject, n.Op)
	assert.Equal(t, []string{"Freedom"}, n.DOFRefs)
	assert.Empty(t, n.Inputs)
}

func TestCompile_BareAtomSynthesizesProjection(t *testing.T) {
	// A whole-diagram build of a bare atom must never return "no node".
	d, err := Compile(expr.MustParse("Freedom"), "d_expr", "")
	require.NoError(t, err)

	require.Len(t, d.Nodes, 1)
	n := d.Nodes[0]
	assert.Equal(t, expr.OpProject, n.Op)
	assert.Equal(t, []string{"Freedom"}, n.DOFRefs)
	assert.Equal(t, "true", n.Meta["atom_only"])
}

func TestCompile_Composition(t *testing.T) {
	d, err := Compile(expr.MustParse("C(P(Freedom), P(Choice))"), "d_expr", "")
	require.NoError(t, err)

	require.Len(t, d.Nodes, 3)
	require.Len(t, d.Edges, 2)

	root := d.Nodes[2]
	assert.Equal(t, expr.OpCompose, root.Op)
	require.Equal(t, []string{"n1", "n2"}, root.Inputs)

	// Port order must recover argument order.
	assert.Equal(t, []string{"n1", "n2"}, d.Inputs(root.ID))
	for _, e := range d.Edges {
		assert.Equal(t, DefaultEdgeLabel, e.Label)
		assert.Equal(t, root.ID, e.To)
	}
}

func TestCompile_CollapseIrreversible(t *testing.T) {
	d, err := Compile(expr.MustParse("O(P(Choice))"), "d_expr", "")
	require.NoError(t, err)

	root := d.FindNode("n2")
	require.NotNil(t, root)
	assert.Equal(t, expr.OpCollapse, root.Op)
	assert.True(t, root.Irreversible)
}

func TestCompile_SuperpositionAtoms(t *testing.T) {
	d, err := Compile(expr.MustParse("S+(Peace, Hope)"), "d_expr", "")
	require.NoError(t, err)

	require.Len(t, d.Nodes, 1)
	n := d.Nodes[0]
	assert.Equal(t, expr.OpSuperPlus, n.Op)
	assert.Equal(t, []string{"Peace", "Hope"}, n.DOFRefs)
	assert.Empty(t, n.Inputs)
}

func TestCompile_MixedAtomAndStructuralArgs(t *testing.T) {
	// S+ with a structural child keeps the atom in AtomArgs, not DOFRefs.
	d, err := Compile(expr.MustParse("S+(Peace, O(P(Choice)))"), "d_expr", "")
	require.NoError(t, err)

	root := d.Nodes[len(d.Nodes)-1]
	assert.Equal(t, expr.OpSuperPlus, root.Op)
	assert.Empty(t, root.DOFRefs)
	assert.Equal(t, []string{"Peace"}, root.AtomArgs)
	require.Len(t, root.Inputs, 1)

	// The structural child sat at argument position 1.
	require.Len(t, d.Edges, 2)
	last := d.Edges[len(d.Edges)-1]
	assert.Equal(t, root.ID, last.To)
	assert.Equal(t, 1, last.Port)
}

func TestCompile_DeterministicIDs(t *testing.T) {
	a, err := Compile(expr.MustParse("C(P(Freedom), O(P(Choice)))"), "d_expr", "")
	require.NoError(t, err)
	b, err := Compile(expr.MustParse("C(P(Freedom), O(P(Choice)))"), "d_expr", "")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestCompile_ResultIsValidAndAcyclic(t *testing.T) {
	exprs := []string{
		"P(Freedom)",
		"C(P(Freedom), O(P(Choice)))",
		"T(S-(Doubt, Fear))",
		"S+(P(a_1), C(P(Left), P(Right)))",
	}
	for _, text := range exprs {
		t.Run(text, func(t *testing.T) {
			e, err := expr.Parse(text)
			require.NoError(t, err)
			d, err := Compile(e, "d_expr", "c_main")
			require.NoError(t, err)
			assert.NoError(t, d.Validate())
			assert.False(t, d.HasCycle())
			assert.Equal(t, "c_main", d.CompartmentID)
		})
	}
}
