package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidlab/sid/internal/expr"
)

func compileDiagram(t *testing.T, text, id string) *Diagram {
	t.Helper()
	ast, err := expr.Parse(text)
	require.NoError(t, err)
	d, err := Compile(ast, id, "")
	require.NoError(t, err)
	return d
}

func TestFingerprint_Stable(t *testing.T) {
	d := compileDiagram(t, "C(P(Freedom),P(Choice))", "d1")

	h1, err := d.Fingerprint()
	require.NoError(t, err)
	h2, err := d.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "hex-encoded SHA-256")
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := New("d1")
	a.AddNode(Node{ID: "n1", Op: expr.OpProject, AtomArgs: []string{"X"}})
	a.AddNode(Node{ID: "n2", Op: expr.OpTransport, Inputs: []string{"n1"}})
	a.AddEdge(Edge{ID: "e1", From: "n1", To: "n2", Label: DefaultEdgeLabel})

	b := New("d1")
	b.AddNode(Node{ID: "n2", Op: expr.OpTransport, Inputs: []string{"n1"}})
	b.AddNode(Node{ID: "n1", Op: expr.OpProject, AtomArgs: []string{"X"}})
	b.AddEdge(Edge{ID: "e1", From: "n1", To: "n2", Label: DefaultEdgeLabel})

	ha, err := a.Fingerprint()
	require.NoError(t, err)
	hb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "declaration order must not change identity")
}

func TestFingerprint_ContentSensitive(t *testing.T) {
	d1 := compileDiagram(t, "C(P(Freedom),P(Choice))", "d1")
	d2 := compileDiagram(t, "C(P(Freedom),O(P(Choice)))", "d1")

	h1, err := d1.Fingerprint()
	require.NoError(t, err)
	h2, err := d2.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestFingerprint_IDSensitive(t *testing.T) {
	d1 := compileDiagram(t, "P(Freedom)", "d_main")
	d2 := compileDiagram(t, "P(Freedom)", "d_expr")

	h1, err := d1.Fingerprint()
	require.NoError(t, err)
	h2, err := d2.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "same structure under different ids is a different snapshot")
}
