package diagram

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidlab/sid/internal/expr"
)

func TestDiagramJSON_RoundTrip(t *testing.T) {
	orig, err := Compile(expr.MustParse("C(P(Freedom), O(P(Choice)))"), "d_expr", "c_main")
	require.NoError(t, err)

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	parsed, err := FromJSON(data)
	require.NoError(t, err)
	assert.True(t, orig.Equal(parsed))
}

func TestDiagramJSON_Golden(t *testing.T) {
	d, err := Compile(expr.MustParse("C(P(Freedom), O(P(Choice)))"), "d_expr", "")
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "compose_diagram", data)
}

func TestFromJSON_DefaultsEdgeLabel(t *testing.T) {
	d, err := FromJSON([]byte(`{
		"id": "d1",
		"nodes": [
			{"id": "n1", "op": "P", "dof_refs": ["Freedom"]},
			{"id": "n2", "op": "T", "inputs": ["n1"]}
		],
		"edges": [{"id": "e1", "from": "n1", "to": "n2"}]
	}`))
	require.NoError(t, err)
	require.Len(t, d.Edges, 1)
	assert.Equal(t, DefaultEdgeLabel, d.Edges[0].Label)
}

func TestFromJSON_MarksCollapseIrreversible(t *testing.T) {
	d, err := FromJSON([]byte(`{
		"id": "d1",
		"nodes": [
			{"id": "n1", "op": "P", "dof_refs": ["Choice"]},
			{"id": "n2", "op": "O", "inputs": ["n1"]}
		],
		"edges": [{"id": "e1", "from": "n1", "to": "n2"}]
	}`))
	require.NoError(t, err)
	assert.True(t, d.FindNode("n2").Irreversible)
}

func TestFromJSON_RejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
		code StructuralErrorCode
	}{
		{"not json", `{`, ErrCodeMalformed},
		{"missing diagram id", `{"nodes": [], "edges": []}`, ErrCodeMalformed},
		{"empty node id", `{"id": "d1", "nodes": [{"id": "", "op": "P"}], "edges": []}`, ErrCodeMalformed},
		{"unknown operator", `{"id": "d1", "nodes": [{"id": "n1", "op": "Q"}], "edges": []}`, ErrCodeMalformed},
		{"inputs not array", `{"id": "d1", "nodes": [{"id": "n1", "op": "P", "inputs": "n0"}], "edges": []}`, ErrCodeMalformed},
		{"dof_refs not array", `{"id": "d1", "nodes": [{"id": "n1", "op": "P", "dof_refs": 7}], "edges": []}`, ErrCodeMalformed},
		{"label not string", `{"id": "d1", "nodes": [{"id": "n1", "op": "P"}], "edges": [{"id": "e1", "from": "n1", "to": "n1", "label": 3}]}`, ErrCodeMalformed},
		{"empty edge id", `{"id": "d1", "nodes": [{"id": "n1", "op": "P"}], "edges": [{"id": "", "from": "n1", "to": "n1"}]}`, ErrCodeMalformed},
		{
			"edge to ghost node",
			`{"id": "d1", "nodes": [{"id": "n1", "op": "P"}], "edges": [{"id": "e1", "from": "n1", "to": "ghost"}]}`,
			ErrCodeDanglingEdge,
		},
		{
			"input references ghost node",
			`{"id": "d1", "nodes": [{"id": "n1", "op": "T", "inputs": ["ghost"]}], "edges": []}`,
			ErrCodeDanglingInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := FromJSON([]byte(tc.data))
			require.Error(t, err)
			assert.Nil(t, d)
			var se *StructuralError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.code, se.Code)
		})
	}
}
