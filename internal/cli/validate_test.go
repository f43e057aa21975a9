package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/expr"
)

func writeDiagramFile(t *testing.T, text string) string {
	t.Helper()
	ast, err := expr.Parse(text)
	require.NoError(t, err)
	d, err := diagram.Compile(ast, "d_test", "")
	require.NoError(t, err)
	data, err := d.MarshalJSON()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "diagram.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestValidateCleanDiagram(t *testing.T) {
	path := writeDiagramFile(t, "C(P(Freedom),O(P(Choice)))")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "d_test: ok")
}

func TestValidateCleanDiagramJSON(t *testing.T) {
	path := writeDiagramFile(t, "S+(P(A),P(B))")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "d_test", data["diagram_id"])
}

func TestValidateDanglingEdge(t *testing.T) {
	body := `{
		"id": "d_broken",
		"nodes": [{"id": "n1", "op": "P", "atom_args": ["X"]}],
		"edges": [{"id": "e1", "from": "n1", "to": "ghost", "port": 0}]
	}`
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "dangling_edge")
	assert.Contains(t, buf.String(), "ghost")
}

func TestValidateWarningOnly(t *testing.T) {
	// An isolated node is a warning, not an error: exit stays zero.
	body := `{
		"id": "d_isolated",
		"nodes": [{"id": "n1", "op": "P"}],
		"edges": []
	}`
	path := filepath.Join(t.TempDir(), "isolated.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "warning")
	assert.Contains(t, buf.String(), "isolated_node")
}

func TestValidateMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "STRUCTURAL_ERROR")
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/diagram.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
