package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeSession(t *testing.T) {
	in := strings.NewReader(`{"command":"sid_create","num_nodes":4,"total_mass":12}` + "\n")
	out := &bytes.Buffer{}

	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.NoError(t, err)

	line := strings.TrimSpace(out.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	assert.Equal(t, "sid_create", resp["command"])
	assert.Equal(t, "ok", resp["status"])
}

func TestServeWithStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")
	in := strings.NewReader(`{"command":"sid_create","num_nodes":4,"total_mass":12}` + "\n")
	out := &bytes.Buffer{}

	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr, "store file should exist after a session")
}

func TestServeConfigDBPath(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "sid.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db_path: "+dbPath+"\n"), 0644))

	in := strings.NewReader(`{"command":"sid_create"}` + "\n")
	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetIn(in)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath})

	err := cmd.Execute()
	require.NoError(t, err)

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
}

func TestServeWithRulePack(t *testing.T) {
	packPath := filepath.Join("..", "rulepack", "testdata", "basic.cue")
	in := strings.NewReader(`{"command":"sid_create"}` + "\n")
	out := &bytes.Buffer{}

	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--pack", packPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"status":"ok"`)
}

func TestServeBadConfig(t *testing.T) {
	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", "/nonexistent/sid.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
