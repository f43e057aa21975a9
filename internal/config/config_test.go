package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64, cfg.NumNodes)
	assert.Equal(t, 100.0, cfg.TotalMass)
	assert.Equal(t, uint64(5), cfg.KStable)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
num_nodes: 16
total_mass: 30
k_stable: 10
db_path: sessions.db
`))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.NumNodes)
	assert.Equal(t, 30.0, cfg.TotalMass)
	assert.Equal(t, uint64(10), cfg.KStable)
	assert.Equal(t, "sessions.db", cfg.DBPath)

	// Untouched fields keep the defaults.
	assert.Equal(t, 0.1, cfg.EMAAlpha)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("num_node: 16\n"))
	require.Error(t, err)
}

func TestParse_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero nodes", "num_nodes: 0"},
		{"negative mass", "total_mass: -1"},
		{"zero k", "k_stable: 0"},
		{"alpha above one", "ema_alpha: 1.5"},
		{"negative eps", "eps_conservation: -0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_nodes: 8\ntotal_mass: 24\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.NumNodes)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEngineConfig_Mapping(t *testing.T) {
	cfg := Default()
	cfg.NumNodes = 4
	cfg.TotalMass = 12
	ec := cfg.EngineConfig()
	assert.Equal(t, 4, ec.NumNodes)
	assert.Equal(t, 12.0, ec.TotalMass)
	assert.Equal(t, cfg.KStable, ec.Mixer.K)
	assert.Equal(t, cfg.EMAAlpha, ec.Mixer.EMAAlpha)
}
