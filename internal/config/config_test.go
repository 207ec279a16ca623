package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mep.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_slots = 4
trace_enabled = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.MaxSlots)
	require.True(t, cfg.TraceEnabled)
	require.Equal(t, DefaultConfig().DebugListenAddr, cfg.DebugListenAddr)
	require.Equal(t, "mep", cfg.MetricsNamespace)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/mep.toml")
	require.Error(t, err)
}
