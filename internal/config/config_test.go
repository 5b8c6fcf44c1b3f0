package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	c := config.Default()
	assert.Equal(t, config.Quiet, c.Verbose)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, 1000, c.GCInterval)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checker.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
verbose = 2
max_executions = 500
no_fork = true
trace_analysis_plugins = ["sc-checker"]
`), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Noisy, c.Verbose)
	assert.Equal(t, 500, c.MaxExecutions)
	assert.True(t, c.NoFork)
	assert.Equal(t, []string{"sc-checker"}, c.TraceAnalysisPlugins)
	assert.Equal(t, 1000, c.GCInterval, "omitted fields keep their default")
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
