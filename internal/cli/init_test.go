package cli

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacefleet/spacefleet/internal/config"
)

func TestInitCommand(t *testing.T) {
	tmp := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	require.NoError(t, initCommand(false))

	// The generated file loads back with the defaults intact.
	cfg, err := config.Load("spacefleet.yaml")
	require.NoError(t, err)
	assert.Equal(t, "spacefleet.db", cfg.DBPath)
	assert.Equal(t, time.Minute, cfg.Collection.MetricsInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Analysis.TTL)

	example, ok := cfg.Targets["example"]
	require.True(t, ok)
	assert.False(t, example.Enabled)
	assert.Equal(t, 22, example.Port)

	// A second run refuses to clobber the file unless forced.
	require.Error(t, initCommand(false))
	require.NoError(t, initCommand(true))
}
