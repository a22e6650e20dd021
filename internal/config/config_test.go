package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgmkit/unvgz/internal/config"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Workers)
	assert.Nil(t, cfg.Defaults.FlatOutput)
	assert.Nil(t, cfg.Defaults.SkipExisting)
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "unvgz")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := `
[defaults]
workers = 4
flat_output = true
skip_existing = true
verify = false
bwlimit = "100M"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.Workers)
	assert.Equal(t, 4, *cfg.Defaults.Workers)

	require.NotNil(t, cfg.Defaults.FlatOutput)
	assert.True(t, *cfg.Defaults.FlatOutput)

	require.NotNil(t, cfg.Defaults.SkipExisting)
	assert.True(t, *cfg.Defaults.SkipExisting)

	require.NotNil(t, cfg.Defaults.Verify)
	assert.False(t, *cfg.Defaults.Verify)

	require.NotNil(t, cfg.Defaults.BWLimit)
	assert.Equal(t, "100M", *cfg.Defaults.BWLimit)

	assert.Nil(t, cfg.Defaults.NoTimes)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "unvgz")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, "config.toml"),
		[]byte("[defaults\nworkers = "),
		0o644,
	))

	_, err := config.Load()
	assert.Error(t, err)
}
