package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igormichalak/devserve/internal/units"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load([]string{dir})
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.False(t, cfg.Expose)
	assert.False(t, cfg.Reload)
	assert.Equal(t, DefaultDebounce, cfg.Debounce)
	assert.Equal(t, []string{".git", "node_modules"}, cfg.Ignore)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Unit)
	assert.Equal(t, "localhost:8080", cfg.Addr())
}

func TestLoadFlags(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load([]string{
		"--port", "9000", "--expose", "--reload",
		"--debounce", "250ms", "--ignore", "dist,tmp", "--unit", "minute",
		dir,
	})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.Reload)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, []string{"dist", "tmp"}, cfg.Ignore)
	assert.Equal(t, units.Minute, cfg.Unit)
	assert.Equal(t, ":9000", cfg.Addr())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEVSERVE_PORT", "3000")
	t.Setenv("DEVSERVE_LOG_FORMAT", "json")
	t.Setenv("DEVSERVE_ROOT", dir)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, dir, cfg.Root)

	cfg, err = Load([]string{"--port", "4000", dir})
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
}

func TestLoadEnvIgnoreList(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("DEVSERVE_IGNORE", "dist,tmp")
	cfg, err := Load([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"dist", "tmp"}, cfg.Ignore)

	t.Setenv("DEVSERVE_IGNORE", "dist, tmp build")
	cfg, err = Load([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"dist", "tmp", "build"}, cfg.Ignore)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "devserve.yaml")
	data := "port: \"5000\"\nreload: true\ndebounce: 1s\nunit: hour\nignore:\n  - build\n"
	require.NoError(t, os.WriteFile(file, []byte(data), 0o644))

	cfg, err := Load([]string{"--config", file, dir})
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.True(t, cfg.Reload)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, units.Hour, cfg.Unit)
	assert.Equal(t, []string{"build"}, cfg.Ignore)
	assert.Equal(t, file, cfg.ConfigFile)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("<html></html>"), 0o644))

	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrMissingRoot)

	_, err = Load([]string{"--port", "80a", dir})
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = Load([]string{file})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = Load([]string{filepath.Join(dir, "missing")})
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = Load([]string{"--unit", "decade", dir})
	assert.ErrorIs(t, err, units.ErrUnknownUnit)

	_, err = Load([]string{"--config", filepath.Join(dir, "nope.yaml"), dir})
	assert.Error(t, err)

	_, err = Load([]string{"--bogus"})
	assert.Error(t, err)
}
