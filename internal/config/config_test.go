package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", ResolveConfigPath())
}

func TestResolveConfigPath_XDG(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if dir, err := os.UserConfigDir(); err != nil || dir != "/tmp/xdg" {
		t.Skip("user config dir does not follow XDG_CONFIG_HOME on this platform")
	}
	assert.Equal(t, filepath.Join("/tmp/xdg", AppName, DefaultConfigFileName), ResolveConfigPath())
}

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, filepath.Join(dir, "nested", DefaultDBName), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "nested", DefaultLogName), cfg.LogPath)
	assert.Equal(t, ThemeSystem, cfg.Theme)
	assert.Equal(t, "u", cfg.Keys.Undo)
	assert.Equal(t, "/", cfg.Keys.Search)
}

func TestLoadOrCreate_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	content := `
db_path = "/var/lib/tododay/todos.db"
export_dir = "reports"
theme = "dark"
log_level = "debug"

[keys]
quit = "Q"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tododay/todos.db", cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "reports"), cfg.ExportDir)
	assert.Equal(t, ThemeDark, cfg.Theme)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "Q", cfg.Keys.Quit)
	// Keys missing from the file fall back to the defaults.
	assert.Equal(t, "a", cfg.Keys.Add)
}

func TestLoadOrCreate_InvalidTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`theme = "neon"`), 0o644))

	_, err := LoadOrCreate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid theme")
}

func TestLoadOrCreate_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`theme = `), 0o644))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestSetTheme_KeepsOtherValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("db_path = \"mine.db\"\n"), 0o644))

	require.NoError(t, SetTheme(path, ThemeLight))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mine.db")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, cfg.Theme)
}

func TestSetTheme_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	assert.Error(t, SetTheme(path, "sepia"))
	assert.NoFileExists(t, path)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, Config{LogLevel: in}.SlogLevel(), in)
	}
}
