package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "tododay"
	EnvConfigPath         = "TODODAY_CONFIG"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo.db"
	DefaultLogName        = "tododay.log"
)

const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

var (
	Themes    = []string{ThemeSystem, ThemeLight, ThemeDark}
	LogLevels = []string{"debug", "info", "warn", "error"}
)

type Keymap struct {
	Quit    string `toml:"quit"`
	Add     string `toml:"add"`
	Up      string `toml:"up"`
	Down    string `toml:"down"`
	Toggle  string `toml:"toggle"`
	Delete  string `toml:"delete"`
	Undo    string `toml:"undo"`
	Edit    string `toml:"edit"`
	Search  string `toml:"search"`
	Export  string `toml:"export"`
	Confirm string `toml:"confirm"`
	Cancel  string `toml:"cancel"`
}

type Config struct {
	DBPath    string `toml:"db_path"`
	ExportDir string `toml:"export_dir"`
	LogPath   string `toml:"log_path"`
	LogLevel  string `toml:"log_level"`
	Theme     string `toml:"theme"`
	Keys      Keymap `toml:"keys"`
}

// ResolveConfigPath returns $TODODAY_CONFIG when set, otherwise
// config.toml under the user config directory.
func ResolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return DefaultConfigFileName
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults first if
// the file does not exist. Relative paths in the file are resolved
// against the config file's directory.
func LoadOrCreate(path string) (Config, error) {
	base := filepath.Dir(path)
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(base), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg.resolve(base), nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SetTheme rewrites only the theme of the file at path, keeping its
// other values as written.
func SetTheme(path, theme string) error {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return err
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.fillDefaults()
	}
	cfg.Theme = theme
	if err := cfg.Validate(); err != nil {
		return err
	}
	return Save(path, cfg)
}

func (c Config) Validate() error {
	if !contains(Themes, c.Theme) {
		return fmt.Errorf("invalid theme %q: must be one of %v", c.Theme, Themes)
	}
	if !contains(LogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log_level %q: must be one of %v", c.LogLevel, LogLevels)
	}
	return nil
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) fillDefaults() {
	d := defaultConfig()
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.ExportDir == "" {
		c.ExportDir = d.ExportDir
	}
	if c.LogPath == "" {
		c.LogPath = d.LogPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	fillKey(&c.Keys.Quit, d.Keys.Quit)
	fillKey(&c.Keys.Add, d.Keys.Add)
	fillKey(&c.Keys.Up, d.Keys.Up)
	fillKey(&c.Keys.Down, d.Keys.Down)
	fillKey(&c.Keys.Toggle, d.Keys.Toggle)
	fillKey(&c.Keys.Delete, d.Keys.Delete)
	fillKey(&c.Keys.Undo, d.Keys.Undo)
	fillKey(&c.Keys.Edit, d.Keys.Edit)
	fillKey(&c.Keys.Search, d.Keys.Search)
	fillKey(&c.Keys.Export, d.Keys.Export)
	fillKey(&c.Keys.Confirm, d.Keys.Confirm)
	fillKey(&c.Keys.Cancel, d.Keys.Cancel)
}

func fillKey(k *string, def string) {
	if *k == "" {
		*k = def
	}
}

func (c Config) resolve(base string) Config {
	c.DBPath = resolvePath(base, c.DBPath)
	c.ExportDir = resolvePath(base, c.ExportDir)
	c.LogPath = resolvePath(base, c.LogPath)
	return c
}

func resolvePath(base, p string) string {
	if p == "" || strings.HasPrefix(p, "file:") {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func defaultConfig() Config {
	return Config{
		DBPath:    DefaultDBName,
		ExportDir: "~/Downloads",
		LogPath:   DefaultLogName,
		LogLevel:  "info",
		Theme:     ThemeSystem,
		Keys: Keymap{
			Quit:    "q",
			Add:     "a",
			Up:      "k",
			Down:    "j",
			Toggle:  " ",
			Delete:  "d",
			Undo:    "u",
			Edit:    "e",
			Search:  "/",
			Export:  "x",
			Confirm: "enter",
			Cancel:  "esc",
		},
	}
}
