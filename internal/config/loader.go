package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	// AppName is the directory name under the XDG config and data roots.
	AppName = "soloclaw"
	// ConfigFile is the config file name inside the config directory.
	ConfigFile = "config.json"
)

// FileSystem abstracts the file operations the loader needs, for tests.
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

type osFileSystem struct{}

func (osFileSystem) UserHomeDir() (string, error)    { return os.UserHomeDir() }
func (osFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Loader reads configuration with injected dependencies.
type Loader struct {
	fs FileSystem
}

// NewLoader creates a production loader using the real filesystem.
func NewLoader() *Loader {
	return &Loader{fs: osFileSystem{}}
}

// NewLoaderWithFS creates a loader with a custom filesystem (for testing).
func NewLoaderWithFS(fs FileSystem) *Loader {
	return &Loader{fs: fs}
}

// Load reads the config file and merges it over defaults. A missing file
// yields defaults; parse and validation failures are errors.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path := configPath(l.fs)
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Present keys overwrite defaults (even zero values); missing keys
	// leave defaults untouched.
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is a convenience using the default loader.
func Load() (*Config, error) {
	return NewLoader().Load()
}

func configPath(fs FileSystem) string {
	return filepath.Join(configDir(fs), ConfigFile)
}

// configDir resolves the soloclaw config directory, honoring
// XDG_CONFIG_HOME before falling back to ~/.config.
func configDir(fs FileSystem) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := fs.UserHomeDir()
	if err != nil {
		return filepath.Join(".", AppName)
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigDir is the soloclaw config directory on the real filesystem.
func ConfigDir() string {
	return configDir(osFileSystem{})
}

// ApprovalsPath is the approvals file location.
func ApprovalsPath() string {
	return filepath.Join(ConfigDir(), "approvals.json")
}

// SecretsEnvPath is the provider secrets file location.
func SecretsEnvPath() string {
	return filepath.Join(ConfigDir(), "secrets.env")
}

// SkillsDir is the config-level skills directory.
func SkillsDir() string {
	return filepath.Join(ConfigDir(), "skills")
}

// DataDir resolves the soloclaw data directory, honoring XDG_DATA_HOME
// before falling back to ~/.local/share.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// SessionsDir is where per-workspace session state lives.
func SessionsDir() string {
	return filepath.Join(DataDir(), "sessions")
}

// LogPath is the runtime log file location.
func LogPath() string {
	return filepath.Join(DataDir(), "soloclaw.log")
}
