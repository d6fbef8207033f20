// Package config handles the XDG directories, config.toml and environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "todo"

	// ConfigFile is the optional settings file inside the config directory.
	ConfigFile = "config.toml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// DataFileName is the local task document inside the data directory.
	DataFileName = "todo_list.json"
)

// Backend names accepted by --backend and the backend key.
const (
	BackendFile   = "file"
	BackendRemote = "remote"
	BackendGoogle = "google"
)

// Defaults.
const (
	DefaultBackend    = BackendFile
	DefaultAPIURL     = "http://localhost:8000/api"
	DefaultTimeout    = 5 * time.Second
	DefaultGoogleList = "@default"
	DefaultServerAddr = ":8000"
	DefaultServerDB   = "todo.db"
)

// Environment variables read by Load.
const (
	EnvBackend  = "TODO_BACKEND"
	EnvAPIURL   = "TODO_API_URL"
	EnvDataFile = "TODO_DATA_FILE"
	EnvTimeout  = "TODO_TIMEOUT"
	EnvListID   = "TODO_LIST_ID"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	Backend    string        `toml:"backend"`
	APIURL     string        `toml:"api_url"`
	DataFile   string        `toml:"data_file"`
	Timeout    time.Duration `toml:"timeout"`
	GoogleList string        `toml:"google_list"`

	Server ServerConfig `toml:"server"`
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	DB        string `toml:"db"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`
}

// New creates a Config with defaults only, rooted at configDir.
// If configDir is empty, uses XDG_CONFIG_HOME/todo or $HOME/.config/todo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:        dir,
		Backend:    DefaultBackend,
		APIURL:     DefaultAPIURL,
		DataFile:   filepath.Join(DefaultDataDir(), DataFileName),
		Timeout:    DefaultTimeout,
		GoogleList: DefaultGoogleList,
		Server: ServerConfig{
			Addr:      DefaultServerAddr,
			DB:        filepath.Join(DefaultDataDir(), DefaultServerDB),
			LogFormat: "text",
			LogLevel:  "info",
		},
	}, nil
}

// Load builds a Config from defaults, then config.toml in the config
// directory (if present), then environment variables. Flags are applied
// by the caller.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	path := cfg.FilePath()
	md, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("loading config file %s: unknown key %q", path, undecoded[0].String())
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := getenv(EnvDataFile); v != "" {
		c.DataFile = v
	}
	if v := getenv(EnvListID); v != "" {
		c.GoogleList = v
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeout, v, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the backend name and timeout.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendRemote, BackendGoogle:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendFile, BackendRemote, BackendGoogle)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultDataDir returns the private data directory.
// Uses XDG_DATA_HOME if set, otherwise $HOME/.local/share.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// FilePath returns the path to config.toml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
