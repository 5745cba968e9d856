// Package config handles the XDG configuration directory, the config file and
// the paths of credential and cache files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasktree"

	// ConfigFile is the settings filename.
	ConfigFile = "config.yaml"

	// OAuthClientFile is the Google OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored Google OAuth token filename.
	TokenFile = "token.json"

	// SessionFile holds the session cookie of the REST backend.
	SessionFile = "session"

	// ExpandedFile stores expand flags for backends without one.
	ExpandedFile = "expanded.json"

	// CacheFile is the last-known-good tree cache.
	CacheFile = "cache.db"

	// TokenEnv overrides the configured bearer token.
	TokenEnv = "TASKTREE_TOKEN"
)

// Backends.
const (
	BackendREST   = "rest"
	BackendGoogle = "google"
)

// Defaults.
const (
	DefaultBackend = BackendREST
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 5 * time.Second
)

// ErrInvalid is returned for a malformed config file or override.
var ErrInvalid = errors.New("invalid config")

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the store: BackendREST or BackendGoogle.
	Backend string

	// BaseURL is the address of the REST store.
	BaseURL string

	// Token is an optional bearer token for the REST store.
	Token string

	// SessionCookie is the REST session cookie. When empty, the session file
	// written by login is used.
	SessionCookie string

	// Timeout bounds every store call.
	Timeout time.Duration
}

type fileConfig struct {
	Backend       string `yaml:"backend"`
	BaseURL       string `yaml:"base_url"`
	Token         string `yaml:"token"`
	SessionCookie string `yaml:"session_cookie"`
	Timeout       string `yaml:"timeout"`
}

// New creates a Config for the default or specified config directory and
// loads config.yaml from it when present.
// If configDir is empty, uses XDG_CONFIG_HOME/tasktree or $HOME/.config/tasktree.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:     dir,
		Backend: DefaultBackend,
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	if tok := os.Getenv(TokenEnv); tok != "" {
		cfg.Token = tok
	}
	return cfg, nil
}

func (c *Config) load() error {
	data, err := os.ReadFile(c.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, ConfigFile, err)
	}

	if fc.Backend != "" {
		if err := c.SetBackend(fc.Backend); err != nil {
			return err
		}
	}
	if fc.BaseURL != "" {
		c.BaseURL = strings.TrimRight(fc.BaseURL, "/")
	}
	c.Token = fc.Token
	c.SessionCookie = fc.SessionCookie
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: timeout: %q", ErrInvalid, fc.Timeout)
		}
		c.Timeout = d
	}
	return nil
}

// SetBackend validates and sets the backend name.
func (c *Config) SetBackend(name string) error {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case BackendREST, BackendGoogle:
		c.Backend = name
		return nil
	default:
		return fmt.Errorf("%w: unknown backend: %s", ErrInvalid, name)
	}
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

// Path returns the path of config.yaml.
func (c *Config) Path() string {
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

// SessionPath returns the path to the stored REST session cookie.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// ExpandedPath returns the path to the local expand-state file.
func (c *Config) ExpandedPath() string {
	return filepath.Join(c.Dir, ExpandedFile)
}

// CachePath returns the path to the tree cache database.
func (c *Config) CachePath() string {
	return filepath.Join(c.Dir, CacheFile)
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

// Session returns the REST session cookie: the configured one, else the one
// saved by login, else "".
func (c *Config) Session() string {
	if c.SessionCookie != "" {
		return c.SessionCookie
	}
	data, err := os.ReadFile(c.SessionPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveSession stores the REST session cookie with mode 0600.
func (c *Config) SaveSession(cookie string) error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	return os.WriteFile(c.SessionPath(), []byte(cookie+"\n"), 0600)
}

// HasSession checks if a REST session cookie was saved by login.
func (c *Config) HasSession() bool {
	_, err := os.Stat(c.SessionPath())
	return err == nil
}

// RemoveSession deletes the saved REST session cookie.
func (c *Config) RemoveSession() error {
	return os.Remove(c.SessionPath())
}
