// ABOUTME: Client configuration stored as YAML at XDG paths
// ABOUTME: Defaults, then the config file, then .env and environment overrides, then validation
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "leadopp"

// Config holds the client configuration.
type Config struct {
	Server         string        `yaml:"server"`
	APIPrefix      string        `yaml:"api_prefix"`
	Timeout        time.Duration `yaml:"timeout"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
	SessionDir     string        `yaml:"session_dir"`
	PreviewDir     string        `yaml:"preview_dir"`
	DefaultSection string        `yaml:"default_section"`
	Google         GoogleConfig  `yaml:"google"`
	Stub           StubConfig    `yaml:"stub"`
}

// GoogleConfig holds the OAuth client used for Google sign-in.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// StubConfig configures the local stub API server.
type StubConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
}

// Dir is the XDG config directory for the client.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DataDir is the XDG data directory for the client.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server:         "http://localhost:8000",
		APIPrefix:      "/api",
		Timeout:        30 * time.Second,
		LogLevel:       "info",
		LogFile:        filepath.Join(DataDir(), appName+".log"),
		SessionDir:     filepath.Join(DataDir(), "session"),
		PreviewDir:     filepath.Join(xdg.CacheHome, appName, "previews"),
		DefaultSection: "contacts",
		Google: GoogleConfig{
			RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
		},
		Stub: StubConfig{
			Addr:     "127.0.0.1:8000",
			Database: filepath.Join(DataDir(), "stub.db"),
		},
	}
}

// Load reads the config file at path (DefaultPath when empty). A missing file
// yields defaults. A .env file in the working directory is loaded before the
// environment overrides are applied; variables already set win over it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnvOverrides(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides:
// - LEADOPP_SERVER
// - LEADOPP_API_PREFIX
// - LEADOPP_LOG_LEVEL
// - LEADOPP_LOG_FILE
// - LEADOPP_SESSION_DIR
// - GOOGLE_CLIENT_ID
// - GOOGLE_CLIENT_SECRET
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"LEADOPP_SERVER", &cfg.Server},
		{"LEADOPP_API_PREFIX", &cfg.APIPrefix},
		{"LEADOPP_LOG_LEVEL", &cfg.LogLevel},
		{"LEADOPP_LOG_FILE", &cfg.LogFile},
		{"LEADOPP_SESSION_DIR", &cfg.SessionDir},
		{"GOOGLE_CLIENT_ID", &cfg.Google.ClientID},
		{"GOOGLE_CLIENT_SECRET", &cfg.Google.ClientSecret},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.SessionDir == "" {
		c.SessionDir = defaults.SessionDir
	}
	if c.PreviewDir == "" {
		c.PreviewDir = defaults.PreviewDir
	}
	if c.DefaultSection == "" {
		c.DefaultSection = defaults.DefaultSection
	}
	if c.Stub.Addr == "" {
		c.Stub.Addr = defaults.Stub.Addr
	}
	if c.Stub.Database == "" {
		c.Stub.Database = defaults.Stub.Database
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server cannot be empty")
	}
	u, err := url.Parse(c.Server)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("server %q must be an http or https URL", c.Server)
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("api_prefix %q must start with /", c.APIPrefix)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("log_level %q is not a valid level", c.LogLevel)
	}
	if strings.Contains(c.DefaultSection, "/") {
		return fmt.Errorf("default_section %q must be a single path segment", c.DefaultSection)
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		return fmt.Errorf("google.client_id and google.client_secret must be set together")
	}
	return nil
}

// BaseURL joins the server and API prefix.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Server, "/") + c.APIPrefix
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != ""
}

// Save writes the config as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
