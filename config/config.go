package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type ServerConfig struct {
	Listen          string `toml:"listen"`
	Database        string `toml:"database"`
	HistoryLimit    int    `toml:"history_limit"`
	TranscriptLimit int    `toml:"transcript_limit"`
	RequestTimeout  string `toml:"request_timeout"`
}

type ProviderConfig struct {
	Type    string `toml:"type"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model"`
}

type SearchConfig struct {
	Backend    string   `toml:"backend"`
	SearxngURL string   `toml:"searxng_url,omitempty"`
	MCPCommand string   `toml:"mcp_command,omitempty"`
	MCPArgs    []string `toml:"mcp_args,omitempty"`
	MCPTool    string   `toml:"mcp_tool,omitempty"`
}

type ClientConfig struct {
	ServerURL      string         `toml:"server_url"`
	StepDelay      string         `toml:"step_delay"`
	SecurityMethod SecurityMethod `toml:"security_method"`
	SSHKeyPath     string         `toml:"ssh_key_path,omitempty"`
}

type UserConfig struct {
	Server   ServerConfig   `toml:"server"`
	Provider ProviderConfig `toml:"provider"`
	Search   SearchConfig   `toml:"search"`
	Client   ClientConfig   `toml:"client"`
}

// Config is the merged runtime configuration: system settings, the user
// config file in the data directory, then HACKMATE_* environment overrides.
type Config struct {
	DataDirectory string
	Server        ServerConfig
	Provider      ProviderConfig
	Search        SearchConfig
	Client        ClientConfig
	Debug         bool
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// DatabasePath resolves the SQLite path, relative paths being rooted in the
// data directory.
func (c *Config) DatabasePath() string {
	p := ExpandPath(c.Server.Database)
	if p == "" {
		p = "hackmate.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir(), p)
}

func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 2*time.Minute)
}

func (c *Config) StepDelay() time.Duration {
	return parseDuration(c.Client.StepDelay, 750*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("HACKMATE_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if listen := os.Getenv("HACKMATE_LISTEN"); listen != "" {
		c.Server.Listen = listen
	}
	if p := os.Getenv("HACKMATE_PROVIDER"); p != "" {
		c.Provider.Type = p
	}
	if m := os.Getenv("HACKMATE_MODEL"); m != "" {
		c.Provider.Model = m
	}
	if u := os.Getenv("HACKMATE_SERVER_URL"); u != "" {
		c.Client.ServerURL = u
	}
	c.Debug = c.Debug || CheckDebug()
}

func CheckDebug() bool {
	debug := os.Getenv("HACKMATE_DEBUG")
	return debug == "true" || debug == "1"
}

func (c *Config) applyUser(u *UserConfig) {
	c.Server = u.Server
	c.Provider = u.Provider
	c.Search = u.Search
	c.Client = u.Client
}

func Load() (*Config, error) {
	cfg := &Config{DataDirectory: DefaultSystemConfig().DataDirectory}
	cfg.applyUser(DefaultUserConfig())

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory
	if dataDir := os.Getenv("HACKMATE_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUser(userCfg)
	cfg.applyEnvOverrides()

	return cfg, nil
}
