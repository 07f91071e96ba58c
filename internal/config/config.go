// Package config loads application configuration from an optional YAML file
// under the base directory, overridable via NOTEFOLD_* environment
// variables.
package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// DefaultWorkspace is the workspace commands act on when none is named.
	DefaultWorkspace string `mapstructure:"default_workspace"`

	// GitHubToken authenticates against the remote store.
	GitHubToken string `mapstructure:"github_token"`

	// GitHubAPIURL overrides the REST base URL (GitHub Enterprise).
	GitHubAPIURL string `mapstructure:"github_api_url"`

	// GitHubGraphQLURL overrides the GraphQL endpoint.
	GitHubGraphQLURL string `mapstructure:"github_graphql_url"`

	// SyncIntervalSec is the auto-sync sweep cadence in seconds.
	SyncIntervalSec int `mapstructure:"sync_interval_sec"`

	// IdleWindowSec is how long after user input a periodic sweep holds
	// off, in seconds.
	IdleWindowSec int `mapstructure:"idle_window_sec"`

	// PullBatchSize bounds how many blobs one batched fetch requests.
	PullBatchSize int `mapstructure:"pull_batch_size"`

	// PushConcurrency bounds concurrent uploads during reconciliation.
	PushConcurrency int `mapstructure:"push_concurrency"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// LogFile, when set, routes logs to a rotated file instead of stderr.
	LogFile string `mapstructure:"log_file"`

	// DBMaxOpenConns limits open database connections; 0 means the sql.DB
	// default.
	DBMaxOpenConns int `mapstructure:"db_max_open_conns"`

	// DBMaxIdleConns limits idle database connections; 0 means the sql.DB
	// default.
	DBMaxIdleConns int `mapstructure:"db_max_idle_conns"`

	// DisabledTools lists MCP tool names excluded from registration.
	DisabledTools []string `mapstructure:"disabled_tools"`
}

// Load reads baseDir/config.yaml (optional) plus NOTEFOLD_* environment
// overrides, applies defaults, and validates the result.
func Load(baseDir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("default_workspace", "default")
	v.SetDefault("github_token", "")
	v.SetDefault("github_api_url", "https://api.github.com")
	v.SetDefault("github_graphql_url", "https://api.github.com/graphql")
	v.SetDefault("sync_interval_sec", 300)
	v.SetDefault("idle_window_sec", 3)
	v.SetDefault("pull_batch_size", 50)
	v.SetDefault("push_concurrency", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("db_max_open_conns", 0)
	v.SetDefault("db_max_idle_conns", 0)

	v.SetConfigFile(filepath.Join(baseDir, "config.yaml"))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !isMissingConfig(err) {
			return nil, err
		}
	}

	v.SetEnvPrefix("NOTEFOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no file or environment
// overrides apply.
func DefaultConfig() *Config {
	return &Config{
		DefaultWorkspace: "default",
		GitHubAPIURL:     "https://api.github.com",
		GitHubGraphQLURL: "https://api.github.com/graphql",
		SyncIntervalSec:  300,
		IdleWindowSec:    3,
		PullBatchSize:    50,
		PushConcurrency:  4,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.DefaultWorkspace == "" {
		return errors.New("default_workspace must not be empty")
	}
	if c.SyncIntervalSec < 1 {
		return errors.New("sync_interval_sec must be at least 1")
	}
	if c.IdleWindowSec < 0 {
		return errors.New("idle_window_sec must not be negative")
	}
	if c.PullBatchSize < 1 || c.PullBatchSize > 100 {
		return errors.New("pull_batch_size must be between 1 and 100")
	}
	if c.PushConcurrency < 1 {
		return errors.New("push_concurrency must be at least 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log_level must be one of: debug, info, warn, error")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.New("log_format must be one of: text, json")
	}
	return nil
}

// isMissingConfig reports whether err means the config file simply is not
// there, which is fine: defaults and environment overrides still apply.
func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
