package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spiffcs/devpulse/internal/constants"
)

// Config represents the application configuration
type Config struct {
	DefaultFormat string `yaml:"default_format,omitempty"`

	// Top-level config sections
	Fetch      *FetchOverrides   `yaml:"fetch,omitempty"`
	GitHub     *GitHubConfig     `yaml:"github,omitempty"`
	Jira       *JiraConfig       `yaml:"jira,omitempty"`
	Confluence *ConfluenceConfig `yaml:"confluence,omitempty"`
}

// FetchOverrides - limits applied to every upstream query
type FetchOverrides struct {
	ItemCap     *int           `yaml:"item_cap,omitempty"`
	Concurrency *int           `yaml:"concurrency,omitempty"`
	Timeout     *time.Duration `yaml:"timeout,omitempty"`
}

// GitHubConfig - GitHub settings that are not secrets
type GitHubConfig struct {
	APIURL string   `yaml:"api_url,omitempty"`
	Repos  []string `yaml:"repos,omitempty"`
}

// JiraConfig - Jira settings that are not secrets
type JiraConfig struct {
	BaseURL          string   `yaml:"base_url,omitempty"`
	ResolvedStatuses []string `yaml:"resolved_statuses,omitempty"`
}

// ConfluenceConfig - Confluence settings that are not secrets
type ConfluenceConfig struct {
	BaseURL  string `yaml:"base_url,omitempty"`
	SpaceKey string `yaml:"space_key,omitempty"`
}

// FetchSettings are the effective fetch limits
type FetchSettings struct {
	ItemCap     int
	Concurrency int
	Timeout     time.Duration
}

// DefaultFetchSettings returns the default fetch limits
func DefaultFetchSettings() FetchSettings {
	return FetchSettings{
		ItemCap:     constants.DefaultItemCap,
		Concurrency: constants.DefaultConcurrency,
		Timeout:     constants.DefaultRequestTimeout,
	}
}

// GetFetchSettings returns fetch limits with user overrides merged with
// defaults. Non-positive overrides are ignored.
func (c *Config) GetFetchSettings() FetchSettings {
	settings := DefaultFetchSettings()
	if c.Fetch == nil {
		return settings
	}
	if f := c.Fetch; f.ItemCap != nil && *f.ItemCap > 0 {
		settings.ItemCap = *f.ItemCap
	}
	if f := c.Fetch; f.Concurrency != nil && *f.Concurrency > 0 {
		settings.Concurrency = *f.Concurrency
	}
	if f := c.Fetch; f.Timeout != nil && *f.Timeout > 0 {
		settings.Timeout = *f.Timeout
	}
	return settings
}

// GetResolvedStatuses returns the statuses counted as resolved, using
// defaults if not configured
func (c *Config) GetResolvedStatuses() []string {
	if c.Jira != nil && len(c.Jira.ResolvedStatuses) > 0 {
		return c.Jira.ResolvedStatuses
	}
	return slices.Clone(constants.DefaultResolvedStatuses)
}

// GetGitHubRepos returns the default repository filter
func (c *Config) GetGitHubRepos() []string {
	if c.GitHub == nil {
		return nil
	}
	return c.GitHub.Repos
}

// GetConfluenceSpace returns the default space filter
func (c *Config) GetConfluenceSpace() string {
	if c.Confluence == nil {
		return ""
	}
	return c.Confluence.SpaceKey
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".devpulse"
	}
	return filepath.Join(configDir, "devpulse")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".devpulse.yaml"
}

// ConfigFileExists returns true if the config file exists on disk
func ConfigFileExists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Load loads the configuration from disk.
// It first loads the global config from XDG config directory, then merges
// any local .devpulse.yaml config on top (local values take precedence).
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), LocalConfigPath())
}

// LoadFrom loads and merges the global and local files at the given paths.
// Missing files are skipped.
func LoadFrom(globalPath, localPath string) (*Config, error) {
	// Start with defaults
	cfg := &Config{
		DefaultFormat: "table",
	}

	if err := readFile(globalPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load global config file: %w", err)
	}

	var localCfg Config
	if err := readFile(localPath, &localCfg); err != nil {
		return nil, fmt.Errorf("failed to load local config file: %w", err)
	}
	cfg = mergeConfig(cfg, &localCfg)

	// Set defaults if still empty
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "table"
	}

	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// mergeConfig merges local config on top of global config.
// Local values take precedence; unset local values preserve global values.
func mergeConfig(global, local *Config) *Config {
	result := &Config{}

	// Merge simple fields (local wins if set)
	if local.DefaultFormat != "" {
		result.DefaultFormat = local.DefaultFormat
	} else {
		result.DefaultFormat = global.DefaultFormat
	}

	result.Fetch = mergeFetchOverrides(global.Fetch, local.Fetch)
	result.GitHub = mergeGitHub(global.GitHub, local.GitHub)
	result.Jira = mergeJira(global.Jira, local.Jira)
	result.Confluence = mergeConfluence(global.Confluence, local.Confluence)

	return result
}

func mergeFetchOverrides(global, local *FetchOverrides) *FetchOverrides {
	if global == nil && local == nil {
		return nil
	}
	result := &FetchOverrides{}

	if global != nil {
		result.ItemCap = global.ItemCap
		result.Concurrency = global.Concurrency
		result.Timeout = global.Timeout
	}

	if local != nil {
		if local.ItemCap != nil {
			result.ItemCap = local.ItemCap
		}
		if local.Concurrency != nil {
			result.Concurrency = local.Concurrency
		}
		if local.Timeout != nil {
			result.Timeout = local.Timeout
		}
	}

	// Return nil if all fields are nil
	if result.ItemCap == nil && result.Concurrency == nil && result.Timeout == nil {
		return nil
	}

	return result
}

func mergeGitHub(global, local *GitHubConfig) *GitHubConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &GitHubConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil {
		if local.APIURL != "" {
			result.APIURL = local.APIURL
		}
		// Arrays: local replaces if non-empty
		if len(local.Repos) > 0 {
			result.Repos = local.Repos
		}
	}
	return result
}

func mergeJira(global, local *JiraConfig) *JiraConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &JiraConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil {
		if local.BaseURL != "" {
			result.BaseURL = local.BaseURL
		}
		if len(local.ResolvedStatuses) > 0 {
			result.ResolvedStatuses = local.ResolvedStatuses
		}
	}
	return result
}

func mergeConfluence(global, local *ConfluenceConfig) *ConfluenceConfig {
	if global == nil && local == nil {
		return nil
	}
	result := &ConfluenceConfig{}
	if global != nil {
		*result = *global
	}
	if local != nil {
		if local.BaseURL != "" {
			result.BaseURL = local.BaseURL
		}
		if local.SpaceKey != "" {
			result.SpaceKey = local.SpaceKey
		}
	}
	return result
}

// DefaultConfig returns a fully populated config with all default values.
// This is useful for generating a complete config file template.
func DefaultConfig() *Config {
	settings := DefaultFetchSettings()

	return &Config{
		DefaultFormat: "table",
		Fetch: &FetchOverrides{
			ItemCap:     &settings.ItemCap,
			Concurrency: &settings.Concurrency,
			Timeout:     &settings.Timeout,
		},
		GitHub: &GitHubConfig{
			APIURL: constants.DefaultGitHubAPIURL,
			Repos:  []string{},
		},
		Jira: &JiraConfig{
			ResolvedStatuses: slices.Clone(constants.DefaultResolvedStatuses),
		},
		Confluence: &ConfluenceConfig{},
	}
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	// Get absolute path for local config
	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# devpulse configuration file
# See: devpulse config defaults  (for all available options)
# Credentials are read from the environment (or a .env file), never from here.

# Output format: table, json, markdown or text
default_format: table

# Upstream fetch limits (optional)
# fetch:
#   item_cap: 200
#   concurrency: 8
#   timeout: 30s

# Statuses that count as resolved (optional)
# jira:
#   resolved_statuses: [Done, Resolved, Closed]

# Default space filter (optional)
# confluence:
#   space_key: ENG
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// Save saves the configuration to the global config file
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return SaveTo(ConfigPath(), string(data))
}

// SetDefaultFormat sets the default output format and saves
func (c *Config) SetDefaultFormat(format string) error {
	c.DefaultFormat = format
	return c.Save()
}
