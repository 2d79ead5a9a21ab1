package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/zsync/internal/types"
	"github.com/dl-alexandre/zsync/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "ZSYNC_"
)

// Config holds application configuration. Command-line flags override it.
type Config struct {
	// Hostname is the z/OS FTP server, optionally host:port
	Hostname string `json:"hostname"`

	// Username is the TSO user; empty means the current OS user
	Username string `json:"username"`

	// RemoteRoot is the default high-level qualifier, e.g. USER.PROJECT
	RemoteRoot string `json:"remoteRoot,omitempty"`

	// IndexFile is where the sync index is kept (.xml, or .db for SQLite)
	IndexFile string `json:"indexFile"`

	// DatasetsOptions is the allocation parameter file
	DatasetsOptions string `json:"datasetsOptions,omitempty"`

	// Excludes are relative path prefixes never uploaded
	Excludes []string `json:"excludes,omitempty"`

	// IncludeExcludedRemovals deletes members of excluded files that vanished locally
	IncludeExcludedRemovals bool `json:"includeExcludedRemovals"`

	// TransferMode is "text" (TYPE A) or "binary" (TYPE I)
	TransferMode string `json:"transferMode"`

	// Timeout is the FTP command timeout in seconds
	Timeout int `json:"timeout"`

	// DefaultOutputFormat is the default output format (json, table)
	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel"`

	// ColorOutput enables color output on the console
	ColorOutput bool `json:"colorOutput"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Hostname:            utils.DefaultHostname,
		IndexFile:           utils.DefaultIndexFile,
		TransferMode:        utils.TransferModeText,
		Timeout:             int(utils.DefaultCommandTimeout / time.Second),
		DefaultOutputFormat: types.OutputFormatTable,
		LogLevel:            "normal",
		ColorOutput:         true,
	}
}

// Load loads configuration with precedence: CLI flags > env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv(EnvPrefix + "HOSTNAME"); v != "" {
		c.Hostname = v
	}
	if v := os.Getenv(EnvPrefix + "USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvPrefix + "REMOTE_ROOT"); v != "" {
		c.RemoteRoot = v
	}
	if v := os.Getenv(EnvPrefix + "INDEX_FILE"); v != "" {
		c.IndexFile = v
	}
	if v := os.Getenv(EnvPrefix + "DATASETS_OPTIONS"); v != "" {
		c.DatasetsOptions = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSFER_MODE"); v != "" {
		c.TransferMode = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.Timeout = timeout
		}
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.DefaultOutputFormat = types.OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "COLOR_OUTPUT"); v != "" {
		c.ColorOutput = parseBool(v)
	}
}

// Save saves the configuration to the config file
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validLogLevels = []string{"quiet", "normal", "verbose", "debug"}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hostname) == "" {
		return fmt.Errorf("hostname must not be empty")
	}

	if c.IndexFile == "" {
		return fmt.Errorf("index file must not be empty")
	}

	if c.TransferMode != utils.TransferModeText && c.TransferMode != utils.TransferModeBinary {
		return fmt.Errorf("invalid transfer mode: %s (must be 'text' or 'binary')", c.TransferMode)
	}

	if c.Timeout < 1 || c.Timeout > 3600 {
		return fmt.Errorf("timeout must be between 1 and 3600 seconds, got: %d", c.Timeout)
	}

	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat)
	}

	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// Set assigns one key by its JSON name, case-insensitively. The result is
// validated but not saved.
func (c *Config) Set(key, value string) error {
	next := *c
	switch strings.ToLower(key) {
	case "hostname":
		next.Hostname = value
	case "username":
		next.Username = value
	case "remoteroot":
		next.RemoteRoot = strings.ToUpper(value)
	case "indexfile":
		next.IndexFile = value
	case "datasetsoptions":
		next.DatasetsOptions = value
	case "excludes":
		next.Excludes = splitList(value)
	case "includeexcludedremovals":
		next.IncludeExcludedRemovals = parseBool(value)
	case "transfermode":
		next.TransferMode = strings.ToLower(value)
	case "timeout":
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeout must be an integer number of seconds")
		}
		next.Timeout = timeout
	case "defaultoutputformat":
		next.DefaultOutputFormat = types.OutputFormat(value)
	case "loglevel":
		next.LogLevel = value
	case "coloroutput":
		next.ColorOutput = parseBool(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// GetTimeout returns the FTP command timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "zsync"), nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
