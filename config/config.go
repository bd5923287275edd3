package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config represents the application configuration
type Config struct {
	General struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Version     string `yaml:"version"`
	} `yaml:"general"`

	Logging LoggingConfig `yaml:"logging"`

	Settings SettingsStoreConfig `yaml:"settings"`
	Sources  SourcesConfig       `yaml:"sources"`

	Monitor MonitorConfig `yaml:"monitor"`
	API     APIConfig     `yaml:"api"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// MonitorConfig controls the refresh cycle; Interval is in seconds
type MonitorConfig struct {
	Interval int `yaml:"interval"`
}

// APIConfig controls the HTTP backend
type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig controls the logger built at startup
type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose"`
}

// SettingsStoreConfig selects where detection thresholds are persisted
type SettingsStoreConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// SourceConfig represents configuration for a data source
type SourceConfig struct {
	Type        string `yaml:"type"`
	Path        string `yaml:"path"`
	URL         string `yaml:"url"`
	Timeout     int    `yaml:"timeout"`
	MaxFailures int    `yaml:"maxFailures"`
}

// SourcesConfig holds the log and alert sources
type SourcesConfig struct {
	Logs   SourceConfig `yaml:"logs"`
	Alerts SourceConfig `yaml:"alerts"`
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (*Config, error) {
	// Get absolute file path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Check if file exists
	_, err = os.Stat(absPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, applies defaults and validates it
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Set defaults for missing values
	setDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults fills in default values for missing configuration
func setDefaults(config *Config) {
	// General defaults
	if config.General.Name == "" {
		config.General.Name = "Cryon SOC"
	}
	if config.General.Version == "" {
		config.General.Version = "0.2.0"
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}

	// Settings store defaults
	if config.Settings.Type == "" {
		config.Settings.Type = "memory"
	}
	if config.Settings.Type == "redis" {
		if config.Settings.Port == 0 {
			config.Settings.Port = 6379
		}
		if config.Settings.Key == "" {
			config.Settings.Key = "cryon:settings"
		}
	}

	// Source defaults
	if config.Sources.Logs.Type == "" {
		config.Sources.Logs.Type = "file"
		if config.Sources.Logs.Path == "" {
			config.Sources.Logs.Path = "logs.json"
		}
	}
	if config.Sources.Alerts.Type == "" {
		config.Sources.Alerts.Type = "derived"
	}
	for _, source := range []*SourceConfig{&config.Sources.Logs, &config.Sources.Alerts} {
		if source.Timeout == 0 {
			source.Timeout = 3
		}
		if source.MaxFailures == 0 {
			source.MaxFailures = 3
		}
	}

	// Monitor defaults
	if config.Monitor.Interval == 0 {
		config.Monitor.Interval = 5
	}

	// API defaults
	if config.API.Port == 0 {
		config.API.Port = 5000
	}
}

// validateConfig checks if the configuration is valid
func validateConfig(config *Config) error {
	switch config.Settings.Type {
	case "memory":
		// No additional validation needed
	case "file":
		if config.Settings.Path == "" {
			return fmt.Errorf("file settings store requires a path")
		}
	case "redis":
		if config.Settings.Host == "" {
			return fmt.Errorf("redis settings store requires a host")
		}
	default:
		return fmt.Errorf("unknown settings store type: %s", config.Settings.Type)
	}

	if err := validateSource("logs", config.Sources.Logs, false); err != nil {
		return err
	}
	if err := validateSource("alerts", config.Sources.Alerts, true); err != nil {
		return err
	}

	if config.Monitor.Interval < 0 {
		return fmt.Errorf("monitor interval must be positive")
	}

	return nil
}

func validateSource(name string, source SourceConfig, allowDerived bool) error {
	switch source.Type {
	case "file":
		if source.Path == "" {
			return fmt.Errorf("%s file source requires a path", name)
		}
	case "http":
		if source.URL == "" {
			return fmt.Errorf("%s http source requires a url", name)
		}
	case "none":
	case "derived":
		if !allowDerived {
			return fmt.Errorf("%s source cannot be derived", name)
		}
	default:
		return fmt.Errorf("unknown %s source type: %s", name, source.Type)
	}

	if source.Timeout < 0 {
		return fmt.Errorf("%s source has a negative timeout", name)
	}
	return nil
}

// SaveConfig writes the configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	return nil
}

// CreateDefaultConfig generates a default configuration file
func CreateDefaultConfig(path string) error {
	config := &Config{}

	config.General.Name = "Cryon SOC"
	config.General.Description = "Campus security activity monitor"
	config.General.Version = "0.2.0"

	config.Logging.Level = "info"
	config.Logging.Format = "text"

	config.Settings.Type = "file"
	config.Settings.Path = "settings.json"

	config.Sources.Logs = SourceConfig{Type: "file", Path: "logs.json", Timeout: 3, MaxFailures: 3}
	config.Sources.Alerts = SourceConfig{Type: "derived", Timeout: 3, MaxFailures: 3}

	config.Monitor.Interval = 5

	config.API.Enabled = true
	config.API.Port = 5000

	config.Metrics.Enabled = true

	return SaveConfig(config, path)
}
