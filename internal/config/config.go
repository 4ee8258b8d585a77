package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jgoulah/energygoal/internal/widget"
)

// Config holds the application configuration
type Config struct {
	Widget        widget.Options `yaml:"widget,omitempty"`
	DatabasePath  string         `yaml:"database_path,omitempty"` // Default: data.db
	Server        ServerConfig   `yaml:"server,omitempty"`
	Browser       BrowserConfig  `yaml:"browser,omitempty"`
	MQTT          MQTTConfig     `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig       `yaml:"home_assistant,omitempty"`
	LogLevel      string         `yaml:"log_level,omitempty"` // debug, info, warn or error
}

// ServerConfig holds the HTTP widget server settings
type ServerConfig struct {
	Addr            string `yaml:"addr,omitempty"`             // Default: :8080
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"` // Go duration, default: 10s
}

// BrowserConfig holds headless Chrome settings for the browser sink
type BrowserConfig struct {
	Visible bool   `yaml:"visible,omitempty"`
	Timeout string `yaml:"timeout,omitempty"` // Go duration, default: 30s
}

// MQTTConfig holds MQTT broker settings for publishing widget status
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // e.g., "homeassistant.local:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // Default: energy_goal
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`                     // e.g., "http://homeassistant.local:8123"
	Token        string `yaml:"token"`                   // Long-lived access token
	EntityPrefix string `yaml:"entity_prefix,omitempty"` // Default: sensor.energy_goal_
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Default returns a config with every setting spelled out at its default,
// used as the starting point for a new config file
func Default() *Config {
	var c Config
	return &Config{
		Widget:       c.WidgetOptions(),
		DatabasePath: c.GetDatabasePath(),
		Server: ServerConfig{
			Addr:            c.GetServerAddr(),
			ShutdownTimeout: c.GetShutdownTimeout().String(),
		},
		Browser: BrowserConfig{
			Timeout: c.GetBrowserTimeout().String(),
		},
		MQTT: MQTTConfig{
			TopicPrefix: c.GetTopicPrefix(),
		},
		HomeAssistant: HAConfig{
			EntityPrefix: c.GetEntityPrefix(),
		},
		LogLevel: c.GetLogLevel(),
	}
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Validate checks the settings that can be checked without side effects
func (c *Config) Validate() error {
	if err := c.WidgetOptions().Validate(); err != nil {
		return fmt.Errorf("widget: %w", err)
	}
	if _, err := parseDuration(c.Server.ShutdownTimeout, 0); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if _, err := parseDuration(c.Browser.Timeout, 0); err != nil {
		return fmt.Errorf("browser.timeout: %w", err)
	}
	return nil
}

// WidgetOptions returns the widget options with defaults applied
func (c *Config) WidgetOptions() widget.Options {
	return c.Widget.WithDefaults()
}

// GetDatabasePath returns the database file path, default data.db
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == "" {
		return "data.db"
	}
	return c.DatabasePath
}

// GetServerAddr returns the HTTP listen address, default :8080
func (c *Config) GetServerAddr() string {
	if c.Server.Addr == "" {
		return ":8080"
	}
	return c.Server.Addr
}

// GetShutdownTimeout returns the server drain timeout, default 10s
func (c *Config) GetShutdownTimeout() time.Duration {
	d, _ := parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
	return d
}

// GetBrowserTimeout returns the per-operation browser timeout, default 30s
func (c *Config) GetBrowserTimeout() time.Duration {
	d, _ := parseDuration(c.Browser.Timeout, 30*time.Second)
	return d
}

// GetTopicPrefix returns the MQTT topic prefix, default energy_goal
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "energy_goal"
	}
	return c.MQTT.TopicPrefix
}

// GetEntityPrefix returns the Home Assistant entity id prefix
func (c *Config) GetEntityPrefix() string {
	if c.HomeAssistant.EntityPrefix == "" {
		return "sensor.energy_goal_"
	}
	return c.HomeAssistant.EntityPrefix
}

// GetLogLevel returns the log level, default info
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def, err
	}
	if d <= 0 {
		return def, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
