package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the device configuration, loaded from YAML at startup.
type Config struct {
	Cloud    CloudConfig    `yaml:"cloud"`
	Mqtt     MqttConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Profiles []Profile      `yaml:"profiles"`
}

// CloudConfig contains the time-series endpoint settings.
type CloudConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	PostInterval    time.Duration `yaml:"post_interval"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectDelay    time.Duration `yaml:"connect_delay"`
}

// MqttConfig enables the optional broker sink when Broker is set.
type MqttConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// DatabaseConfig enables the optional readings table when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Profile is one plant calibration record. Raw soil counts are higher when
// the soil is drier, so DrySoil must sit above WetSoil.
type Profile struct {
	Name      string `yaml:"name"`
	DrySoil   int    `yaml:"dry_soil"`
	WetSoil   int    `yaml:"wet_soil"`
	ChannelID uint64 `yaml:"channel_id"`
	WriteKey  string `yaml:"write_key"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Cloud: CloudConfig{
			BaseURL:         "https://api.thingspeak.com",
			Timeout:         30 * time.Second,
			PostInterval:    30 * time.Second,
			ConnectAttempts: 20,
			ConnectDelay:    500 * time.Millisecond,
		},
		Mqtt: MqttConfig{
			ClientID: "plantmon",
			Topic:    "plantmon/readings",
		},
	}
}

// Load reads the configuration from the given path. A missing file is not
// an error: the defaults are returned so the device can still boot far
// enough to show what is wrong.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the loaded configuration before the control loop starts.
func (c *Config) Validate() error {
	if c.Cloud.BaseURL == "" {
		return fmt.Errorf("config: cloud base_url must be set")
	}
	if c.Cloud.PostInterval <= 0 {
		return fmt.Errorf("config: cloud post_interval must be positive")
	}
	if c.Cloud.ConnectAttempts <= 0 || c.Cloud.ConnectDelay <= 0 {
		return fmt.Errorf("config: cloud connect_attempts and connect_delay must be positive")
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("config: at least one plant profile is required")
	}
	for i, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("config: profile %d: name must be set", i)
		}
		if p.DrySoil <= p.WetSoil {
			return fmt.Errorf("config: profile %q: dry_soil (%d) must be above wet_soil (%d)",
				p.Name, p.DrySoil, p.WetSoil)
		}
		if p.ChannelID == 0 {
			return fmt.Errorf("config: profile %q: channel_id must be set", p.Name)
		}
		if p.WriteKey == "" {
			return fmt.Errorf("config: profile %q: write_key must be set", p.Name)
		}
	}
	return nil
}
