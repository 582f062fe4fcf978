package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultBaseTopic       = "harmony_helper"
	DefaultHTTPAddr        = "0.0.0.0:8000"
	DefaultCallTimeout     = 10 * time.Second
	DefaultRetention       = 7 * 24 * time.Hour
	DefaultCleanupSchedule = "0 3 * * *"
)

// Config is the root configuration, loaded from YAML and overridden by the environment.
type Config struct {
	LogLevel      string                  `yaml:"log_level" env:"LOG_LEVEL"`
	HomeAssistant HomeAssistantConfig     `yaml:"home_assistant"`
	MqttCfg       MqttConfig              `yaml:"mqtt"`
	HTTP          HTTPConfig              `yaml:"http"`
	Database      DatabaseConfig          `yaml:"database"`
	Influx        InfluxConfig            `yaml:"influxdb"`
	Helpers       map[string]HelperConfig `yaml:"helpers"`
}

type HomeAssistantConfig struct {
	URL                string        `yaml:"url" env:"HA_URL"`
	Token              string        `yaml:"token" env:"HA_TOKEN"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" env:"HA_INSECURE_SKIP_VERIFY"`
	CallTimeout        time.Duration `yaml:"call_timeout" env:"HA_CALL_TIMEOUT"`
}

type MqttConfig struct {
	Host            string `yaml:"host" env:"MQTT_HOST"`
	Username        string `yaml:"username" env:"MQTT_USER"`
	Password        string `yaml:"password" env:"MQTT_PASS"`
	ClientID        string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
	DiscoveryPrefix string `yaml:"discovery_prefix" env:"MQTT_DISCOVERY_PREFIX"`
	BaseTopic       string `yaml:"base_topic" env:"MQTT_BASE_TOPIC"`
}

// Enabled reports whether a broker is configured.
func (c MqttConfig) Enabled() bool {
	return c.Host != ""
}

type HTTPConfig struct {
	Addr      string `yaml:"addr" env:"HTTP_ADDR"`
	JWTSecret string `yaml:"jwt_secret" env:"API_JWT_SECRET"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"DATABASE_URL"`
	Retention       time.Duration `yaml:"retention" env:"DATABASE_RETENTION"`
	CleanupSchedule string        `yaml:"cleanup_schedule" env:"DATABASE_CLEANUP_SCHEDULE"`
}

// Enabled reports whether the state history store is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

type InfluxConfig struct {
	URL    string `yaml:"url" env:"INFLUX_URL"`
	Token  string `yaml:"token" env:"INFLUX_TOKEN"`
	Org    string `yaml:"org" env:"INFLUX_ORG"`
	Bucket string `yaml:"bucket" env:"INFLUX_BUCKET"`
}

// Enabled reports whether sensor states are also written to InfluxDB.
func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

// Load reads the YAML file at path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and environment overrides, then validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.HomeAssistant.CallTimeout <= 0 {
		c.HomeAssistant.CallTimeout = DefaultCallTimeout
	}
	if c.MqttCfg.DiscoveryPrefix == "" {
		c.MqttCfg.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if c.MqttCfg.BaseTopic == "" {
		c.MqttCfg.BaseTopic = DefaultBaseTopic
	}
	if c.MqttCfg.ClientID == "" {
		c.MqttCfg.ClientID = DefaultBaseTopic
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.Database.Retention <= 0 {
		c.Database.Retention = DefaultRetention
	}
	if c.Database.CleanupSchedule == "" {
		c.Database.CleanupSchedule = DefaultCleanupSchedule
	}
}
