// Package config loads service configuration from an optional YAML or JSON
// file followed by environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/chargeopt/chargeopt/internal/database"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: APP_SERVER__PORT sets server.port.
const EnvPrefix = "APP_"

// wellKnownEnv maps conventional variable names onto config keys.
var wellKnownEnv = map[string]string{
	"PORT":                        "server.port",
	"REQUIRE_TLS":                 "server.require_tls",
	"OPENWEATHER_API_KEY":         "weather.api_key",
	"GOOGLE_MAPS_API_KEY":         "maps.api_key",
	"CLAUDE_API_KEY":              "assistant.api_key",
	"ANTHROPIC_API_KEY":           "assistant.api_key",
	"OTEL_ENABLED":                "telemetry.enabled",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "telemetry.endpoint",
	"STATIONS_CSV":                "stations.csv_path",
	"MODELS_DIR":                  "models.dir",
}

// Config is the complete service configuration.
type Config struct {
	Env       string          `json:"env"`
	Server    ServerConfig    `json:"server"`
	Weather   WeatherConfig   `json:"weather"`
	Maps      MapsConfig      `json:"maps"`
	Assistant AssistantConfig `json:"assistant"`
	Stations  StationsConfig  `json:"stations"`
	Models    ModelsConfig    `json:"models"`
	Optimizer OptimizerConfig `json:"optimizer"`
	Worker    WorkerConfig    `json:"worker"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Database  database.Config `json:"database"`
}

type ServerConfig struct {
	Port            int           `json:"port"`
	Debug           bool          `json:"debug"`
	RequireTLS      bool          `json:"require_tls"`
	PrettyLogs      bool          `json:"pretty_logs"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	CORSOrigins     []string      `json:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type WeatherConfig struct {
	APIKey   string        `json:"api_key"`
	BaseURL  string        `json:"base_url"`
	Timeout  time.Duration `json:"timeout"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

type MapsConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type AssistantConfig struct {
	APIKey    string `json:"api_key"`
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
}

// StationsConfig selects where the station dataset is loaded from.
type StationsConfig struct {
	// Source is "csv" or "postgres".
	Source  string `json:"source"`
	CSVPath string `json:"csv_path"`
}

type ModelsConfig struct {
	Dir string `json:"dir"`
}

type OptimizerConfig struct {
	Timezone    string        `json:"timezone"`
	SiteLat     float64       `json:"site_lat"`
	SiteLon     float64       `json:"site_lon"`
	MaxPowerKW  float64       `json:"max_power_kw"`
	MaxWindow   time.Duration `json:"max_window"`
	Concurrency int           `json:"concurrency"`
}

// Location resolves Timezone.
func (o OptimizerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(o.Timezone)
}

type WorkerConfig struct {
	Enabled     bool          `json:"enabled"`
	Interval    time.Duration `json:"interval"`
	Concurrency int           `json:"concurrency"`
}

type TelemetryConfig struct {
	Enabled     bool    `json:"enabled"`
	Endpoint    string  `json:"endpoint"`
	SampleRatio float64 `json:"sample_ratio"`
}

// Load reads path (if non-empty) and then the environment. Database settings
// start from database.ConfigFromEnv so the DB_* variables keep working.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return wellKnownEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Config{Database: database.ConfigFromEnv()}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every zero field.
func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	if c.Weather.Timeout == 0 {
		c.Weather.Timeout = 5 * time.Second
	}
	if c.Weather.CacheTTL == 0 {
		c.Weather.CacheTTL = 10 * time.Minute
	}

	if c.Assistant.MaxTokens == 0 {
		c.Assistant.MaxTokens = 500
	}

	if c.Stations.Source == "" {
		c.Stations.Source = "csv"
	}
	if c.Stations.Source == "csv" && c.Stations.CSVPath == "" {
		c.Stations.CSVPath = "data/ev_stations.csv"
	}

	if c.Models.Dir == "" {
		c.Models.Dir = "models"
	}

	if c.Optimizer.Timezone == "" {
		c.Optimizer.Timezone = "America/Los_Angeles"
	}
	if c.Optimizer.SiteLat == 0 && c.Optimizer.SiteLon == 0 {
		c.Optimizer.SiteLat, c.Optimizer.SiteLon = 34.0522, -118.2437
	}
	if c.Optimizer.MaxPowerKW == 0 {
		c.Optimizer.MaxPowerKW = 50
	}
	if c.Optimizer.MaxWindow == 0 {
		c.Optimizer.MaxWindow = 14 * 24 * time.Hour
	}
	if c.Optimizer.Concurrency == 0 {
		c.Optimizer.Concurrency = 8
	}

	if c.Worker.Interval == 0 {
		c.Worker.Interval = 10 * time.Minute
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 3
	}

	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4317"
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = 1
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Stations.Source {
	case "csv":
		if c.Stations.CSVPath == "" {
			errs = append(errs, errors.New("stations.csv_path is required for the csv source"))
		}
	case "postgres":
	default:
		errs = append(errs, fmt.Errorf("stations.source must be csv or postgres, got %q", c.Stations.Source))
	}

	if _, err := c.Optimizer.Location(); err != nil {
		errs = append(errs, fmt.Errorf("optimizer.timezone: %w", err))
	}
	if c.Optimizer.SiteLat < -90 || c.Optimizer.SiteLat > 90 || c.Optimizer.SiteLon < -180 || c.Optimizer.SiteLon > 180 {
		errs = append(errs, errors.New("optimizer site coordinates out of range"))
	}
	if c.Optimizer.MaxPowerKW < 0 {
		errs = append(errs, errors.New("optimizer.max_power_kw must be positive"))
	}
	if c.Optimizer.MaxWindow < time.Hour {
		errs = append(errs, errors.New("optimizer.max_window must be at least 1h"))
	}

	if c.Assistant.MaxTokens < 0 {
		errs = append(errs, errors.New("assistant.max_tokens must be positive"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio must be within [0,1]"))
	}

	return errors.Join(errs...)
}
