package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig points the client at its backend.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. "http://localhost:8787".
	BaseURL string `yaml:"base_url"`
	// Transport selects the event-stream framing: "sse" or "websocket".
	Transport string `yaml:"transport"`
	// Timeout bounds non-streaming requests.
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond throttles outgoing calls; 0 disables the limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Breaker tunes the circuit breaker around backend calls.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the gateway circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

// LoggerConfig controls structured logging.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
	Output string `yaml:"output"` // stdout|stderr|<file path>
}

// TracerConfig controls OpenTelemetry tracing.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout|noop
}

// UIConfig holds terminal front-end settings.
type UIConfig struct {
	// HistoryLimit caps the history picker listing.
	HistoryLimit int `yaml:"history_limit"`
	// Markdown toggles glamour rendering of assistant prose.
	Markdown bool `yaml:"markdown"`
}

// Config is the top-level application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
	UI     UIConfig     `yaml:"ui"`
}

// Defaults returns the baseline configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:   "http://localhost:8787",
			Transport: "sse",
			Timeout:   15 * time.Second,
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
		UI:     UIConfig{HistoryLimit: 50, Markdown: true},
	}
}

// Load reads the config file at path, applies PENNY_* env overrides and
// validates. A missing file is not an error: defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PENNY_SERVER_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("PENNY_SERVER_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("PENNY_SERVER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.Timeout = d
		}
	}
	if v := os.Getenv("PENNY_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PENNY_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("PENNY_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("PENNY_TRACER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracer.Enabled = b
		}
	}
	if v := os.Getenv("PENNY_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// Validate rejects configurations the client cannot run with.
func Validate(cfg *Config) error {
	if cfg.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	switch cfg.Server.Transport {
	case "sse", "websocket":
	default:
		return fmt.Errorf("server.transport must be sse or websocket, got %q", cfg.Server.Transport)
	}
	if cfg.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	switch cfg.Logger.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logger.level %q not recognized", cfg.Logger.Level)
	}
	if cfg.UI.HistoryLimit < 0 {
		return fmt.Errorf("ui.history_limit must not be negative")
	}
	return nil
}
