// =============================================================================
// Workflow processor configuration loader
// =============================================================================
// Unified configuration loading: defaults, then YAML file, then environment
// variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("WORKFLOWPROC").
//	    Load()
//
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/workflowproc/dispatch"
)

// Config is the complete configuration of the workflow processor.
type Config struct {
	// Engine holds the executor defaults applied when a request omits options.
	Engine EngineConfig `yaml:"engine"`

	// Dispatcher configures the dispatcher middleware stack.
	Dispatcher DispatcherConfig `yaml:"dispatcher"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig holds the engine-level execution defaults.
type EngineConfig struct {
	// MaxParallel is the default batch concurrency cap.
	MaxParallel int `yaml:"max_parallel"`
	// MaxFailures is the default batch circuit-breaker threshold.
	MaxFailures int `yaml:"max_failures"`
	// Atomic is the default for halting-failure compensation.
	Atomic bool `yaml:"atomic"`
}

// DispatcherConfig configures optional dispatcher middleware.
type DispatcherConfig struct {
	// RateLimit is the dispatcher call budget per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the token bucket size when RateLimit is set.
	RateBurst int `yaml:"rate_burst"`
	// BreakerEnabled turns on the per-tool circuit breaker.
	BreakerEnabled bool `yaml:"breaker_enabled"`
	// Breaker holds the per-tool circuit breaker settings.
	Breaker dispatch.BreakerConfig `yaml:"breaker"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
	// OutputPaths are zap output sinks.
	OutputPaths []string `yaml:"output_paths"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxParallel: 3,
			MaxFailures: 10,
			Atomic:      true,
		},
		Dispatcher: DispatcherConfig{
			RateLimit:      0,
			RateBurst:      1,
			BreakerEnabled: false,
			Breaker:        dispatch.DefaultBreakerConfig(),
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stderr"},
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "workflowproc",
			Addr:      ":9090",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "workflowproc",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Loader loads configuration with defaults → YAML file → env precedence.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a Loader with no file and no env prefix.
func NewLoader() *Loader {
	return &Loader{}
}

// WithConfigPath sets the YAML file to load. Empty means defaults only.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix enables environment overrides under the given prefix,
// e.g. WORKFLOWPROC_ENGINE_MAX_PARALLEL.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load builds the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", l.configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.configPath, err)
		}
	}

	if l.envPrefix != "" {
		if err := l.applyEnv(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxParallel <= 0 {
		return fmt.Errorf("engine.max_parallel must be positive, got %d", c.Engine.MaxParallel)
	}
	if c.Engine.MaxFailures <= 0 {
		return fmt.Errorf("engine.max_failures must be positive, got %d", c.Engine.MaxFailures)
	}
	if c.Dispatcher.RateLimit < 0 {
		return fmt.Errorf("dispatcher.rate_limit must not be negative, got %f", c.Dispatcher.RateLimit)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	var err error
	set := func(key string, apply func(string) error) {
		if err != nil {
			return
		}
		if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
			if applyErr := apply(v); applyErr != nil {
				err = fmt.Errorf("env %s_%s: %w", l.envPrefix, key, applyErr)
			}
		}
	}

	set("ENGINE_MAX_PARALLEL", intVar(&cfg.Engine.MaxParallel))
	set("ENGINE_MAX_FAILURES", intVar(&cfg.Engine.MaxFailures))
	set("ENGINE_ATOMIC", boolVar(&cfg.Engine.Atomic))

	set("DISPATCHER_RATE_LIMIT", floatVar(&cfg.Dispatcher.RateLimit))
	set("DISPATCHER_RATE_BURST", intVar(&cfg.Dispatcher.RateBurst))
	set("DISPATCHER_BREAKER_ENABLED", boolVar(&cfg.Dispatcher.BreakerEnabled))
	set("DISPATCHER_BREAKER_FAILURE_THRESHOLD", intVar(&cfg.Dispatcher.Breaker.FailureThreshold))
	set("DISPATCHER_BREAKER_RECOVERY_TIMEOUT", durationVar(&cfg.Dispatcher.Breaker.RecoveryTimeout))

	set("LOG_LEVEL", stringVar(&cfg.Log.Level))
	set("LOG_FORMAT", stringVar(&cfg.Log.Format))

	set("METRICS_ENABLED", boolVar(&cfg.Metrics.Enabled))
	set("METRICS_NAMESPACE", stringVar(&cfg.Metrics.Namespace))
	set("METRICS_ADDR", stringVar(&cfg.Metrics.Addr))

	set("TELEMETRY_ENABLED", boolVar(&cfg.Telemetry.Enabled))
	set("TELEMETRY_SERVICE_NAME", stringVar(&cfg.Telemetry.ServiceName))
	set("TELEMETRY_OTLP_ENDPOINT", stringVar(&cfg.Telemetry.OTLPEndpoint))
	set("TELEMETRY_SAMPLE_RATE", floatVar(&cfg.Telemetry.SampleRate))

	return err
}

func stringVar(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func intVar(dst *int) func(string) error {
	return func(v string) error {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	}
}

func boolVar(dst *bool) func(string) error {
	return func(v string) error {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	}
}

func floatVar(dst *float64) func(string) error {
	return func(v string) error {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	}
}

func durationVar(dst *time.Duration) func(string) error {
	return func(v string) error {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	}
}
