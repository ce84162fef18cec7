package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration. Every empirically tuned analytic
// constant lives here as a validated default; the analytic packages never hide
// thresholds in code.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Registry    RegistryConfig    `toml:"registry"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Clustering  ClusteringConfig  `toml:"clustering"`
	Correlation CorrelationConfig `toml:"correlation"`
	Baseline    BaselineConfig    `toml:"baseline"`
	Convergence ConvergenceConfig `toml:"convergence"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Signals     SignalsConfig     `toml:"signals"`
	Ingest      IngestConfig      `toml:"ingest"`
}

type ServerConfig struct {
	Host string `toml:"host" validate:"required"`
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output" validate:"min=1,dive,oneof=stdout console file"`
}

// RegistryConfig locates the static entity knowledge base.
type RegistryConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

type PipelineConfig struct {
	Schedule     string `toml:"schedule" validate:"required"`      // cron expression
	CycleTimeout string `toml:"cycle_timeout" validate:"required"` // bounded wait for the worker pool
	Workers      int    `toml:"workers" validate:"gte=1"`
	Warmup       string `toml:"warmup" validate:"required"` // learning-mode duration after start
}

// CycleTimeoutDuration parses the configured cycle timeout.
func (p PipelineConfig) CycleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(p.CycleTimeout)
	return d
}

// WarmupDuration parses the configured warm-up window.
func (p PipelineConfig) WarmupDuration() time.Duration {
	d, _ := time.ParseDuration(p.Warmup)
	return d
}

type ClusteringConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold" validate:"gt=0,lte=1"`
	MinTokenLength      int     `toml:"min_token_length" validate:"gte=1"`
	VelocityThreshold   float64 `toml:"velocity_threshold" validate:"gt=0"` // sources/hour before a velocity detection fires
	MinClusterSize      int     `toml:"min_cluster_size" validate:"gte=2"`
}

type CorrelationConfig struct {
	MoveThresholdPct float64 `toml:"move_threshold_pct" validate:"gt=0"`
}

type BaselineConfig struct {
	MinSamples int     `toml:"min_samples" validate:"gte=2"`
	SpikeZ     float64 `toml:"spike_z" validate:"gt=0"`
	ElevatedZ  float64 `toml:"elevated_z" validate:"gt=0"`
	QuietZ     float64 `toml:"quiet_z" validate:"lt=0"`
}

type ConvergenceConfig struct {
	CellSizeDeg float64 `toml:"cell_size_deg" validate:"gt=0"`
	WindowHours int     `toml:"window_hours" validate:"gt=0"`
	MinKinds    int     `toml:"min_kinds" validate:"gte=2"`
}

type ScoringConfig struct {
	// NewsVolumeThreshold is the calibrated media-volume level above which
	// log10 damping is applied to unrest and information raw scores.
	NewsVolumeThreshold int `toml:"news_volume_threshold" validate:"gt=0"`
	// Floors maps country code to a configured minimum composite, applied
	// after the full calculation (active-conflict countries).
	Floors map[string]int `toml:"floors" validate:"dive,gte=0,lte=100"`
}

type SignalsConfig struct {
	TTLMarket     string `toml:"ttl_market" validate:"required"`     // market-divergence-class kinds
	TTLPrediction string `toml:"ttl_prediction" validate:"required"` // prediction-market leading
	TTLDefault    string `toml:"ttl_default" validate:"required"`    // everything else
	// DefaultConfidence maps signal kind to the confidence used when the
	// detection does not carry one.
	DefaultConfidence map[string]float64 `toml:"default_confidence" validate:"dive,gte=0,lte=1"`
}

type IngestConfig struct {
	MaxBatchSize  int     `toml:"max_batch_size" validate:"gt=0"`
	RatePerSecond float64 `toml:"rate_per_second" validate:"gt=0"` // per source family
	Burst         int     `toml:"burst" validate:"gt=0"`
}

// NewDefaultConfig returns the configuration defaults. The analytic thresholds
// are the empirically tuned values from the source calibration, not values to
// silently improve.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8960,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/meridian",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Registry: RegistryConfig{
			Dir: "./entities",
		},
		Pipeline: PipelineConfig{
			Schedule:     "*/5 * * * *",
			CycleTimeout: "2m",
			Workers:      4,
			Warmup:       "15m",
		},
		Clustering: ClusteringConfig{
			SimilarityThreshold: 0.5,
			MinTokenLength:      3,
			VelocityThreshold:   3.0,
			MinClusterSize:      3,
		},
		Correlation: CorrelationConfig{
			MoveThresholdPct: 2.0,
		},
		Baseline: BaselineConfig{
			MinSamples: 6,
			SpikeZ:     2.5,
			ElevatedZ:  1.5,
			QuietZ:     -2.0,
		},
		Convergence: ConvergenceConfig{
			CellSizeDeg: 1.0,
			WindowHours: 24,
			MinKinds:    3,
		},
		Scoring: ScoringConfig{
			NewsVolumeThreshold: 50,
			Floors:              map[string]int{},
		},
		Signals: SignalsConfig{
			TTLMarket:         "6h",
			TTLPrediction:     "2h",
			TTLDefault:        "30m",
			DefaultConfidence: map[string]float64{},
		},
		Ingest: IngestConfig{
			MaxBatchSize:  2000,
			RatePerSecond: 10,
			Burst:         20,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural validity plus the cross-field rules the tag
// language cannot express. Failure here is fatal at startup and never raised
// mid-cycle.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, value := range map[string]string{
		"pipeline.cycle_timeout": c.Pipeline.CycleTimeout,
		"pipeline.warmup":        c.Pipeline.Warmup,
		"signals.ttl_market":     c.Signals.TTLMarket,
		"signals.ttl_prediction": c.Signals.TTLPrediction,
		"signals.ttl_default":    c.Signals.TTLDefault,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	if c.Baseline.ElevatedZ >= c.Baseline.SpikeZ {
		return fmt.Errorf("invalid configuration: baseline.elevated_z must be below baseline.spike_z")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("MERIDIAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MERIDIAN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if badgerPath := os.Getenv("MERIDIAN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if registryDir := os.Getenv("MERIDIAN_REGISTRY_DIR"); registryDir != "" {
		config.Registry.Dir = registryDir
	}
	if level := os.Getenv("MERIDIAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MERIDIAN_LOG_OUTPUT"); output != "" {
		parts := strings.Split(output, ",")
		outputs := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if schedule := os.Getenv("MERIDIAN_PIPELINE_SCHEDULE"); schedule != "" {
		config.Pipeline.Schedule = schedule
	}
	if warmup := os.Getenv("MERIDIAN_PIPELINE_WARMUP"); warmup != "" {
		config.Pipeline.Warmup = warmup
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
