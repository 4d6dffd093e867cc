// Package config loads the indexer configuration from an optional YAML file
// with ${ENV} interpolation, environment variable overrides, and a local
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the indexer consumes.
type Config struct {
	// Store and fetch source
	DatabaseURL string `yaml:"database_url"`
	NodeURL     string `yaml:"node_url"`

	// Processor selection; unknown names fail at startup
	Processor string `yaml:"processor"`

	// Pipeline tunables
	ProcessorTasks      int     `yaml:"processor_tasks"`
	BatchSize           uint16  `yaml:"batch_size"`
	EmitEvery           uint64  `yaml:"emit_every"`
	GapLookbackVersions uint64  `yaml:"gap_lookback_versions"`
	StartingVersion     *uint64 `yaml:"starting_version,omitempty"`
	CheckChainID        bool    `yaml:"check_chain_id"`

	// Observability
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads the YAML file at path (if it exists), interpolates ${ENV}
// references, applies environment overrides, and validates. A .env file
// next to the config is loaded first.
func Load(path string) (*Config, error) {
	if path != "" {
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	} else {
		_ = godotenv.Load()
	}

	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			interpolated := envPattern.ReplaceAllStringFunc(string(raw), func(m string) string {
				return os.Getenv(envPattern.FindStringSubmatch(m)[1])
			})
			if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Processor:           "marketplace_processor",
		ProcessorTasks:      5,
		BatchSize:           500,
		EmitEvery:           1000,
		GapLookbackVersions: 1_500_000,
		CheckChainID:        true,
		LogLevel:            "info",
		MetricsAddr:         ":9090",
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.NodeURL = getEnv("NODE_URL", cfg.NodeURL)
	cfg.Processor = getEnv("PROCESSOR", cfg.Processor)
	cfg.ProcessorTasks = getEnvAsInt("PROCESSOR_TASKS", cfg.ProcessorTasks)
	cfg.BatchSize = getEnvAsUint16("BATCH_SIZE", cfg.BatchSize)
	cfg.EmitEvery = getEnvAsUint64("EMIT_EVERY", cfg.EmitEvery)
	cfg.GapLookbackVersions = getEnvAsUint64("GAP_LOOKBACK_VERSIONS", cfg.GapLookbackVersions)
	cfg.CheckChainID = getEnvAsBool("CHECK_CHAIN_ID", cfg.CheckChainID)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)

	if v := os.Getenv("STARTING_VERSION"); v != "" {
		if version, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StartingVersion = &version
		}
	}
}

// Validate checks that the required settings are present and sane.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.NodeURL == "" {
		return errors.New("node_url is required")
	}
	if c.Processor == "" {
		return errors.New("processor is required")
	}
	if c.ProcessorTasks < 1 {
		return fmt.Errorf("processor_tasks must be at least 1, got %d", c.ProcessorTasks)
	}
	if c.BatchSize == 0 {
		return errors.New("batch_size must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsUint16(key string, defaultVal uint16) uint16 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseUint(valStr, 10, 16)
	if err != nil {
		return defaultVal
	}
	return uint16(val)
}

func getEnvAsUint64(key string, defaultVal uint64) uint64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseUint(valStr, 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
