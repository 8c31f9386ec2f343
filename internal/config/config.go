package config

import (
	"math"
	"os"
	"strconv"
	"strings"

	"gaussfit/domain/marks"
	"gaussfit/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Simplex  SimplexConfig
	Server   ServerConfig
	LogLevel string
}

// AnalysisConfig holds the per-run analysis choices
type AnalysisConfig struct {
	ClampOutOfRange bool
	Rescale         marks.RescaleSpec
	BinWidth        float64 // 0 means use the suggested width
}

// SimplexConfig holds Nelder–Mead settings
type SimplexConfig struct {
	MaxIterations int
	Tolerance     float64
	Restarts      int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port                  string
	MaxConcurrentAnalyses int
}

// Default values
const (
	DefaultMaxIterations = 3000
	DefaultTolerance     = 1e-9
	DefaultRestarts      = 1
	DefaultPort          = "8080"
	DefaultMaxConcurrent = 4
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	analysisConfig, err := loadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}
	config.Analysis = *analysisConfig

	config.Simplex = *loadSimplexConfig()
	config.Server = *loadServerConfig()
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{Rescale: marks.RescaleSpec{Mode: marks.RescaleNone, Factor: 1, Mean: math.NaN(), SD: math.NaN()}},
		Simplex: SimplexConfig{
			MaxIterations: DefaultMaxIterations,
			Tolerance:     DefaultTolerance,
			Restarts:      DefaultRestarts,
		},
		Server: ServerConfig{
			Port:                  DefaultPort,
			MaxConcurrentAnalyses: DefaultMaxConcurrent,
		},
		LogLevel: "INFO",
	}
}

func loadAnalysisConfig() (*AnalysisConfig, error) {
	mode, err := marks.ParseRescaleMode(getEnvOrDefault("GAUSSFIT_RESCALE_MODE", "none"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}

	binWidth, err := ParseBinWidth(getEnvOrDefault("GAUSSFIT_BIN_WIDTH", "auto"))
	if err != nil {
		return nil, err
	}

	return &AnalysisConfig{
		ClampOutOfRange: getEnvBoolOrDefault("GAUSSFIT_CLAMP", false),
		Rescale: marks.RescaleSpec{
			Mode:   mode,
			Factor: getEnvFloatOrDefault("GAUSSFIT_RESCALE_FACTOR", 1.0),
			Mean:   getEnvFloatOrDefault("GAUSSFIT_RESCALE_MEAN", math.NaN()),
			SD:     getEnvFloatOrDefault("GAUSSFIT_RESCALE_SD", math.NaN()),
		},
		BinWidth: binWidth,
	}, nil
}

func loadSimplexConfig() *SimplexConfig {
	return &SimplexConfig{
		MaxIterations: getEnvIntOrDefault("SIMPLEX_MAX_ITERATIONS", DefaultMaxIterations),
		Tolerance:     getEnvFloatOrDefault("SIMPLEX_TOLERANCE", DefaultTolerance),
		Restarts:      getEnvIntOrDefault("SIMPLEX_RESTARTS", DefaultRestarts),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:                  getEnvOrDefault("PORT", DefaultPort),
		MaxConcurrentAnalyses: getEnvIntOrDefault("MAX_CONCURRENT_ANALYSES", DefaultMaxConcurrent),
	}
}

// ParseBinWidth accepts "auto" (or empty) for the suggested width, or a positive number
func ParseBinWidth(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return 0, nil
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || w <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
		return 0, errors.ConfigInvalid("bin width must be \"auto\" or a positive number, got " + strconv.Quote(s))
	}
	return w, nil
}

// Validate checks field combinations that the loaders cannot check alone
func (c *Config) Validate() error {
	switch c.Analysis.Rescale.Mode {
	case marks.RescaleTargetMeanSD:
		if math.IsNaN(c.Analysis.Rescale.Mean) || math.IsNaN(c.Analysis.Rescale.SD) {
			return errors.ConfigInvalid("target rescaling needs both a mean and a standard deviation")
		}
		if c.Analysis.Rescale.SD <= 0 {
			return errors.ConfigInvalid("target standard deviation must be positive")
		}
	case marks.RescaleMultiplicative, marks.RescaleAdditive:
		if math.IsNaN(c.Analysis.Rescale.Factor) || math.IsInf(c.Analysis.Rescale.Factor, 0) {
			return errors.ConfigInvalid("rescale factor must be a finite number")
		}
	}
	if c.Analysis.BinWidth < 0 {
		return errors.ConfigInvalid("bin width must not be negative")
	}
	if c.Simplex.MaxIterations <= 0 {
		return errors.ConfigInvalid("SIMPLEX_MAX_ITERATIONS must be positive")
	}
	if c.Simplex.Tolerance <= 0 {
		return errors.ConfigInvalid("SIMPLEX_TOLERANCE must be positive")
	}
	if c.Simplex.Restarts < 0 {
		return errors.ConfigInvalid("SIMPLEX_RESTARTS must not be negative")
	}
	if c.Server.MaxConcurrentAnalyses <= 0 {
		return errors.ConfigInvalid("MAX_CONCURRENT_ANALYSES must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
