package config

import (
	"os"
	"strconv"

	"goconform/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Calibration CalibrationConfig
	Dataset     DatasetConfig
	Sweep       SweepConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds run store connection settings.
// An empty URL means runs are kept in process memory.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// CalibrationConfig holds default conformal calibration settings
type CalibrationConfig struct {
	Alpha        float64
	Seed         int64
	Classifier   string
	KNNNeighbors int
}

// DatasetConfig holds synthetic data generation defaults
type DatasetConfig struct {
	Samples  int
	Features int
	Classes  int
	Spread   float64
}

// SweepConfig bounds concurrent sweep work
type SweepConfig struct {
	Parallelism int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Calibration: CalibrationConfig{
			Alpha:        getEnvFloatOrDefault("CONFORMAL_ALPHA", 0.1),
			Seed:         getEnvInt64OrDefault("CONFORMAL_SEED", 42),
			Classifier:   getEnvOrDefault("CONFORMAL_CLASSIFIER", "knn"),
			KNNNeighbors: getEnvIntOrDefault("CONFORMAL_KNN_K", 10),
		},
		Dataset: DatasetConfig{
			Samples:  getEnvIntOrDefault("DATASET_SAMPLES", 1200),
			Features: getEnvIntOrDefault("DATASET_FEATURES", 2),
			Classes:  getEnvIntOrDefault("DATASET_CLASSES", 3),
			Spread:   getEnvFloatOrDefault("DATASET_SPREAD", 1.0),
		},
		Sweep: SweepConfig{
			Parallelism: getEnvIntOrDefault("SWEEP_PARALLELISM", 4),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT cannot be empty")
	}
	if config.Calibration.Alpha <= 0 || config.Calibration.Alpha >= 1 {
		return errors.ConfigInvalid("CONFORMAL_ALPHA must be in (0, 1)")
	}
	if config.Calibration.Classifier == "" {
		return errors.ConfigInvalid("CONFORMAL_CLASSIFIER cannot be empty")
	}
	if config.Calibration.KNNNeighbors < 1 {
		return errors.ConfigInvalid("CONFORMAL_KNN_K must be at least 1")
	}
	if config.Dataset.Classes < 2 {
		return errors.ConfigInvalid("DATASET_CLASSES must be at least 2")
	}
	if config.Dataset.Features < 1 {
		return errors.ConfigInvalid("DATASET_FEATURES must be at least 1")
	}
	if config.Dataset.Samples < 10*config.Dataset.Classes {
		return errors.ConfigInvalid("DATASET_SAMPLES too small for a three-way split")
	}
	if config.Dataset.Spread <= 0 {
		return errors.ConfigInvalid("DATASET_SPREAD must be positive")
	}
	if config.Sweep.Parallelism < 1 {
		return errors.ConfigInvalid("SWEEP_PARALLELISM must be at least 1")
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

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
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
