// internal/common/config/loader.go
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "beautymatch/internal/common/errors"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_REDIS_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, config.<env>.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Rating defaults
	if cfg.Rating.Initial == 0 {
		cfg.Rating.Initial = 1200
	}
	if cfg.Rating.KFactor == 0 {
		cfg.Rating.KFactor = 32
	}
	if cfg.Rating.Min == 0 {
		cfg.Rating.Min = 100
	}
	if cfg.Rating.Max == 0 {
		cfg.Rating.Max = 3000
	}
	if cfg.Rating.CacheTTL == 0 {
		cfg.Rating.CacheTTL = 30000
	}
	if cfg.Rating.MaxRetries == 0 {
		cfg.Rating.MaxRetries = 5
	}
	if cfg.Rating.RetryBackoff == 0 {
		cfg.Rating.RetryBackoff = 20
	}

	// Scoring defaults
	if cfg.Scoring.Preset == "" {
		cfg.Scoring.Preset = "balanced"
	}
	if cfg.Scoring.NeutralPriceScore == 0 {
		cfg.Scoring.NeutralPriceScore = 50
	}

	// Matching defaults
	if cfg.Matching.MaxIterations == 0 {
		cfg.Matching.MaxIterations = 100
	}
	if cfg.Matching.Strategy == "" {
		cfg.Matching.Strategy = "tier"
	}
	if cfg.Matching.RunQueue == "" {
		cfg.Matching.RunQueue = "matching:runs"
	}

	// Outcome feed defaults
	if cfg.Outcome.Queue == "" {
		cfg.Outcome.Queue = "matching:outcomes"
	}
	if cfg.Outcome.BlockTimeout == 0 {
		cfg.Outcome.BlockTimeout = 5000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Metrics defaults
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// weightSumTolerance is how far the five scoring weights may drift from 1.0.
const weightSumTolerance = 0.01

// Validate checks critical configuration fields. Violations are reported as
// INVALID_CONFIGURATION so callers can distinguish them from load failures.
func Validate(cfg *Config) error {
	if cfg.Rating.Min >= cfg.Rating.Max {
		return apperrors.NewInvalidConfigurationError(
			fmt.Sprintf("rating bounds inverted: min=%d max=%d", cfg.Rating.Min, cfg.Rating.Max))
	}
	if cfg.Rating.Initial < cfg.Rating.Min || cfg.Rating.Initial > cfg.Rating.Max {
		return apperrors.NewInvalidConfigurationError(
			fmt.Sprintf("rating.initial %d outside bounds [%d, %d]", cfg.Rating.Initial, cfg.Rating.Min, cfg.Rating.Max))
	}
	if cfg.Rating.KFactor <= 0 {
		return apperrors.NewInvalidConfigurationError("rating.k_factor must be positive")
	}

	if !cfg.Scoring.Weights.IsZero() {
		if sum := cfg.Scoring.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
			return apperrors.NewInvalidConfigurationError(
				fmt.Sprintf("scoring.weights must sum to ~1.0, got %.4f", sum))
		}
	}
	switch cfg.Scoring.Preset {
	case "balanced", "proximity":
	default:
		return apperrors.NewInvalidConfigurationError(
			fmt.Sprintf("unknown scoring.preset %q", cfg.Scoring.Preset))
	}
	if cfg.Scoring.NeutralPriceScore < 0 || cfg.Scoring.NeutralPriceScore > 100 {
		return apperrors.NewInvalidConfigurationError("scoring.neutral_price_score must be in [0, 100]")
	}

	if cfg.Matching.MaxIterations <= 0 {
		return apperrors.NewInvalidConfigurationError("matching.max_iterations must be positive")
	}
	switch cfg.Matching.Strategy {
	case "tier", "score":
	default:
		return apperrors.NewInvalidConfigurationError(
			fmt.Sprintf("unknown matching.strategy %q", cfg.Matching.Strategy))
	}

	if cfg.Database.Postgres.Host == "" {
		return apperrors.NewInvalidConfigurationError("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return apperrors.NewInvalidConfigurationError("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return apperrors.NewInvalidConfigurationError("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return apperrors.NewInvalidConfigurationError("database.redis.address is required")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return apperrors.NewInvalidConfigurationError("database.elasticsearch.addresses is required when enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
