// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Rating   RatingConfig   `mapstructure:"rating"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Matching MatchingConfig `mapstructure:"matching"`
	Outcome  OutcomeConfig  `mapstructure:"outcome"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// --- Engine Configuration Sections ---

// RatingConfig holds the Elo rating engine settings.
type RatingConfig struct {
	Initial      int `mapstructure:"initial"`       // default 1200
	KFactor      int `mapstructure:"k_factor"`      // default 32
	Min          int `mapstructure:"min"`           // default 100
	Max          int `mapstructure:"max"`           // default 3000
	CacheTTL     int `mapstructure:"cache_ttl"`     // milliseconds, scoring-path read cache
	MaxRetries   int `mapstructure:"max_retries"`   // CAS retry budget
	RetryBackoff int `mapstructure:"retry_backoff"` // milliseconds, initial backoff
}

// ScoringConfig holds the match scoring settings.
type ScoringConfig struct {
	Preset            string  `mapstructure:"preset"` // balanced | proximity
	NeutralPriceScore float64 `mapstructure:"neutral_price_score"`

	// Weights override the preset when all five are set (non-zero sum).
	Weights WeightsConfig `mapstructure:"weights"`
}

type WeightsConfig struct {
	Location  float64 `mapstructure:"location"`
	Specialty float64 `mapstructure:"specialty"`
	Price     float64 `mapstructure:"price"`
	Rating    float64 `mapstructure:"rating"`
	Elo       float64 `mapstructure:"elo"`
}

// Sum returns the total of all five weights.
func (w WeightsConfig) Sum() float64 {
	return w.Location + w.Specialty + w.Price + w.Rating + w.Elo
}

// IsZero reports whether no custom weights were configured.
func (w WeightsConfig) IsZero() bool {
	return w.Sum() == 0
}

// MatchingConfig holds the deferred-acceptance settings.
type MatchingConfig struct {
	MaxIterations int    `mapstructure:"max_iterations"` // default 100
	Strategy      string `mapstructure:"strategy"`       // tier | score
	RunQueue      string `mapstructure:"run_queue"`      // redis list of run requests
}

// OutcomeConfig holds the outcome feed consumer settings.
type OutcomeConfig struct {
	Queue        string `mapstructure:"queue"`         // redis list of outcome events
	BlockTimeout int    `mapstructure:"block_timeout"` // milliseconds
}

type MetricsConfig struct {
	Address string `mapstructure:"address"` // host:port for /metrics and pprof
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
