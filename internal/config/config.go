// Package config resolves process configuration from the environment.
// Commands layer their own flags on top of the values returned by Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults mirror the local docker-compose setup.
const (
	DefaultPort             = "3001"
	DefaultDBHost           = "localhost"
	DefaultDBPort           = 5432
	DefaultDBUser           = "postgres"
	DefaultDBName           = "expense_tracker"
	DefaultDBSSLMode        = "disable"
	DefaultAlphaVantageKey  = "demo"
	DefaultAlphaVantageURL  = "https://www.alphavantage.co/query"
	DefaultRateLimitDelay   = 12 * time.Second
	DefaultHTTPTimeout      = 10 * time.Second
	DefaultBigQueryDataset  = "finance"
	DefaultQueueBuffer      = 100
	DefaultQueueWorkers     = 5
	DefaultMaxUploadBytes   = 10 << 20
	DefaultLatestDataLimit  = 10
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	defaultMarketSymbols    = "AAPL,GOOGL,MSFT,TSLA,SPY"
	defaultEconomicIndicats = "REAL_GDP,INFLATION,UNEMPLOYMENT"
)

// Database holds PostgreSQL connection settings. URL wins over the parts.
type Database struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// MarketData configures the upstream market-data API.
type MarketData struct {
	APIKey         string
	BaseURL        string
	RateLimitDelay time.Duration
	Timeout        time.Duration
	Symbols        []string
	Indicators     []string
}

// Config is the resolved process configuration.
type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	AutoMigrate    bool
	MaxUploadBytes int64

	Database   Database
	MarketData MarketData

	// GCSBucket enables raw upload archiving when non-empty.
	GCSBucket string
	// BigQueryProject enables the staging sink and run ledger when non-empty.
	BigQueryProject string
	BigQueryDataset string

	QueueBuffer  int
	QueueWorkers int
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:       getEnv("LOG_FORMAT", DefaultLogFormat),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		BigQueryProject: os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", DefaultBigQueryDataset),
		Database: Database{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", DefaultDBHost),
			User:     getEnv("DB_USER", DefaultDBUser),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", DefaultDBName),
			SSLMode:  getEnv("DB_SSLMODE", DefaultDBSSLMode),
		},
		MarketData: MarketData{
			APIKey:     getEnv("ALPHA_VANTAGE_API_KEY", DefaultAlphaVantageKey),
			BaseURL:    getEnv("ALPHA_VANTAGE_BASE_URL", DefaultAlphaVantageURL),
			Symbols:    SplitList(getEnv("MARKET_SYMBOLS", defaultMarketSymbols)),
			Indicators: SplitList(getEnv("ECONOMIC_INDICATORS", defaultEconomicIndicats)),
		},
	}

	var err error
	if cfg.Database.Port, err = getEnvInt("DB_PORT", DefaultDBPort); err != nil {
		return nil, err
	}
	if cfg.QueueBuffer, err = getEnvInt("QUEUE_BUFFER", DefaultQueueBuffer); err != nil {
		return nil, err
	}
	if cfg.QueueWorkers, err = getEnvInt("QUEUE_WORKERS", DefaultQueueWorkers); err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.MarketData.RateLimitDelay, err = getEnvDuration("RATE_LIMIT_DELAY", DefaultRateLimitDelay); err != nil {
		return nil, err
	}
	if cfg.MarketData.Timeout, err = getEnvDuration("ALPHA_VANTAGE_TIMEOUT", DefaultHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.AutoMigrate, err = getEnvBool("AUTO_MIGRATE", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants Load cannot express through defaults alone.
func (c *Config) Validate() error {
	if c.QueueWorkers <= 0 {
		return fmt.Errorf("config: QUEUE_WORKERS must be positive, got %d", c.QueueWorkers)
	}
	if c.QueueBuffer < 0 {
		return fmt.Errorf("config: QUEUE_BUFFER must not be negative, got %d", c.QueueBuffer)
	}
	if c.MarketData.RateLimitDelay < 0 {
		return fmt.Errorf("config: RATE_LIMIT_DELAY must not be negative, got %s", c.MarketData.RateLimitDelay)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// SplitList splits a comma separated list, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("12s") or a bare number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
