package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	EbayAppID         string        `envconfig:"EBAY_APP_ID"`
	EbayCertID        string        `envconfig:"EBAY_CERT_ID"`
	EbayBaseURL       string        `envconfig:"EBAY_API_BASE_URL" default:"https://api.ebay.com"`
	EbayMarketplaceID string        `envconfig:"EBAY_MARKETPLACE_ID" default:"EBAY_US"`
	CallsPerSecond    float64       `envconfig:"EBAY_CALLS_PER_SECOND" default:"2"`
	RequestTimeout    time.Duration `envconfig:"EBAY_REQUEST_TIMEOUT" default:"30s"`
	TokenExpiryMargin time.Duration `envconfig:"EBAY_TOKEN_EXPIRY_MARGIN" default:"1h"`
	LookbackDays      int           `envconfig:"LOOKBACK_DAYS" default:"90"`
	SearchLimit       int           `envconfig:"SEARCH_LIMIT" default:"100"`

	// SoldSource picks where completed sales come from: "api" or "browser".
	SoldSource string `envconfig:"SOLD_SOURCE" default:"api"`
	ChromeBin  string `envconfig:"CHROME_BIN"`

	MaxConcurrency int    `envconfig:"MAX_CONCURRENCY" default:"3"`
	InputCSVPath   string `envconfig:"INPUT_CSV_PATH" default:"./sample_cards.csv"`
	OutputPath     string `envconfig:"OUTPUT_PATH" default:"./output/card_prices.csv"`

	PostgresEnabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"pricer"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"pricer123"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"card_prices"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"15m"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the .env file, then the process environment, and returns a
// validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CallsPerSecond <= 0 {
		return fmt.Errorf("config: EBAY_CALLS_PER_SECOND must be positive, got %v", c.CallsPerSecond)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: EBAY_REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("config: LOOKBACK_DAYS must be positive, got %d", c.LookbackDays)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: MAX_CONCURRENCY must be at least 1, got %d", c.MaxConcurrency)
	}
	switch c.SoldSource {
	case "api", "browser":
	default:
		return fmt.Errorf("config: SOLD_SOURCE must be api or browser, got %q", c.SoldSource)
	}
	return nil
}

// Lookback is the completed-sales window as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
