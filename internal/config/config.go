package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// ErrConfiguration is the base error for rejected configuration values.
// A failed update leaves the previous configuration in effect.
var ErrConfiguration = errors.New("invalid configuration")

// Generator holds the statistical model for synthetic order flow.
// TickSize is a whole number of cents; PriceSigma is expressed in ticks.
type Generator struct {
	TickSize      float64 `json:"tick_size"`
	PriceSigma    float64 `json:"price_sigma"`
	MarketProb    float64 `json:"market_prob"`
	ExpirySeconds int     `json:"expiry_seconds"` // 0 = GTC
	MinQty        int64   `json:"min_qty"`
	MaxQty        int64   `json:"max_qty"`
}

// DefaultGenerator mirrors the historical simulation defaults: one-cent
// ticks, sigma of five ticks, one third market orders, short-lived orders
// of 1 to 100 shares.
func DefaultGenerator() Generator {
	return Generator{
		TickSize:      1,
		PriceSigma:    5,
		MarketProb:    1.0 / 3.0,
		ExpirySeconds: 10,
		MinQty:        1,
		MaxQty:        100,
	}
}

// Validate checks every field; any failure wraps ErrConfiguration.
func (g Generator) Validate() error {
	if g.TickSize <= 0 {
		return fmt.Errorf("%w: tick_size must be > 0, got %v", ErrConfiguration, g.TickSize)
	}
	// Prices are integer cents, so the tick grid must be too.
	if g.TickSize != math.Trunc(g.TickSize) {
		return fmt.Errorf("%w: tick_size must be a whole number of cents, got %v", ErrConfiguration, g.TickSize)
	}
	if g.PriceSigma <= 0 {
		return fmt.Errorf("%w: price_sigma must be > 0, got %v", ErrConfiguration, g.PriceSigma)
	}
	if g.MarketProb < 0 || g.MarketProb > 1 {
		return fmt.Errorf("%w: market_prob must be in [0,1], got %v", ErrConfiguration, g.MarketProb)
	}
	if g.ExpirySeconds < 0 {
		return fmt.Errorf("%w: expiry_seconds must be >= 0, got %d", ErrConfiguration, g.ExpirySeconds)
	}
	if g.MinQty < 1 {
		return fmt.Errorf("%w: min_qty must be >= 1, got %d", ErrConfiguration, g.MinQty)
	}
	if g.MaxQty < g.MinQty {
		return fmt.Errorf("%w: max_qty %d is below min_qty %d", ErrConfiguration, g.MaxQty, g.MinQty)
	}
	return nil
}

// TTL returns the expiry horizon as a duration.
func (g Generator) TTL() time.Duration {
	return time.Duration(g.ExpirySeconds) * time.Second
}

// Config holds runtime settings for a simulation session.
type Config struct {
	BasePrice      int64         // reference price before the book has a mid, in cents
	FeedInterval   time.Duration // pause between synthetic batches
	FeedBatch      int           // synthetic orders per batch
	ExpiryInterval time.Duration // background expiry sweep cadence
	LogLevel       string
	DBPath         string // empty disables the tape recorder
	Generator      Generator
}

// Load reads configuration from environment variables, applies defaults,
// and validates values.
func Load() (*Config, error) {
	basePrice, err := getInt64("SIMEX_BASE_PRICE", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMEX_BASE_PRICE: %w", err)
	}
	feedInterval, err := getDuration("SIMEX_FEED_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMEX_FEED_INTERVAL: %w", err)
	}
	feedBatch, err := getInt("SIMEX_FEED_BATCH", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMEX_FEED_BATCH: %w", err)
	}
	expiryInterval, err := getDuration("SIMEX_EXPIRY_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMEX_EXPIRY_INTERVAL: %w", err)
	}
	logLevel := getStr("SIMEX_LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("%w: SIMEX_LOG_LEVEL %q, must be one of: debug, info, warn, error", ErrConfiguration, logLevel)
	}
	dbPath := getStr("SIMEX_DB", "")

	cfg := &Config{
		BasePrice:      basePrice,
		FeedInterval:   feedInterval,
		FeedBatch:      feedBatch,
		ExpiryInterval: expiryInterval,
		LogLevel:       logLevel,
		DBPath:         dbPath,
		Generator:      DefaultGenerator(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks session-level settings and the embedded generator config.
func (c *Config) Validate() error {
	if c.BasePrice <= 0 {
		return fmt.Errorf("%w: base price must be > 0, got %d", ErrConfiguration, c.BasePrice)
	}
	if c.FeedInterval <= 0 {
		return fmt.Errorf("%w: feed interval must be > 0, got %v", ErrConfiguration, c.FeedInterval)
	}
	if c.FeedBatch < 1 {
		return fmt.Errorf("%w: feed batch must be >= 1, got %d", ErrConfiguration, c.FeedBatch)
	}
	if c.ExpiryInterval <= 0 {
		return fmt.Errorf("%w: expiry interval must be > 0, got %v", ErrConfiguration, c.ExpiryInterval)
	}
	return c.Generator.Validate()
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
