// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Config represents the application configuration
type Config struct {
	APIName              string `env:"SENTIMENTD_APP_NAME" default:"Sentimentd"`
	APIVersion           string `env:"SENTIMENTD_APP_VERSION" default:"2.0"`
	ServerPort           string `env:"SERVER_PORT" default:"3008"`
	ServerLogLevel       string `env:"SERVER_LOG_LEVEL" default:"info"`
	PostgresDsn          string `env:"DATABASE_URL"`
	PostgresLogLevel     string `env:"PG_LOG_LEVEL" default:"warn"`
	RedisUrl             string `env:"REDIS_URL" optional:"true"`
	InstrumentSymbol     string `env:"INSTRUMENT_SYMBOL" default:"QLD"`
	TickStreamURL        string `env:"TICK_STREAM_URL" default:"wss://ws.eodhistoricaldata.com/ws/us"`
	TickStreamAPIKey     string `env:"TICK_STREAM_API_KEY" optional:"true"`
	SentimentProvider    string `env:"SENTIMENT_PROVIDER" default:"fast"`
	SentimentKeyFast     string `env:"SENTIMENT_API_KEY_FAST" optional:"true"`
	SentimentKeyAccurate string `env:"SENTIMENT_API_KEY_ACCURATE" optional:"true"`
	CompanyNewsAPIKey    string `env:"COMPANY_NEWS_API_KEY" optional:"true"`
	MarketNewsAPIKey     string `env:"MARKET_NEWS_API_KEY" optional:"true"`
	EnableCompanyNews    string `env:"ENABLE_COMPANY_NEWS" default:"true"`
	EnableMarketNews     string `env:"ENABLE_MARKET_NEWS" default:"true"`
	EnableRSSNews        string `env:"ENABLE_RSS_NEWS" default:"false"`
	RSSFeedsConfigPath   string `env:"RSS_FEEDS_CONFIG_PATH" optional:"true"`
	SkipMarketHours      string `env:"SKIP_MARKET_HOURS_CHECK" default:"false"`
	WeightsConfigPath    string `env:"WEIGHTS_CONFIG_PATH" optional:"true"`
	SnapshotFreshSecs    string `env:"SNAPSHOT_FRESH_SECONDS" default:"70"`
	EnableMinuteAnalyzer string `env:"ENABLE_MINUTE_ANALYZER" default:"false"`
	EnableReadAPI        string `env:"ENABLE_READ_API" default:"true"`
	EnableSnapshotBridge string `env:"ENABLE_SNAPSHOT_BRIDGE" default:"false"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		value := os.Getenv(envTag)
		if value == "" {
			value = field.Tag.Get("default")
		}
		if value == "" && field.Tag.Get("optional") != "true" {
			return fmt.Errorf("env variable %s is required but not set", envTag)
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// boolValue parses the lenient true/false strings used in env vars
func boolValue(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
	return err == nil && b
}

// CompanyNewsEnabled reports whether the company-news collector is enabled
func (c *Config) CompanyNewsEnabled() bool { return boolValue(c.EnableCompanyNews) }

// MarketNewsEnabled reports whether the market-news collector is enabled
func (c *Config) MarketNewsEnabled() bool { return boolValue(c.EnableMarketNews) }

// RSSNewsEnabled reports whether the RSS collector is enabled
func (c *Config) RSSNewsEnabled() bool { return boolValue(c.EnableRSSNews) }

// SkipMarketHoursCheck reports whether the clock is forced always-open
func (c *Config) SkipMarketHoursCheck() bool { return boolValue(c.SkipMarketHours) }

// MinuteAnalyzerEnabled reports whether the in-process analyzer cron runs
func (c *Config) MinuteAnalyzerEnabled() bool { return boolValue(c.EnableMinuteAnalyzer) }

// ReadAPIEnabled reports whether the HTTP read API is served
func (c *Config) ReadAPIEnabled() bool { return boolValue(c.EnableReadAPI) }

// SnapshotBridgeEnabled reports whether the LISTEN/publish bridge runs
func (c *Config) SnapshotBridgeEnabled() bool { return boolValue(c.EnableSnapshotBridge) }

// SnapshotFreshSeconds is the age under which a snapshot is the composer base
func (c *Config) SnapshotFreshSeconds() int {
	n, err := strconv.Atoi(strings.TrimSpace(c.SnapshotFreshSecs))
	if err != nil || n <= 0 {
		return 70
	}
	return n
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"key", "dsn", "secret", "password", "url"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}
	return value
}

func maskValue(value string) string {
	if len(value) <= 8 {
		return "********"
	}
	return value[:4] + "****" + value[len(value)-4:]
}
