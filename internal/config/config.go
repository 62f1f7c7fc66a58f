package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fundamentals providers
const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
)

// Config holds all configuration for the intrinsic value service.
type Config struct {
	// Server
	ListenAddr     string        `mapstructure:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	// Upstream sources (configurable for testing)
	HTTPTimeout          time.Duration `mapstructure:"http_timeout"`
	FundamentalsProvider string        `mapstructure:"fundamentals_provider"`
	ConstituentsURL      string        `mapstructure:"constituents_url"`
	BondsURL             string        `mapstructure:"bonds_url"`
	YahooBaseURL         string        `mapstructure:"yahoo_base_url"`
	YahooCookieURL       string        `mapstructure:"yahoo_cookie_url"`
	AlphavantageAPIKey   string        `mapstructure:"alphavantage_api_key"`
	AlphavantageBaseURL  string        `mapstructure:"alphavantage_base_url"`

	// Requests per second per upstream; zero or less disables limiting
	WikipediaRateLimit    float64 `mapstructure:"wikipedia_rate_limit"`
	YahooRateLimit        float64 `mapstructure:"yahoo_rate_limit"`
	AlphavantageRateLimit float64 `mapstructure:"alphavantage_rate_limit"`

	// Valuation
	ExpectedMarketReturn float64 `mapstructure:"expected_market_return"`
	PerpetualGrowthRate  float64 `mapstructure:"perpetual_growth_rate"`
	SampleSize           int     `mapstructure:"sample_size"`
}

// defaults for every optional key
var defaults = map[string]any{
	"listen_addr":             ":8080",
	"request_timeout":         "90s",
	"log_level":               "info",
	"log_pretty":              false,
	"http_timeout":            "30s",
	"fundamentals_provider":   ProviderYahoo,
	"constituents_url":        "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
	"bonds_url":               "https://finance.yahoo.com/bonds",
	"yahoo_base_url":          "https://query2.finance.yahoo.com",
	"yahoo_cookie_url":        "https://fc.yahoo.com",
	"alphavantage_base_url":   "https://www.alphavantage.co/query",
	"wikipedia_rate_limit":    1.0,
	"yahoo_rate_limit":        4.0,
	"alphavantage_rate_limit": 0.0833,
	"expected_market_return":  0.08,
	"perpetual_growth_rate":   0.02,
	"sample_size":             5,
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables:
//   - LISTEN_ADDR, REQUEST_TIMEOUT (optional)
//   - LOG_LEVEL, LOG_PRETTY (optional)
//   - HTTP_TIMEOUT (optional)
//   - FUNDAMENTALS_PROVIDER (optional, yahoo or alphavantage)
//   - ALPHAVANTAGE_API_KEY (required when FUNDAMENTALS_PROVIDER is alphavantage)
//   - CONSTITUENTS_URL, BONDS_URL, YAHOO_BASE_URL, YAHOO_COOKIE_URL,
//     ALPHAVANTAGE_BASE_URL (optional, default to production)
//   - WIKIPEDIA_RATE_LIMIT, YAHOO_RATE_LIMIT, ALPHAVANTAGE_RATE_LIMIT (optional)
//   - EXPECTED_MARKET_RETURN, PERPETUAL_GROWTH_RATE, SAMPLE_SIZE (optional)
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.intrinsicvalue")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind every key to its upper-case environment variable
	for key := range defaults {
		v.BindEnv(key, strings.ToUpper(key))
	}
	v.BindEnv("alphavantage_api_key", "ALPHAVANTAGE_API_KEY")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.FundamentalsProvider = strings.ToLower(strings.TrimSpace(config.FundamentalsProvider))

	// Validate required fields
	var missing []string
	if config.FundamentalsProvider == ProviderAlphaVantage && config.AlphavantageAPIKey == "" {
		missing = append(missing, "ALPHAVANTAGE_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the loaded values for consistency
func (c *Config) Validate() error {
	var errs []error

	switch c.FundamentalsProvider {
	case ProviderYahoo, ProviderAlphaVantage:
	default:
		errs = append(errs, fmt.Errorf("unknown fundamentals provider %q", c.FundamentalsProvider))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.SampleSize < 0 {
		errs = append(errs, fmt.Errorf("sample_size must not be negative, got %d", c.SampleSize))
	}
	if c.PerpetualGrowthRate >= c.ExpectedMarketReturn {
		errs = append(errs, fmt.Errorf("perpetual_growth_rate %.4f must be below expected_market_return %.4f",
			c.PerpetualGrowthRate, c.ExpectedMarketReturn))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
