package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunables for the marketpulse pipeline.
type Config struct {
	// Base URLs for upstream endpoints (configurable for testing)
	TGJUBaseURL      string `mapstructure:"tgju_base_url"`
	CoinGeckoBaseURL string `mapstructure:"coingecko_base_url"`

	// News feeds and crypto universe
	NewsFeeds     []string `mapstructure:"news_feeds"`
	CryptoCoinIDs []string `mapstructure:"crypto_coin_ids"`

	// Result limits
	CryptoLimit    int `mapstructure:"crypto_limit"`
	NewsLimit      int `mapstructure:"news_limit"`
	FeedEntryLimit int `mapstructure:"feed_entry_limit"`

	// Freshness and refresh cadence
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	PriceCacheTTL       time.Duration `mapstructure:"price_cache_ttl"`
	NewsCacheTTL        time.Duration `mapstructure:"news_cache_ttl"`
	PriceUpdateInterval time.Duration `mapstructure:"price_update_interval"`
	NewsUpdateInterval  time.Duration `mapstructure:"news_update_interval"`

	// Entitlement
	RequiredChannelsCount int `mapstructure:"required_channels_count"`

	// Upstream rate limits (requests per minute)
	CoinGeckoRPM int `mapstructure:"coingecko_rpm"`

	// HTTP surface
	HTTPAddr string `mapstructure:"http_addr"`
}

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over config file
// values.
//
// Expected environment variables (all optional):
//   - TGJU_API_URL
//   - COINGECKO_API_URL
//   - NEWS_RSS_FEEDS (semicolon-separated feed URLs)
//   - CRYPTO_COIN_IDS (comma-separated CoinGecko ids)
//   - PRICE_CACHE_TTL / NEWS_CACHE_TTL (durations, e.g. "30s", "30m")
//   - PRICE_UPDATE_INTERVAL / NEWS_UPDATE_INTERVAL
//   - FETCH_TIMEOUT
//   - REQUIRED_CHANNELS_COUNT
//   - CRYPTO_LIMIT / NEWS_LIMIT
//   - HTTP_ADDR
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.AutomaticEnv()

	// Defaults match the production upstreams and data volatility:
	// prices change every tick, news every half hour.
	v.SetDefault("tgju_base_url", "https://api.tgju.org/v1/data/sana.json")
	v.SetDefault("coingecko_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("news_feeds", []string{
		"https://www.tasnimnews.com/fa/rss/feed/0/7/اقتصادی",
		"https://www.farsnews.ir/rss/economy",
	})
	v.SetDefault("crypto_coin_ids", []string{
		"bitcoin", "ethereum", "binancecoin",
		"solana", "cardano", "ripple",
		"dogecoin", "polkadot", "litecoin",
		"chainlink",
	})
	v.SetDefault("crypto_limit", 10)
	v.SetDefault("news_limit", 5)
	v.SetDefault("feed_entry_limit", 10)
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("price_cache_ttl", "30s")
	v.SetDefault("news_cache_ttl", "30m")
	v.SetDefault("price_update_interval", "30s")
	v.SetDefault("news_update_interval", "1h")
	v.SetDefault("required_channels_count", 3)
	v.SetDefault("coingecko_rpm", 10)
	v.SetDefault("http_addr", ":8080")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.marketpulse")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind environment variables
	v.BindEnv("tgju_base_url", "TGJU_API_URL")
	v.BindEnv("coingecko_base_url", "COINGECKO_API_URL")
	v.BindEnv("fetch_timeout", "FETCH_TIMEOUT")
	v.BindEnv("price_cache_ttl", "PRICE_CACHE_TTL")
	v.BindEnv("news_cache_ttl", "NEWS_CACHE_TTL")
	v.BindEnv("price_update_interval", "PRICE_UPDATE_INTERVAL")
	v.BindEnv("news_update_interval", "NEWS_UPDATE_INTERVAL")
	v.BindEnv("required_channels_count", "REQUIRED_CHANNELS_COUNT")
	v.BindEnv("crypto_limit", "CRYPTO_LIMIT")
	v.BindEnv("news_limit", "NEWS_LIMIT")
	v.BindEnv("feed_entry_limit", "FEED_ENTRY_LIMIT")
	v.BindEnv("coingecko_rpm", "COINGECKO_RPM")
	v.BindEnv("http_addr", "HTTP_ADDR")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// List-valued env vars carry their own separators and bypass viper:
	// feeds are semicolon-separated (URLs contain commas in query strings),
	// coin ids comma-separated.
	if raw := os.Getenv("NEWS_RSS_FEEDS"); raw != "" {
		config.NewsFeeds = splitList(raw, ";")
	}
	if raw := os.Getenv("CRYPTO_COIN_IDS"); raw != "" {
		config.CryptoCoinIDs = splitList(raw, ",")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	var bad []string
	if c.FetchTimeout <= 0 {
		bad = append(bad, "FETCH_TIMEOUT")
	}
	if c.PriceCacheTTL <= 0 {
		bad = append(bad, "PRICE_CACHE_TTL")
	}
	if c.NewsCacheTTL <= 0 {
		bad = append(bad, "NEWS_CACHE_TTL")
	}
	if c.PriceUpdateInterval <= 0 {
		bad = append(bad, "PRICE_UPDATE_INTERVAL")
	}
	if c.NewsUpdateInterval <= 0 {
		bad = append(bad, "NEWS_UPDATE_INTERVAL")
	}
	if len(c.NewsFeeds) == 0 {
		bad = append(bad, "NEWS_RSS_FEEDS")
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(bad, ", "))
	}
	return nil
}

func splitList(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
