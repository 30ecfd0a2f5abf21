package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// all env vars Load consults; cleared before each test so ambient
// settings never leak in
var knownVars = []string{
	"TGJU_API_URL",
	"COINGECKO_API_URL",
	"NEWS_RSS_FEEDS",
	"CRYPTO_COIN_IDS",
	"FETCH_TIMEOUT",
	"PRICE_CACHE_TTL",
	"NEWS_CACHE_TTL",
	"PRICE_UPDATE_INTERVAL",
	"NEWS_UPDATE_INTERVAL",
	"REQUIRED_CHANNELS_COUNT",
	"CRYPTO_LIMIT",
	"NEWS_LIMIT",
	"FEED_ENTRY_LIMIT",
	"COINGECKO_RPM",
	"HTTP_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range knownVars {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.TGJUBaseURL != "https://api.tgju.org/v1/data/sana.json" {
		t.Errorf("TGJUBaseURL = %q, want the production default", cfg.TGJUBaseURL)
	}
	if cfg.CoinGeckoBaseURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("CoinGeckoBaseURL = %q, want the production default", cfg.CoinGeckoBaseURL)
	}
	if len(cfg.NewsFeeds) != 2 {
		t.Errorf("NewsFeeds has %d entries, want 2 defaults", len(cfg.NewsFeeds))
	}
	if len(cfg.CryptoCoinIDs) != 10 {
		t.Errorf("CryptoCoinIDs has %d entries, want 10 defaults", len(cfg.CryptoCoinIDs))
	}

	durations := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"FetchTimeout", cfg.FetchTimeout, 10 * time.Second},
		{"PriceCacheTTL", cfg.PriceCacheTTL, 30 * time.Second},
		{"NewsCacheTTL", cfg.NewsCacheTTL, 30 * time.Minute},
		{"PriceUpdateInterval", cfg.PriceUpdateInterval, 30 * time.Second},
		{"NewsUpdateInterval", cfg.NewsUpdateInterval, time.Hour},
	}
	for _, tt := range durations {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if cfg.CryptoLimit != 10 {
		t.Errorf("CryptoLimit = %d, want 10", cfg.CryptoLimit)
	}
	if cfg.NewsLimit != 5 {
		t.Errorf("NewsLimit = %d, want 5", cfg.NewsLimit)
	}
	if cfg.RequiredChannelsCount != 3 {
		t.Errorf("RequiredChannelsCount = %d, want 3", cfg.RequiredChannelsCount)
	}
	if cfg.CoinGeckoRPM != 10 {
		t.Errorf("CoinGeckoRPM = %d, want 10", cfg.CoinGeckoRPM)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)

	envVars := map[string]string{
		"TGJU_API_URL":            "https://test.tgju.local/sana.json",
		"COINGECKO_API_URL":       "https://test.coingecko.local/api/v3",
		"FETCH_TIMEOUT":           "3s",
		"PRICE_CACHE_TTL":         "15s",
		"NEWS_CACHE_TTL":          "10m",
		"PRICE_UPDATE_INTERVAL":   "45s",
		"NEWS_UPDATE_INTERVAL":    "2h",
		"REQUIRED_CHANNELS_COUNT": "1",
		"CRYPTO_LIMIT":            "3",
		"NEWS_LIMIT":              "7",
		"HTTP_ADDR":               ":9090",
	}
	for key, value := range envVars {
		os.Setenv(key, value)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.TGJUBaseURL != "https://test.tgju.local/sana.json" {
		t.Errorf("TGJUBaseURL = %q, want the env override", cfg.TGJUBaseURL)
	}
	if cfg.CoinGeckoBaseURL != "https://test.coingecko.local/api/v3" {
		t.Errorf("CoinGeckoBaseURL = %q, want the env override", cfg.CoinGeckoBaseURL)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v, want 3s", cfg.FetchTimeout)
	}
	if cfg.PriceCacheTTL != 15*time.Second {
		t.Errorf("PriceCacheTTL = %v, want 15s", cfg.PriceCacheTTL)
	}
	if cfg.NewsCacheTTL != 10*time.Minute {
		t.Errorf("NewsCacheTTL = %v, want 10m", cfg.NewsCacheTTL)
	}
	if cfg.PriceUpdateInterval != 45*time.Second {
		t.Errorf("PriceUpdateInterval = %v, want 45s", cfg.PriceUpdateInterval)
	}
	if cfg.NewsUpdateInterval != 2*time.Hour {
		t.Errorf("NewsUpdateInterval = %v, want 2h", cfg.NewsUpdateInterval)
	}
	if cfg.RequiredChannelsCount != 1 {
		t.Errorf("RequiredChannelsCount = %d, want 1", cfg.RequiredChannelsCount)
	}
	if cfg.CryptoLimit != 3 {
		t.Errorf("CryptoLimit = %d, want 3", cfg.CryptoLimit)
	}
	if cfg.NewsLimit != 7 {
		t.Errorf("NewsLimit = %d, want 7", cfg.NewsLimit)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
}

func TestLoad_ListEnvVars(t *testing.T) {
	clearEnv(t)

	os.Setenv("NEWS_RSS_FEEDS", "https://a.example/rss?cat=1,2 ; https://b.example/feed")
	os.Setenv("CRYPTO_COIN_IDS", "bitcoin, ethereum ,solana,")
	defer os.Unsetenv("NEWS_RSS_FEEDS")
	defer os.Unsetenv("CRYPTO_COIN_IDS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	wantFeeds := []string{"https://a.example/rss?cat=1,2", "https://b.example/feed"}
	if len(cfg.NewsFeeds) != len(wantFeeds) {
		t.Fatalf("NewsFeeds = %v, want %v", cfg.NewsFeeds, wantFeeds)
	}
	for i := range wantFeeds {
		if cfg.NewsFeeds[i] != wantFeeds[i] {
			t.Errorf("NewsFeeds[%d] = %q, want %q", i, cfg.NewsFeeds[i], wantFeeds[i])
		}
	}

	wantIDs := []string{"bitcoin", "ethereum", "solana"}
	if len(cfg.CryptoCoinIDs) != len(wantIDs) {
		t.Fatalf("CryptoCoinIDs = %v, want %v", cfg.CryptoCoinIDs, wantIDs)
	}
	for i := range wantIDs {
		if cfg.CryptoCoinIDs[i] != wantIDs[i] {
			t.Errorf("CryptoCoinIDs[%d] = %q, want %q", i, cfg.CryptoCoinIDs[i], wantIDs[i])
		}
	}
}

func TestLoad_InvalidDurations(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		wantText string
	}{
		{"zero fetch timeout", "FETCH_TIMEOUT", "0s", "FETCH_TIMEOUT"},
		{"negative price ttl", "PRICE_CACHE_TTL", "-30s", "PRICE_CACHE_TTL"},
		{"zero news ttl", "NEWS_CACHE_TTL", "0", "NEWS_CACHE_TTL"},
		{"zero price interval", "PRICE_UPDATE_INTERVAL", "0s", "PRICE_UPDATE_INTERVAL"},
		{"negative news interval", "NEWS_UPDATE_INTERVAL", "-1h", "NEWS_UPDATE_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			os.Setenv(tt.envKey, tt.envValue)
			defer os.Unsetenv(tt.envKey)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("Load() error = %q, want mention of %q", err, tt.wantText)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a ;; b ;c ", ";")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
