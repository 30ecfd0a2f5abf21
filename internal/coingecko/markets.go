package coingecko

import (
	"context"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"marketpulse/internal/fetcher"
	"marketpulse/internal/market"
	"marketpulse/internal/ratelimit"
)

// coinMarket represents one entry of the CoinGecko /coins/markets response
type coinMarket struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             float64  `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	MarketCap                float64  `json:"market_cap"`
	TotalVolume              float64  `json:"total_volume"`
	Image                    string   `json:"image"`
}

// MarketsSource fetches crypto quotes for a fixed coin universe from the
// CoinGecko markets endpoint.
type MarketsSource struct {
	coinIDs []string
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewMarketsSource creates a crypto source for the given CoinGecko ids.
// The limiter guards the free-tier request budget; nil disables limiting.
func NewMarketsSource(baseURL string, coinIDs []string, limiter *ratelimit.Limiter) *MarketsSource {
	return &MarketsSource{
		coinIDs: coinIDs,
		client:  fetcher.NewHTTPClient(baseURL),
		limiter: limiter,
	}
}

// Name identifies the source in logs and results.
func (s *MarketsSource) Name() string { return "coingecko:markets" }

// Category returns the category this source contributes to.
func (s *MarketsSource) Category() market.Category { return market.CategoryCrypto }

// Fetch retrieves current quotes for the configured coins, ordered by
// market cap descending as the upstream returns them.
func (s *MarketsSource) Fetch(ctx context.Context) ([]market.PriceSnapshot, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, ratelimit.APICoinGecko); err != nil {
			return nil, fetcher.Classify(err)
		}
	}

	var coins []coinMarket
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency":             "usd",
			"ids":                     strings.Join(s.coinIDs, ","),
			"order":                   "market_cap_desc",
			"per_page":                strconv.Itoa(len(s.coinIDs)),
			"page":                    "1",
			"sparkline":               "false",
			"price_change_percentage": "24h",
		}).
		SetResult(&coins).
		Get("/coins/markets")

	if err != nil {
		return nil, fetcher.Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.NewStatusError(resp.StatusCode())
	}

	now := time.Now().UTC()
	out := make([]market.PriceSnapshot, 0, len(coins))
	for _, c := range coins {
		change := 0.0
		if c.PriceChangePercentage24h != nil {
			change = *c.PriceChangePercentage24h
		}
		out = append(out, market.PriceSnapshot{
			Category:  market.CategoryCrypto,
			Symbol:    c.Symbol,
			Value:     c.CurrentPrice,
			Change24h: change,
			FetchedAt: now,
			Name:      c.Name,
			MarketCap: c.MarketCap,
			Volume:    c.TotalVolume,
			Image:     c.Image,
		})
	}
	return out, nil
}
