package tgju

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"marketpulse/internal/fetcher"
	"marketpulse/internal/market"
)

// quote is the per-indicator object in the TGJU flat response.
// p is the price, d the daily change, dt the change direction
// ("high"/"low"). All are strings with thousands separators.
type quote struct {
	P  string `json:"p"`
	D  string `json:"d"`
	DT string `json:"dt"`
}

// goldKeys maps our symbols to TGJU indicator keys. Iranian gold and coins
// are quoted in Tomans, ounce and mithqal in USD.
var goldKeys = []struct{ symbol, key string }{
	{"gold_18k", "price_gram_18k"},
	{"gold_24k", "price_gram_24k"},
	{"coin_emami", "coin_emami"},
	{"coin_nim", "coin_nim"},
	{"coin_rob", "coin_rob"},
	{"coin_gerami", "coin_gerami"},
	{"ounce", "price_ounce"},
	{"mithqal", "price_mithqal"},
}

// currencyKeys maps our FX symbols to TGJU indicator keys.
var currencyKeys = []struct{ symbol, key string }{
	{"usd", "price_dollar_rl"},
	{"eur", "price_eur"},
	{"gbp", "price_gbp"},
	{"aed", "price_aed"},
	{"try", "price_try"},
}

// Client fetches the TGJU flat indicator document. The gold and currency
// sources share one Client so a combined refresh still issues two upstream
// calls at most, one per category.
type Client struct {
	http *resty.Client
}

// NewClient creates a TGJU client for the given endpoint URL.
func NewClient(baseURL string) *Client {
	return &Client{http: fetcher.NewHTTPClient(baseURL)}
}

func (c *Client) fetchDocument(ctx context.Context) (map[string]json.RawMessage, error) {
	resp, err := c.http.R().SetContext(ctx).Get("")
	if err != nil {
		return nil, fetcher.Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.NewStatusError(resp.StatusCode())
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(resp.Bytes(), &doc); err != nil {
		return nil, fetcher.NewBadPayloadError(err)
	}
	return doc, nil
}

// snapshots extracts the wanted keys from the document. A missing or
// malformed indicator contributes a zero-valued snapshot, never an error.
func (c *Client) snapshots(doc map[string]json.RawMessage, cat market.Category, keys []struct{ symbol, key string }) []market.PriceSnapshot {
	now := time.Now().UTC()
	out := make([]market.PriceSnapshot, 0, len(keys))
	for _, k := range keys {
		var q quote
		if raw, ok := doc[k.key]; ok {
			// Non-object indicator values are left as the zero quote.
			_ = json.Unmarshal(raw, &q)
		}
		out = append(out, market.PriceSnapshot{
			Category:  cat,
			Symbol:    k.symbol,
			Value:     parseNumber(q.P),
			Change24h: parseChange(q.D, q.DT),
			FetchedAt: now,
		})
	}
	return out
}

// GoldSource fetches Iranian gold and coin prices plus ounce/mithqal.
type GoldSource struct {
	client *Client
}

// NewGoldSource creates the gold price source backed by the shared client.
func NewGoldSource(client *Client) *GoldSource {
	return &GoldSource{client: client}
}

// Name identifies the source in logs and results.
func (s *GoldSource) Name() string { return "tgju:gold" }

// Category returns the category this source contributes to.
func (s *GoldSource) Category() market.Category { return market.CategoryGold }

// Fetch retrieves the current gold snapshots.
func (s *GoldSource) Fetch(ctx context.Context) ([]market.PriceSnapshot, error) {
	doc, err := s.client.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.snapshots(doc, market.CategoryGold, goldKeys), nil
}

// CurrencySource fetches foreign-exchange rates.
type CurrencySource struct {
	client *Client
}

// NewCurrencySource creates the FX source backed by the shared client.
func NewCurrencySource(client *Client) *CurrencySource {
	return &CurrencySource{client: client}
}

// Name identifies the source in logs and results.
func (s *CurrencySource) Name() string { return "tgju:currency" }

// Category returns the category this source contributes to.
func (s *CurrencySource) Category() market.Category { return market.CategoryCurrency }

// Fetch retrieves the current FX snapshots.
func (s *CurrencySource) Fetch(ctx context.Context) ([]market.PriceSnapshot, error) {
	doc, err := s.client.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.snapshots(doc, market.CategoryCurrency, currencyKeys), nil
}

// parseNumber parses a TGJU numeric string ("52,340,000") into a float.
// Malformed or empty values normalize to 0.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseChange parses the daily change and applies the direction flag:
// dt "low" means the indicator moved down.
func parseChange(d, dt string) float64 {
	v := parseNumber(strings.TrimSuffix(strings.TrimSpace(d), "%"))
	if strings.EqualFold(strings.TrimSpace(dt), "low") {
		return -v
	}
	return v
}
