// Package marketdata exposes the consumer-facing read API over the fetch
// pipeline. Every read goes through the freshness cache; upstream failures
// degrade to the last known value, then to an explicitly empty payload.
// A consumer never sees a raw fetch error.
package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marketpulse/internal/cache"
	"marketpulse/internal/coordinator"
	"marketpulse/internal/market"
	"marketpulse/internal/news"
)

// Cache keys. The price key space is fixed; news gets one key per
// requested limit.
const (
	keyAllPrices = "prices:all"
	keyGold      = "prices:gold"
	keyCurrency  = "prices:fx"
	keyCrypto    = "prices:crypto"
)

func newsKey(limit int) string { return fmt.Sprintf("news:%d", limit) }

// AllPrices is the combined view across all price categories, with bitcoin
// surfaced for quick access.
type AllPrices struct {
	Gold     []market.PriceSnapshot `json:"gold"`
	Currency []market.PriceSnapshot `json:"currency"`
	Crypto   []market.PriceSnapshot `json:"crypto"`
	Bitcoin  *market.PriceSnapshot  `json:"bitcoin,omitempty"`
}

// Service owns the coordinator and the freshness caches.
type Service struct {
	coord  *coordinator.Coordinator
	prices *cache.Store[[]market.PriceSnapshot]
	news   *cache.Store[[]market.NewsItem]

	priceTTL  time.Duration
	newsTTL   time.Duration
	newsLimit int

	logger *slog.Logger
}

// NewService creates the read service. newsLimit is the default result
// size used by the background refresh. A nil logger uses slog.Default().
func NewService(coord *coordinator.Coordinator, priceTTL, newsTTL time.Duration, newsLimit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if newsLimit <= 0 {
		newsLimit = 5
	}
	return &Service{
		coord:     coord,
		prices:    cache.New[[]market.PriceSnapshot](),
		news:      cache.New[[]market.NewsItem](),
		priceTTL:  priceTTL,
		newsTTL:   newsTTL,
		newsLimit: newsLimit,
		logger:    logger,
	}
}

// GetAllPrices returns the combined gold, currency and crypto view.
func (s *Service) GetAllPrices(ctx context.Context) AllPrices {
	merged := s.getPrices(ctx, keyAllPrices)

	var all AllPrices
	for _, snap := range merged {
		switch snap.Category {
		case market.CategoryGold:
			all.Gold = append(all.Gold, snap)
		case market.CategoryCurrency:
			all.Currency = append(all.Currency, snap)
		case market.CategoryCrypto:
			all.Crypto = append(all.Crypto, snap)
		}
	}
	for i := range all.Crypto {
		if all.Crypto[i].Symbol == "btc" {
			all.Bitcoin = &all.Crypto[i]
			break
		}
	}
	return all
}

// GetGoldPrices returns the cached gold and coin snapshots.
func (s *Service) GetGoldPrices(ctx context.Context) []market.PriceSnapshot {
	return s.getPrices(ctx, keyGold, market.CategoryGold)
}

// GetCurrencyPrices returns the cached foreign-exchange snapshots.
func (s *Service) GetCurrencyPrices(ctx context.Context) []market.PriceSnapshot {
	return s.getPrices(ctx, keyCurrency, market.CategoryCurrency)
}

// GetCryptoPrices returns up to limit crypto quotes. The full configured
// universe is cached under one key; the limit is applied at read time.
func (s *Service) GetCryptoPrices(ctx context.Context, limit int) []market.PriceSnapshot {
	quotes := s.getPrices(ctx, keyCrypto, market.CategoryCrypto)
	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}
	return quotes
}

// GetLatestNews returns up to limit deduplicated news items, newest first.
// Deduplication runs over the full combined feed pool before the limit is
// applied, so a duplicate never shields a fresh story from the cut.
func (s *Service) GetLatestNews(ctx context.Context, limit int) []market.NewsItem {
	if limit <= 0 {
		limit = s.newsLimit
	}

	items, err := s.news.GetOrFetch(ctx, newsKey(limit), s.newsTTL, func(ctx context.Context) ([]market.NewsItem, error) {
		pool, err := s.coord.FetchNews(ctx)
		if err != nil {
			return nil, err
		}
		deduped := news.Dedupe(pool)
		if len(deduped) > limit {
			deduped = deduped[:limit]
		}
		return deduped, nil
	})
	if err != nil {
		s.logger.Error("news unavailable, serving empty payload", "error", err)
		return []market.NewsItem{}
	}
	if items == nil {
		items = []market.NewsItem{}
	}
	return items
}

// GetPrice is a convenience lookup for a single well-known symbol.
// It accepts the common aliases, including the Persian ones.
func (s *Service) GetPrice(ctx context.Context, symbol string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(symbol)) {
	case "gold", "طلا":
		return findValue(s.GetGoldPrices(ctx), "gold_24k")
	case "usd", "دلار":
		return findValue(s.GetCurrencyPrices(ctx), "usd")
	case "btc", "bitcoin", "بیت‌کوین":
		return findValue(s.GetCryptoPrices(ctx, 0), "btc")
	}
	return 0, false
}

// RefreshPrices is the scheduler's push entry point: it fetches every price
// category and writes through the cache unconditionally. Results arriving
// after ctx is canceled are discarded rather than resurrected into the
// cache.
func (s *Service) RefreshPrices(ctx context.Context) error {
	merged, err := s.coord.FetchPrices(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	byCategory := make(map[market.Category][]market.PriceSnapshot, 3)
	for _, snap := range merged {
		byCategory[snap.Category] = append(byCategory[snap.Category], snap)
	}

	s.prices.Put(keyAllPrices, merged, s.priceTTL)
	if gold, ok := byCategory[market.CategoryGold]; ok {
		s.prices.Put(keyGold, gold, s.priceTTL)
	}
	if fx, ok := byCategory[market.CategoryCurrency]; ok {
		s.prices.Put(keyCurrency, fx, s.priceTTL)
	}
	if crypto, ok := byCategory[market.CategoryCrypto]; ok {
		s.prices.Put(keyCrypto, crypto, s.priceTTL)
	}
	return nil
}

// RefreshNews is the scheduler's push entry point for the news category.
func (s *Service) RefreshNews(ctx context.Context) error {
	pool, err := s.coord.FetchNews(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	deduped := news.Dedupe(pool)
	if len(deduped) > s.newsLimit {
		deduped = deduped[:s.newsLimit]
	}
	s.news.Put(newsKey(s.newsLimit), deduped, s.newsTTL)
	return nil
}

// getPrices reads one price key through the cache, fetching the named
// categories on a miss. Failure with no previous value degrades to an
// empty, non-nil slice.
func (s *Service) getPrices(ctx context.Context, key string, categories ...market.Category) []market.PriceSnapshot {
	snaps, err := s.prices.GetOrFetch(ctx, key, s.priceTTL, func(ctx context.Context) ([]market.PriceSnapshot, error) {
		return s.coord.FetchPrices(ctx, categories...)
	})
	if err != nil {
		s.logger.Error("prices unavailable, serving empty payload", "key", key, "error", err)
		return []market.PriceSnapshot{}
	}
	if snaps == nil {
		snaps = []market.PriceSnapshot{}
	}
	return snaps
}

func findValue(snaps []market.PriceSnapshot, symbol string) (float64, bool) {
	for _, snap := range snaps {
		if snap.Symbol == symbol {
			return snap.Value, true
		}
	}
	return 0, false
}
