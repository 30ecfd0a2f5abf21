package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketpulse/internal/fetcher"
	"marketpulse/internal/market"
)

const defaultTimeout = 10 * time.Second

// Coordinator fans fetches out across sources and merges whatever succeeds.
// A failed or slow source is logged and contributes nothing; it never fails
// or delays the category beyond its own time box.
type Coordinator struct {
	prices  []fetcher.PriceSource
	feeds   []fetcher.NewsSource
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Coordinator over the given sources. timeout is the
// per-source time box; <=0 means 10s. A nil logger uses slog.Default().
func New(prices []fetcher.PriceSource, feeds []fetcher.NewsSource, timeout time.Duration, logger *slog.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		prices:  prices,
		feeds:   feeds,
		timeout: timeout,
		logger:  logger,
	}
}

// FetchPrices executes all price sources for the given categories
// concurrently, each in its own goroutine under its own deadline, and
// merges the successful results. With no categories given, every price
// source runs.
//
// Partial failure is absorbed: the merged slice contains exactly the
// snapshots of the sources that succeeded. Only when every launched source
// fails does FetchPrices return an error wrapping fetcher.ErrAllSourcesFailed.
func (c *Coordinator) FetchPrices(ctx context.Context, categories ...market.Category) ([]market.PriceSnapshot, error) {
	sources := c.selectSources(categories)
	if len(sources) == 0 {
		return nil, fmt.Errorf("no price sources configured for %v", categories)
	}

	resultChan := make(chan fetcher.PriceResult, len(sources))

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(s fetcher.PriceSource) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			snapshots, err := s.Fetch(fetchCtx)
			resultChan <- fetcher.PriceResult{
				Source:    s.Name(),
				Category:  s.Category(),
				Snapshots: snapshots,
				Err:       err,
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var merged []market.PriceSnapshot
	failed := 0
	for result := range resultChan {
		if result.Err != nil {
			failed++
			c.logger.Warn("price source failed",
				"source", result.Source,
				"category", result.Category,
				"error", result.Err)
			continue
		}
		merged = append(merged, result.Snapshots...)
	}

	if failed == len(sources) {
		return nil, fmt.Errorf("fetch prices %v: %w", categories, fetcher.ErrAllSourcesFailed)
	}
	return merged, nil
}

// FetchNews executes all feed sources concurrently and merges the
// successful results. The combined pool is raw: ordering and deduplication
// are the dedup engine's job downstream.
func (c *Coordinator) FetchNews(ctx context.Context) ([]market.NewsItem, error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("no news feeds configured")
	}

	resultChan := make(chan fetcher.NewsResult, len(c.feeds))

	var wg sync.WaitGroup
	for _, src := range c.feeds {
		wg.Add(1)
		go func(s fetcher.NewsSource) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			items, err := s.Fetch(fetchCtx)
			resultChan <- fetcher.NewsResult{Source: s.Name(), Items: items, Err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var merged []market.NewsItem
	failed := 0
	for result := range resultChan {
		if result.Err != nil {
			failed++
			c.logger.Warn("news feed failed",
				"source", result.Source,
				"error", result.Err)
			continue
		}
		merged = append(merged, result.Items...)
	}

	if failed == len(c.feeds) {
		return nil, fmt.Errorf("fetch news: %w", fetcher.ErrAllSourcesFailed)
	}
	return merged, nil
}

// selectSources returns the price sources serving any of the categories;
// an empty category list selects all of them.
func (c *Coordinator) selectSources(categories []market.Category) []fetcher.PriceSource {
	if len(categories) == 0 {
		return c.prices
	}
	var out []fetcher.PriceSource
	for _, src := range c.prices {
		for _, cat := range categories {
			if src.Category() == cat {
				out = append(out, src)
				break
			}
		}
	}
	return out
}
