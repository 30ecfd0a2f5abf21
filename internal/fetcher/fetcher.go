package fetcher

import (
	"context"

	"marketpulse/internal/market"
)

// PriceSource is the core interface every price adapter implements.
// Each source talks to exactly one upstream endpoint and one wire format,
// normalizes responses into market.PriceSnapshot values and fails
// independently of its peers.
//
// Malformed or missing numeric fields normalize to 0 rather than aborting
// the fetch; only total connectivity failure (timeout, non-2xx status,
// unparsable payload) surfaces as a *FetchError.
type PriceSource interface {
	// Fetch retrieves and normalizes the source's current snapshots.
	Fetch(ctx context.Context) ([]market.PriceSnapshot, error)

	// Name identifies the source in logs and results.
	// Format: {upstream}:{segment}
	// Examples:
	//   - tgju:gold
	//   - tgju:currency
	//   - coingecko:markets
	Name() string

	// Category returns the category this source contributes to.
	Category() market.Category
}

// NewsSource is the contract for a single syndication-feed adapter.
type NewsSource interface {
	// Fetch retrieves the feed's most recent entries, normalized.
	Fetch(ctx context.Context) ([]market.NewsItem, error)

	// Name identifies the feed in logs, e.g. "rss:tasnimnews.com".
	Name() string
}
