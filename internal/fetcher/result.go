package fetcher

import "marketpulse/internal/market"

// PriceResult represents the outcome of one price source's fetch.
// It's designed to be sent through channels from worker goroutines
// to the coordinator that merges results per category.
type PriceResult struct {
	// Source is the Name() of the source that produced this result.
	Source string

	// Category is the category the source contributes to.
	Category market.Category

	// Snapshots holds the normalized payload on success.
	Snapshots []market.PriceSnapshot

	// Err contains any error that occurred during the fetch operation.
	// If Err is not nil, Snapshots should be considered invalid.
	Err error
}

// NewsResult represents the outcome of one feed's fetch.
type NewsResult struct {
	// Source is the Name() of the feed that produced this result.
	Source string

	// Items holds the normalized entries on success.
	Items []market.NewsItem

	// Err contains any error that occurred during the fetch operation.
	Err error
}
