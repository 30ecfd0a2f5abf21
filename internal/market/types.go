package market

import "time"

// Category identifies a unit of concurrent fetch and caching.
type Category string

const (
	// CategoryGold covers Iranian gold and coin prices plus global ounce/mithqal.
	CategoryGold Category = "gold"
	// CategoryCurrency covers foreign-exchange rates.
	CategoryCurrency Category = "fx"
	// CategoryCrypto covers cryptocurrency market quotes.
	CategoryCrypto Category = "crypto"
	// CategoryNews covers economic news items.
	CategoryNews Category = "news"
)

// PriceSnapshot is a single normalized price observation. Snapshots are
// immutable once created; a newer fetch supersedes, never mutates, them.
// FetchedAt is the time of the fetch that produced the value, so staleness
// is always computable by the consumer.
type PriceSnapshot struct {
	Category  Category  `json:"category"`
	Symbol    string    `json:"symbol"`
	Value     float64   `json:"value"`
	Change24h float64   `json:"change_24h"`
	FetchedAt time.Time `json:"fetched_at"`

	// Crypto-only extras; zero for gold and currency snapshots.
	Name      string  `json:"name,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	Image     string  `json:"image,omitempty"`
}

// NewsItem is a single normalized news entry from a syndication feed.
// Never mutated after creation.
type NewsItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	SourceName  string    `json:"source_name"`
	Summary     string    `json:"summary"`
	Category    Category  `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}
