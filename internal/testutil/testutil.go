package testutil

import (
	"context"
	"sync"
	"time"

	"marketpulse/internal/entitlement"
	"marketpulse/internal/market"
)

// MockPriceSource is a mock implementation of the fetcher.PriceSource
// interface for testing
type MockPriceSource struct {
	FetchFunc    func(ctx context.Context) ([]market.PriceSnapshot, error)
	NameFunc     func() string
	CategoryFunc func() market.Category
}

// Fetch implements the PriceSource interface
func (m *MockPriceSource) Fetch(ctx context.Context) ([]market.PriceSnapshot, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return nil, nil
}

// Name implements the PriceSource interface
func (m *MockPriceSource) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock:prices"
}

// Category implements the PriceSource interface
func (m *MockPriceSource) Category() market.Category {
	if m.CategoryFunc != nil {
		return m.CategoryFunc()
	}
	return market.CategoryGold
}

// NewMockPriceSource creates a simple mock source with predefined values
func NewMockPriceSource(name string, cat market.Category, snaps []market.PriceSnapshot, err error) *MockPriceSource {
	return &MockPriceSource{
		FetchFunc: func(ctx context.Context) ([]market.PriceSnapshot, error) {
			return snaps, err
		},
		NameFunc:     func() string { return name },
		CategoryFunc: func() market.Category { return cat },
	}
}

// MockNewsSource is a mock implementation of the fetcher.NewsSource
// interface for testing
type MockNewsSource struct {
	FetchFunc func(ctx context.Context) ([]market.NewsItem, error)
	NameFunc  func() string
}

// Fetch implements the NewsSource interface
func (m *MockNewsSource) Fetch(ctx context.Context) ([]market.NewsItem, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return nil, nil
}

// Name implements the NewsSource interface
func (m *MockNewsSource) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock:feed"
}

// NewMockNewsSource creates a simple mock feed with predefined values
func NewMockNewsSource(name string, items []market.NewsItem, err error) *MockNewsSource {
	return &MockNewsSource{
		FetchFunc: func(ctx context.Context) ([]market.NewsItem, error) {
			return items, err
		},
		NameFunc: func() string { return name },
	}
}

// StaticChannels is an in-memory entitlement.ChannelSource
type StaticChannels struct {
	Channels []entitlement.Channel
	Err      error
}

// RequiredChannels implements entitlement.ChannelSource
func (s *StaticChannels) RequiredChannels(ctx context.Context) ([]entitlement.Channel, error) {
	return s.Channels, s.Err
}

// MemoryUserStore is an in-memory entitlement.UserStore recording
// compliance writes
type MemoryUserStore struct {
	mu     sync.Mutex
	marked map[int64]int
	Err    error
}

// MarkChannelsJoined implements entitlement.UserStore
func (s *MemoryUserStore) MarkChannelsJoined(ctx context.Context, userID int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marked == nil {
		s.marked = make(map[int64]int)
	}
	s.marked[userID]++
	return nil
}

// MarkCount reports how many times userID's compliance was persisted
func (s *MemoryUserStore) MarkCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marked[userID]
}

// Snapshot builds a PriceSnapshot for tests
func Snapshot(cat market.Category, symbol string, value float64) market.PriceSnapshot {
	return market.PriceSnapshot{
		Category:  cat,
		Symbol:    symbol,
		Value:     value,
		FetchedAt: time.Now().UTC(),
	}
}

// Item builds a NewsItem for tests
func Item(title, link string, published time.Time) market.NewsItem {
	return market.NewsItem{
		Title:       title,
		Link:        link,
		SourceName:  "test source",
		Category:    market.CategoryNews,
		PublishedAt: published,
		FetchedAt:   time.Now().UTC(),
	}
}
