package rss

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"resty.dev/v3"

	"marketpulse/internal/fetcher"
	"marketpulse/internal/market"
)

const (
	maxTitleLen   = 200
	maxSummaryLen = 300
)

// sourceNames maps a URL substring to a human-readable source name, used
// when a feed document carries no title of its own.
var sourceNames = map[string]string{
	"tasnimnews": "Tasnim News",
	"farsnews":   "Fars News",
	"mehrnews":   "Mehr News",
	"isna":       "ISNA",
	"irna":       "IRNA",
	"eghtesad":   "Eghtesad Online",
}

const unknownSource = "unknown source"

// FeedSource fetches and normalizes a single syndication feed.
type FeedSource struct {
	feedURL    string
	entryLimit int
	client     *resty.Client
	parser     *gofeed.Parser
}

// NewFeedSource creates a news source for one feed URL. entryLimit caps the
// number of most-recent entries taken per fetch; <=0 means 10.
func NewFeedSource(feedURL string, entryLimit int) *FeedSource {
	if entryLimit <= 0 {
		entryLimit = 10
	}
	return &FeedSource{
		feedURL:    feedURL,
		entryLimit: entryLimit,
		client:     fetcher.NewHTTPClient(""),
		parser:     gofeed.NewParser(),
	}
}

// Name identifies the feed in logs, e.g. "rss:tasnimnews.com".
func (s *FeedSource) Name() string {
	if u, err := url.Parse(s.feedURL); err == nil && u.Host != "" {
		return "rss:" + u.Host
	}
	return "rss:" + s.feedURL
}

// Fetch retrieves the feed document and normalizes its most recent entries.
func (s *FeedSource) Fetch(ctx context.Context) ([]market.NewsItem, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml").
		Get(s.feedURL)
	if err != nil {
		return nil, fetcher.Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.NewStatusError(resp.StatusCode())
	}

	feed, err := s.parser.ParseString(resp.String())
	if err != nil {
		return nil, fetcher.NewBadPayloadError(err)
	}

	source := s.sourceName(feed)
	now := time.Now().UTC()

	entries := feed.Items
	if len(entries) > s.entryLimit {
		entries = entries[:s.entryLimit]
	}

	items := make([]market.NewsItem, 0, len(entries))
	for _, entry := range entries {
		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		items = append(items, market.NewsItem{
			Title:       clip(cleanText(entry.Title), maxTitleLen),
			Link:        strings.TrimSpace(entry.Link),
			SourceName:  source,
			Summary:     clip(cleanText(entry.Description), maxSummaryLen),
			Category:    market.CategoryNews,
			PublishedAt: published,
			FetchedAt:   now,
		})
	}
	return items, nil
}

// sourceName prefers the feed's own title, falls back to a URL-substring
// lookup, then to a fixed placeholder.
func (s *FeedSource) sourceName(feed *gofeed.Feed) string {
	if name := strings.TrimSpace(cleanText(feed.Title)); name != "" {
		return name
	}
	lower := strings.ToLower(s.feedURL)
	for fragment, name := range sourceNames {
		if strings.Contains(lower, fragment) {
			return name
		}
	}
	return unknownSource
}

// cleanText strips markup tags and HTML escapes from feed text.
func cleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(html.UnescapeString(b.String()))
}

// clip truncates to n runes, marking truncation with an ellipsis.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return fmt.Sprintf("%s...", strings.TrimSpace(string(runes[:n-3])))
}
