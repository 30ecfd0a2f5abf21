package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"marketpulse/internal/api"
	"marketpulse/internal/coingecko"
	"marketpulse/internal/coordinator"
	"marketpulse/internal/entitlement"
	"marketpulse/internal/fetcher"
	"marketpulse/internal/marketdata"
	"marketpulse/internal/ratelimit"
	"marketpulse/internal/rss"
	"marketpulse/internal/scheduler"
	"marketpulse/internal/testutil"
	"marketpulse/internal/tgju"
)

const tgjuDocument = `{
	"price_gram_18k": {"p": "4,520,000", "d": "12,000", "dt": "high"},
	"price_gram_24k": {"p": "6,030,000", "d": "8,000", "dt": "low"},
	"coin_emami":     {"p": "52,340,000", "d": "150,000", "dt": "high"},
	"price_dollar_rl": {"p": "580,100", "d": "900", "dt": "high"},
	"price_eur":      {"p": "671,400", "d": "1,100", "dt": "low"}
}`

const coingeckoDocument = `[
	{"id": "bitcoin", "symbol": "btc", "name": "Bitcoin", "current_price": 95000.5,
	 "price_change_percentage_24h": 1.8, "market_cap": 1870000000000, "total_volume": 42000000000},
	{"id": "ethereum", "symbol": "eth", "name": "Ethereum", "current_price": 4200.1,
	 "price_change_percentage_24h": -0.6, "market_cap": 505000000000, "total_volume": 19000000000}
]`

const rssDocument = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Tasnim Economy</title>
<item><title>Gold sets a new record</title><link>https://news.example/1</link>
<description>Gold closed higher today.</description>
<pubDate>Thu, 28 Aug 2026 09:00:00 +0000</pubDate></item>
<item><title>Gold sets a new record!!</title><link>https://news.example/1-mirror</link>
<description>Syndicated copy.</description>
<pubDate>Thu, 28 Aug 2026 08:30:00 +0000</pubDate></item>
<item><title>Currency market calms down</title><link>https://news.example/2</link>
<description>The dollar held steady.</description>
<pubDate>Thu, 28 Aug 2026 08:00:00 +0000</pubDate></item>
</channel></rss>`

// memberUsers resolves every caller to a user subscribed to @market_pulse.
type memberUsers struct{}

func (memberUsers) User(ctx context.Context, id int64) (*entitlement.User, error) {
	return &entitlement.User{
		ID:             id,
		JoinedChannels: map[string]time.Time{"@market_pulse": time.Now()},
	}, nil
}

// strangerUsers resolves every caller to a user with no joined channels.
type strangerUsers struct{}

func (strangerUsers) User(ctx context.Context, id int64) (*entitlement.User, error) {
	return &entitlement.User{ID: id}, nil
}

type pipeline struct {
	router     http.Handler
	sched      *scheduler.Scheduler
	tgjuCalls  *atomic.Int32
	geckoCalls *atomic.Int32
}

// newPipeline wires the whole stack against mock upstreams: real adapters,
// coordinator, cache-backed service, scheduler and HTTP surface.
func newPipeline(t *testing.T, users api.UserSource) *pipeline {
	t.Helper()

	var tgjuCalls, geckoCalls atomic.Int32

	tgjuServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tgjuCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tgjuDocument))
	}))
	t.Cleanup(tgjuServer.Close)

	geckoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geckoCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(coingeckoDocument))
	}))
	t.Cleanup(geckoServer.Close)

	rssServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssDocument))
	}))
	t.Cleanup(rssServer.Close)

	limiter := ratelimit.New(map[ratelimit.API]rate.Limit{
		ratelimit.APICoinGecko: ratelimit.PerMinute(6000),
	})

	tgjuClient := tgju.NewClient(tgjuServer.URL)
	prices := []fetcher.PriceSource{
		tgju.NewGoldSource(tgjuClient),
		tgju.NewCurrencySource(tgjuClient),
		coingecko.NewMarketsSource(geckoServer.URL, []string{"bitcoin", "ethereum"}, limiter),
	}
	feeds := []fetcher.NewsSource{rss.NewFeedSource(rssServer.URL, 10)}

	coord := coordinator.New(prices, feeds, 5*time.Second, nil)
	svc := marketdata.NewService(coord, 30*time.Second, 30*time.Minute, 5, nil)

	gate := entitlement.NewGate(&testutil.StaticChannels{
		Channels: []entitlement.Channel{
			{Username: "@market_pulse", Title: "Market Pulse", Active: true, CreatedAt: time.Now()},
		},
	}, &testutil.MemoryUserStore{}, 3, nil)

	sched := scheduler.New(scheduler.DefaultConfig(), svc, nil)

	return &pipeline{
		router:     api.NewRouter(svc, gate, users, sched, nil),
		sched:      sched,
		tgjuCalls:  &tgjuCalls,
		geckoCalls: &geckoCalls,
	}
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-User-ID", "42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIntegration_FullPriceBoard(t *testing.T) {
	p := newPipeline(t, memberUsers{})

	rec := get(t, p.router, "/v1/prices")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/prices = %d, want 200; body: %s", rec.Code, rec.Body)
	}

	var all marketdata.AllPrices
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}

	if len(all.Gold) != 8 {
		t.Errorf("gold board has %d rows, want every configured indicator (8)", len(all.Gold))
	}
	if len(all.Currency) != 5 {
		t.Errorf("currency board has %d rows, want 5", len(all.Currency))
	}
	if len(all.Crypto) != 2 {
		t.Errorf("crypto board has %d rows, want 2", len(all.Crypto))
	}
	if all.Bitcoin == nil || all.Bitcoin.Value != 95000.5 {
		t.Errorf("bitcoin not surfaced from the crypto rows: %+v", all.Bitcoin)
	}

	for _, snap := range all.Gold {
		if snap.Symbol == "gold_18k" && snap.Value != 4520000 {
			t.Errorf("gold_18k value = %v, want separators stripped (4520000)", snap.Value)
		}
		if snap.Symbol == "gold_24k" && snap.Change24h != -8000 {
			t.Errorf("gold_24k change = %v, want the low direction negated (-8000)", snap.Change24h)
		}
	}
}

func TestIntegration_CacheAbsorbsRepeatReads(t *testing.T) {
	p := newPipeline(t, memberUsers{})

	for i := 0; i < 4; i++ {
		if rec := get(t, p.router, "/v1/prices/gold"); rec.Code != http.StatusOK {
			t.Fatalf("GET /v1/prices/gold = %d, want 200", rec.Code)
		}
	}

	// The gold key warms on the first read; every later read within the TTL
	// is a cache hit and never touches the upstream.
	if calls := p.tgjuCalls.Load(); calls != 1 {
		t.Errorf("upstream saw %d requests for 4 reads, want 1", calls)
	}
	if calls := p.geckoCalls.Load(); calls != 0 {
		t.Errorf("a gold read reached the crypto upstream %d times, want 0", calls)
	}
}

func TestIntegration_NewsDeduplicated(t *testing.T) {
	p := newPipeline(t, memberUsers{})

	rec := get(t, p.router, "/v1/news?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/news = %d, want 200", rec.Code)
	}

	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}

	// The feed carries a syndicated near-duplicate of the gold story; only
	// the newer copy survives.
	if len(items) != 2 {
		t.Fatalf("news returned %d items, want 2 after deduplication", len(items))
	}
	if items[0]["title"] != "Gold sets a new record" {
		t.Errorf("first item = %v, want the newest gold story", items[0]["title"])
	}
	if items[1]["title"] != "Currency market calms down" {
		t.Errorf("second item = %v, want the currency story", items[1]["title"])
	}
}

func TestIntegration_EntitlementDenial(t *testing.T) {
	p := newPipeline(t, strangerUsers{})

	rec := get(t, p.router, "/v1/prices")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("GET /v1/prices = %d, want 403 for a non-subscriber", rec.Code)
	}

	var decision entitlement.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("denial body is not valid JSON: %v", err)
	}
	if decision.Allowed {
		t.Error("denial body claims Allowed=true")
	}
	if decision.Reason != entitlement.ReasonNotSubscribed {
		t.Errorf("denial reason = %q, want %q", decision.Reason, entitlement.ReasonNotSubscribed)
	}
	if len(decision.MissingChannels) != 1 || decision.MissingChannels[0] != "@market_pulse" {
		t.Errorf("missing channels = %v, want [@market_pulse]", decision.MissingChannels)
	}
}

func TestIntegration_HealthAndStatus(t *testing.T) {
	p := newPipeline(t, memberUsers{})

	if rec := get(t, p.router, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rec.Code)
	}

	rec := get(t, p.router, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d, want 200", rec.Code)
	}
	var stats scheduler.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("status body is not valid JSON: %v", err)
	}
	if stats.Running {
		t.Error("scheduler reports running before Start")
	}
}

func TestIntegration_SchedulerWarmsCaches(t *testing.T) {
	p := newPipeline(t, memberUsers{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.sched.Start(ctx)
	defer p.sched.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	for p.tgjuCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never refreshed the price upstream")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// The scheduler's push write serves the read path without another
	// upstream request.
	warmed := p.tgjuCalls.Load()
	if rec := get(t, p.router, "/v1/prices"); rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/prices = %d, want 200", rec.Code)
	}
	if calls := p.tgjuCalls.Load(); calls != warmed {
		t.Errorf("read after refresh reached the upstream (%d -> %d calls)", warmed, calls)
	}
}
