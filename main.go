package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"marketpulse/internal/api"
	"marketpulse/internal/coingecko"
	"marketpulse/internal/config"
	"marketpulse/internal/coordinator"
	"marketpulse/internal/entitlement"
	"marketpulse/internal/fetcher"
	"marketpulse/internal/marketdata"
	"marketpulse/internal/ratelimit"
	"marketpulse/internal/rss"
	"marketpulse/internal/scheduler"
	"marketpulse/internal/tgju"
)

// shutdownGrace bounds how long an in-flight refresh may delay process exit.
const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	limiter := ratelimit.New(map[ratelimit.API]rate.Limit{
		ratelimit.APICoinGecko: ratelimit.PerMinute(cfg.CoinGeckoRPM),
	})

	// Price sources: gold and currency share one TGJU client.
	tgjuClient := tgju.NewClient(cfg.TGJUBaseURL)
	prices := []fetcher.PriceSource{
		tgju.NewGoldSource(tgjuClient),
		tgju.NewCurrencySource(tgjuClient),
		coingecko.NewMarketsSource(cfg.CoinGeckoBaseURL, cfg.CryptoCoinIDs, limiter),
	}

	feeds := make([]fetcher.NewsSource, 0, len(cfg.NewsFeeds))
	for _, feedURL := range cfg.NewsFeeds {
		feeds = append(feeds, rss.NewFeedSource(feedURL, cfg.FeedEntryLimit))
	}

	coord := coordinator.New(prices, feeds, cfg.FetchTimeout, logger)
	svc := marketdata.NewService(coord, cfg.PriceCacheTTL, cfg.NewsCacheTTL, cfg.NewsLimit, logger)

	sched := scheduler.New(scheduler.Config{
		PriceInterval: cfg.PriceUpdateInterval,
		NewsInterval:  cfg.NewsUpdateInterval,
	}, svc, logger)
	sched.Start(ctx)

	// Entitlement data comes from external collaborators; the process
	// boundary wires stubs until a real store is attached.
	gate := entitlement.NewGate(noChannels{}, nil, cfg.RequiredChannelsCount, logger)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(svc, gate, openUsers{}, sched, logger),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	select {
	case <-sigChan:
		logger.Info("received interrupt signal, shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown incomplete", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler shutdown incomplete", "error", err)
	}
}

// noChannels is the empty channel requirement: everyone passes the
// subscription check until a channel store is wired in.
type noChannels struct{}

func (noChannels) RequiredChannels(ctx context.Context) ([]entitlement.Channel, error) {
	return nil, nil
}

// openUsers mints a bare record for any caller id. Combined with the empty
// channel requirement this leaves the gate open, matching the stubbed
// membership verification until a real user store is attached.
type openUsers struct{}

func (openUsers) User(ctx context.Context, id int64) (*entitlement.User, error) {
	return &entitlement.User{ID: id}, nil
}
