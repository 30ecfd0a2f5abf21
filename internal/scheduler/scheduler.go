// Package scheduler drives the background push-refresh of the freshness
// cache, independent of consumer reads.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Refresher is what the scheduler drives on each tick.
type Refresher interface {
	RefreshPrices(ctx context.Context) error
	RefreshNews(ctx context.Context) error
}

// Config holds scheduler configuration.
type Config struct {
	PriceInterval time.Duration // price refresh cadence (default: 30s)
	NewsInterval  time.Duration // news refresh cadence (default: 1h)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PriceInterval: 30 * time.Second,
		NewsInterval:  time.Hour,
	}
}

// Stats are the scheduler's operational counters, for health reporting.
type Stats struct {
	Running          bool      `json:"running"`
	PriceRefreshes   int64     `json:"price_refreshes"`
	NewsRefreshes    int64     `json:"news_refreshes"`
	LastPriceRefresh time.Time `json:"last_price_refresh"`
	LastNewsRefresh  time.Time `json:"last_news_refresh"`
}

// job is one independent periodic refresh loop.
type job struct {
	name     string
	interval time.Duration
	refresh  func(ctx context.Context) error

	inFlight atomic.Bool

	mu          sync.Mutex
	successes   int64
	lastSuccess time.Time
}

// tick runs one refresh unless the previous one is still live; overlapping
// ticks are skipped, never run concurrently. A failed tick is logged and
// the loop simply waits for the next boundary.
func (j *job) tick(ctx context.Context, logger *slog.Logger) {
	if !j.inFlight.CompareAndSwap(false, true) {
		logger.Warn("refresh still running, skipping tick", "job", j.name)
		return
	}
	defer j.inFlight.Store(false)

	if err := j.refresh(ctx); err != nil {
		logger.Error("refresh failed", "job", j.name, "error", err)
		return
	}

	j.mu.Lock()
	j.successes++
	j.lastSuccess = time.Now().UTC()
	j.mu.Unlock()

	logger.Debug("refresh complete", "job", j.name)
}

func (j *job) snapshot() (int64, time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.successes, j.lastSuccess
}

// Scheduler runs the price and news refresh jobs on independent intervals.
type Scheduler struct {
	priceJob *job
	newsJob  *job
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler over the given refresher. A nil logger uses
// slog.Default().
func New(cfg Config, refresher Refresher, logger *slog.Logger) *Scheduler {
	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = DefaultConfig().PriceInterval
	}
	if cfg.NewsInterval <= 0 {
		cfg.NewsInterval = DefaultConfig().NewsInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		priceJob: &job{name: "prices", interval: cfg.PriceInterval, refresh: refresher.RefreshPrices},
		newsJob:  &job{name: "news", interval: cfg.NewsInterval, refresh: refresher.RefreshNews},
		logger:   logger,
	}
}

// Start launches both refresh loops. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, j := range []*job{s.priceJob, s.newsJob} {
		s.wg.Add(1)
		go s.run(j)
	}

	s.logger.Info("scheduler started",
		"price_interval", s.priceJob.interval,
		"news_interval", s.newsJob.interval,
	)
}

// Stop cancels both jobs and waits for in-flight work, bounded by ctx's
// deadline. A refresh abandoned at the deadline discards its result (the
// refresher checks cancellation before writing the cache).
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports the operational counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	running := s.started
	s.mu.Unlock()

	prices, lastPrices := s.priceJob.snapshot()
	news, lastNews := s.newsJob.snapshot()
	return Stats{
		Running:          running,
		PriceRefreshes:   prices,
		NewsRefreshes:    news,
		LastPriceRefresh: lastPrices,
		LastNewsRefresh:  lastNews,
	}
}

// run is one job's loop. The first refresh fires immediately so the cache
// is warm before the first interval elapses.
func (s *Scheduler) run(j *job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	s.dispatch(j)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(j)
		}
	}
}

// dispatch runs one tick off the loop goroutine so a slow refresh never
// delays the ticker; the job's in-flight latch keeps executions from
// overlapping.
func (s *Scheduler) dispatch(j *job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		j.tick(s.ctx, s.logger)
	}()
}
