// Package refresh orchestrates periodic and manual leaderboard refreshes:
// fetch, normalize, rank, pad, then write through to the cache. Failed
// fetches fall back to the last known good data, the cache, or padded
// placeholders, so a view is never blank.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/streamingshack/race-api/internal/cache"
	"github.com/streamingshack/race-api/internal/logic"
	"github.com/streamingshack/race-api/internal/models"
)

// ErrCooldown is returned when a manual refresh arrives inside the
// cooldown window.
var ErrCooldown = errors.New("manual refresh on cooldown")

// Prometheus metrics
var (
	refreshSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "race_refresh_success_total",
		Help: "Total number of successful leaderboard refreshes",
	})

	refreshFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "race_refresh_failure_total",
		Help: "Total number of failed leaderboard refreshes",
	})

	manualBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "race_manual_refresh_blocked_total",
		Help: "Total number of manual refreshes rejected by the cooldown",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "race_cache_hits_total",
		Help: "Total number of snapshot reads served from a fresh cache entry",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "race_cache_misses_total",
		Help: "Total number of snapshot reads that found no fresh cache entry",
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "race_upstream_fetch_duration_seconds",
		Help:    "Duration of upstream affiliate API fetches",
		Buckets: prometheus.DefBuckets,
	})
)

// Fetcher retrieves normalized standings for a date range.
type Fetcher interface {
	FetchEntries(ctx context.Context, rng models.DateRange) ([]models.LeaderboardEntry, error)
}

// Config configures the controller.
type Config struct {
	Fetcher      Fetcher
	Cache        *cache.Leaderboard
	Range        logic.RangeConfig
	Prizes       map[int]float64
	Rows         int
	PollInterval time.Duration
	Cooldown     time.Duration
	Logger       *zap.Logger
}

// Controller owns the refresh state machine for every date range this
// process serves. Refreshes for the same range are collapsed through a
// singleflight group so a slow automatic refresh can never land after, and
// overwrite, a newer manual one.
type Controller struct {
	fetcher      Fetcher
	cache        *cache.Leaderboard
	rangeCfg     logic.RangeConfig
	prizes       map[int]float64
	rows         int
	pollInterval time.Duration
	cooldown     time.Duration
	logger       *zap.SugaredLogger

	group singleflight.Group

	mu   sync.RWMutex
	live map[string]*models.Snapshot // last known good per range key

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

func NewController(cfg Config) *Controller {
	if cfg.Rows <= 0 {
		cfg.Rows = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Minute
	}
	return &Controller{
		fetcher:      cfg.Fetcher,
		cache:        cfg.Cache,
		rangeCfg:     cfg.Range,
		prizes:       cfg.Prizes,
		rows:         cfg.Rows,
		pollInterval: cfg.PollInterval,
		cooldown:     cfg.Cooldown,
		logger:       cfg.Logger.Sugar(),
		live:         make(map[string]*models.Snapshot),
		now:          time.Now,
	}
}

// Start launches the polling loop and kicks an initial background refresh
// of the current window.
func (c *Controller) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.poll()

	go func() {
		if err := c.Refresh(c.CurrentRange()); err != nil {
			c.logger.Warnw("Initial refresh failed", "error", err)
		}
	}()

	c.logger.Infow("Refresh controller started",
		"pollInterval", c.pollInterval,
		"cooldown", c.cooldown,
	)
}

// Stop cancels the polling loop. An in-flight fetch is not aborted; its
// result is discarded instead of applied.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("Refresh controller stopped")
}

func (c *Controller) poll() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Re-resolve each tick so a rolling window moves with the clock.
			rng := c.CurrentRange()
			if err := c.Refresh(rng); err != nil {
				c.logger.Warnw("Periodic refresh failed", "from", rng.From, "to", rng.To, "error", err)
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// CurrentRange resolves the active window without query overrides.
func (c *Controller) CurrentRange() models.DateRange {
	return logic.ResolveRange(nil, c.rangeCfg, c.now())
}

// Snapshot returns the best available standings for a range without ever
// failing: fresh live state or cache if available, otherwise it kicks a
// background refresh and serves stale data or placeholders meanwhile.
func (c *Controller) Snapshot(ctx context.Context, rng models.DateRange) *models.Snapshot {
	key := rangeKey(rng)
	now := c.now()

	c.mu.RLock()
	live := c.live[key]
	c.mu.RUnlock()

	if c.cache.IsFresh(live, now) {
		return live
	}

	cached := c.cache.Read(ctx, rng)
	if c.cache.IsFresh(cached, now) {
		cacheHits.Inc()
		c.mu.Lock()
		c.live[key] = cached
		c.mu.Unlock()
		return cached
	}
	cacheMisses.Inc()

	go func() {
		if err := c.Refresh(rng); err != nil {
			c.logger.Warnw("Background refresh failed", "from", rng.From, "to", rng.To, "error", err)
		}
	}()

	if live != nil {
		return live
	}
	if cached != nil {
		return cached
	}
	return c.Placeholder()
}

// Standings refreshes synchronously when no fresh data exists and returns
// the result. On fetch failure it still returns the best fallback along
// with the error so callers can decide whether to degrade or abort.
func (c *Controller) Standings(ctx context.Context, rng models.DateRange) (*models.Snapshot, error) {
	key := rangeKey(rng)
	now := c.now()

	c.mu.RLock()
	live := c.live[key]
	c.mu.RUnlock()
	if c.cache.IsFresh(live, now) {
		return live, nil
	}

	cached := c.cache.Read(ctx, rng)
	if c.cache.IsFresh(cached, now) {
		cacheHits.Inc()
		return cached, nil
	}
	cacheMisses.Inc()

	if err := c.Refresh(rng); err != nil {
		if live != nil {
			return live, err
		}
		if cached != nil {
			return cached, err
		}
		return c.Placeholder(), err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live[key], nil
}

// ManualRefresh enforces the per-range cooldown before refreshing. When
// blocked it returns the remaining wait and ErrCooldown without touching
// the cooldown stamp. The stamp is written only after a successful fetch;
// a failed refresh does not start the cooldown, so the user can retry
// immediately.
func (c *Controller) ManualRefresh(ctx context.Context, rng models.DateRange) (time.Duration, error) {
	now := c.now()
	last := c.cache.LastManual(ctx, rng)
	if !last.IsZero() {
		if elapsed := now.Sub(last); elapsed < c.cooldown {
			manualBlocked.Inc()
			return c.cooldown - elapsed, ErrCooldown
		}
	}

	if err := c.Refresh(rng); err != nil {
		return 0, err
	}
	c.cache.StampManual(ctx, rng, now)
	return 0, nil
}

// Refresh fetches, ranks, and stores standings for a range. Concurrent
// calls for the same range share one upstream fetch.
func (c *Controller) Refresh(rng models.DateRange) error {
	key := rangeKey(rng)
	_, err, _ := c.group.Do(key, func() (interface{}, error) {
		// The fetch is deliberately not tied to any caller's context; the
		// client timeout bounds it.
		start := time.Now()
		entries, err := c.fetcher.FetchEntries(context.Background(), rng)
		fetchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			refreshFailure.Inc()
			return nil, fmt.Errorf("refresh %s: %w", key, err)
		}

		if c.stopped() {
			// Late result after shutdown: discard, never apply.
			return nil, c.ctx.Err()
		}

		snap := models.Snapshot{
			Entries:   logic.Rank(entries, c.prizes, c.rows),
			UpdatedAt: c.now(),
		}

		c.mu.Lock()
		c.live[key] = &snap
		c.mu.Unlock()

		c.cache.Write(context.Background(), rng, snap)
		refreshSuccess.Inc()

		c.logger.Infow("Leaderboard refreshed", "range", key, "entries", len(entries))
		return nil, nil
	})
	return err
}

// Placeholder returns a fully padded empty leaderboard.
func (c *Controller) Placeholder() *models.Snapshot {
	return &models.Snapshot{Entries: logic.Rank(nil, c.prizes, c.rows)}
}

// Prizes exposes the configured schedule.
func (c *Controller) Prizes() map[int]float64 {
	return c.prizes
}

func (c *Controller) stopped() bool {
	if c.ctx == nil {
		return false
	}
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

func rangeKey(rng models.DateRange) string {
	return fmt.Sprintf("%d:%d", rng.From, rng.To)
}
