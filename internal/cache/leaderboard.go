package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/streamingshack/race-api/internal/models"
)

// Leaderboard persists per-range snapshots and the manual-refresh cooldown
// stamp. Storage failures are logged and swallowed: a broken store behaves
// like a cold cache, it never propagates to callers.
type Leaderboard struct {
	store  Store
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewLeaderboard(store Store, ttl time.Duration, logger *zap.Logger) *Leaderboard {
	return &Leaderboard{
		store:  store,
		ttl:    ttl,
		logger: logger.Sugar(),
	}
}

func snapshotKey(rng models.DateRange) string {
	return fmt.Sprintf("leaderboard:%d:%d", rng.From, rng.To)
}

func cooldownKey(rng models.DateRange) string {
	return fmt.Sprintf("leaderboard:manual:%d:%d", rng.From, rng.To)
}

// Read returns the stored snapshot for a range, or nil when absent or
// unreadable.
func (c *Leaderboard) Read(ctx context.Context, rng models.DateRange) *models.Snapshot {
	raw, err := c.store.Get(ctx, snapshotKey(rng))
	if err != nil {
		c.logger.Warnw("Cache read failed", "range", snapshotKey(rng), "error", err)
		return nil
	}
	if raw == nil {
		return nil
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warnw("Cache entry corrupt, treating as empty", "range", snapshotKey(rng), "error", err)
		return nil
	}
	return &snap
}

// Write overwrites the snapshot for a range. Entries persist without expiry;
// staleness is decided at read time via IsFresh.
func (c *Leaderboard) Write(ctx context.Context, rng models.DateRange, snap models.Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warnw("Cache marshal failed", "range", snapshotKey(rng), "error", err)
		return
	}
	if err := c.store.Set(ctx, snapshotKey(rng), raw, 0); err != nil {
		c.logger.Warnw("Cache write failed", "range", snapshotKey(rng), "error", err)
	}
}

// IsFresh reports whether a snapshot is within the TTL.
func (c *Leaderboard) IsFresh(snap *models.Snapshot, now time.Time) bool {
	if snap == nil {
		return false
	}
	return now.Sub(snap.UpdatedAt) < c.ttl
}

// LastManual returns the timestamp of the last manual refresh for a range,
// or the zero time when none is recorded.
func (c *Leaderboard) LastManual(ctx context.Context, rng models.DateRange) time.Time {
	raw, err := c.store.Get(ctx, cooldownKey(rng))
	if err != nil {
		c.logger.Warnw("Cooldown read failed", "range", cooldownKey(rng), "error", err)
		return time.Time{}
	}
	if raw == nil {
		return time.Time{}
	}
	unix, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// StampManual records a manual refresh for cooldown enforcement.
func (c *Leaderboard) StampManual(ctx context.Context, rng models.DateRange, at time.Time) {
	raw := []byte(strconv.FormatInt(at.Unix(), 10))
	if err := c.store.Set(ctx, cooldownKey(rng), raw, 0); err != nil {
		c.logger.Warnw("Cooldown write failed", "range", cooldownKey(rng), "error", err)
	}
}
