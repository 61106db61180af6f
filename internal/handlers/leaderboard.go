package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/streamingshack/race-api/internal/logic"
	"github.com/streamingshack/race-api/internal/refresh"
)

// GetLeaderboard returns the public wager-race standings
// @Summary Public Leaderboard
// @Description Ranked standings for the active window, padded to the display size
// @Tags Leaderboard
// @Produce json
// @Param from query int false "Window start (Unix seconds)"
// @Param to query int false "Window end (Unix seconds)"
// @Param start_at query string false "Legacy window start (YYYY-MM-DD)"
// @Param end_at query string false "Legacy window end (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{} "Leaderboard Data"
// @Router /leaderboard [get]
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	rng := logic.ResolveRange(r.URL.Query(), h.rangeCfg, time.Now())
	snap := h.provider.Snapshot(r.Context(), rng)

	entries := snap.Entries
	if len(entries) > h.displayRows {
		entries = entries[:h.displayRows]
	}

	var updatedAt interface{}
	if !snap.UpdatedAt.IsZero() {
		updatedAt = snap.UpdatedAt.UTC()
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"dateRange":   rng.View(),
		"prizes":      h.prizes,
		"updatedAt":   updatedAt,
	})
}

// RefreshLeaderboard triggers a manual refresh
// @Summary Manual Refresh
// @Description Forces a refetch for the active window, subject to a cooldown
// @Tags Leaderboard
// @Produce json
// @Success 200 {object} map[string]interface{} "Refreshed"
// @Failure 429 {object} map[string]interface{} "Cooldown active"
// @Failure 502 {object} map[string]string "Upstream failure"
// @Router /leaderboard/refresh [post]
func (h *Handler) RefreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	rng := logic.ResolveRange(r.URL.Query(), h.rangeCfg, time.Now())

	retryAfter, err := h.provider.ManualRefresh(r.Context(), rng)
	if errors.Is(err, refresh.ErrCooldown) {
		seconds := int(retryAfter.Round(time.Second) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		h.jsonResponse(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":             "Refresh cooldown active",
			"retryAfterSeconds": seconds,
		})
		return
	}
	if err != nil {
		h.logger.Warnw("Manual refresh failed", "from", rng.From, "to", rng.To, "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Upstream refresh failed")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{"refreshed": true})
}
