package handlers

import (
	"net/http"
	"time"

	"github.com/streamingshack/race-api/internal/logic"
)

// GetSnapshot returns the current standings with window and prize table
// @Summary Leaderboard Snapshot
// @Description Structured snapshot for clipboard or file export
// @Tags Admin
// @Produce json
// @Param from query int false "Window start (Unix seconds)"
// @Param to query int false "Window end (Unix seconds)"
// @Success 200 {object} logic.SnapshotData "Snapshot"
// @Failure 502 {object} map[string]string "Upstream failure"
// @Router /admin/snapshot [get]
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.snapshotData(r)
	if err != nil {
		h.logger.Errorw("Snapshot fetch failed", "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Failed to fetch leaderboard")
		return
	}
	h.jsonResponse(w, http.StatusOK, data)
}

// GetSnapshotText returns the formatted snapshot block, unmasked
// @Summary Leaderboard Snapshot Text
// @Tags Admin
// @Produce plain
// @Success 200 {string} string "Formatted snapshot"
// @Failure 502 {object} map[string]string "Upstream failure"
// @Router /admin/snapshot/text [get]
func (h *Handler) GetSnapshotText(w http.ResponseWriter, r *http.Request) {
	data, err := h.snapshotData(r)
	if err != nil {
		h.logger.Errorw("Snapshot fetch failed", "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Failed to fetch leaderboard")
		return
	}

	text := logic.FormatSnapshot(h.raceTitle, data, h.snapshotRows, nil, time.Now())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// PushWebhook formats the masked snapshot and delivers it to the chat sink
// @Summary Push Snapshot to Webhook
// @Description Sends the masked standings to the configured chat webhook
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]bool "Sent"
// @Failure 500 {object} map[string]string "Webhook not configured"
// @Failure 502 {object} map[string]string "Fetch or delivery failure"
// @Router /admin/webhook [post]
func (h *Handler) PushWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		h.errorResponse(w, http.StatusInternalServerError, "Webhook URL not configured")
		return
	}

	data, err := h.snapshotData(r)
	if err != nil {
		h.logger.Errorw("Snapshot fetch failed", "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Failed to fetch leaderboard")
		return
	}

	text := logic.FormatSnapshot(h.raceTitle, data, h.snapshotRows, h.mask, time.Now())
	if err := h.webhook.Send(r.Context(), text); err != nil {
		h.logger.Errorw("Webhook delivery failed", "error", err)
		h.errorResponse(w, http.StatusBadGateway, "Webhook delivery failed")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// snapshotData resolves the window from the request and fetches current
// standings synchronously.
func (h *Handler) snapshotData(r *http.Request) (logic.SnapshotData, error) {
	rng := logic.ResolveRange(r.URL.Query(), h.rangeCfg, time.Now())
	snap, err := h.provider.Standings(r.Context(), rng)
	if err != nil {
		return logic.SnapshotData{}, err
	}
	return logic.SnapshotData{
		Leaderboard: snap.Entries,
		DateRange:   rng.View(),
		Prizes:      h.prizes,
	}, nil
}
