package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/streamingshack/race-api/internal/cache"
	"github.com/streamingshack/race-api/internal/logic"
	"github.com/streamingshack/race-api/internal/models"
	"github.com/streamingshack/race-api/internal/refresh"
)

type mockProvider struct {
	snap       *models.Snapshot
	standings  *models.Snapshot
	standErr   error
	retryAfter time.Duration
	refreshErr error
}

func (m *mockProvider) Snapshot(ctx context.Context, rng models.DateRange) *models.Snapshot {
	return m.snap
}

func (m *mockProvider) Standings(ctx context.Context, rng models.DateRange) (*models.Snapshot, error) {
	return m.standings, m.standErr
}

func (m *mockProvider) ManualRefresh(ctx context.Context, rng models.DateRange) (time.Duration, error) {
	return m.retryAfter, m.refreshErr
}

type mockWebhook struct {
	sent []string
	err  error
}

func (m *mockWebhook) Send(ctx context.Context, content string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, content)
	return nil
}

func testSnapshot(n int) *models.Snapshot {
	entries := []models.LeaderboardEntry{
		{ID: "u1", Username: "SpinMaster", Wagered: 22305},
		{ID: "u2", Username: "Johnny1234", Wagered: 15000},
	}
	return &models.Snapshot{
		Entries:   logic.Rank(entries, map[int]float64{1: 2000, 2: 1000}, n),
		UpdatedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func newTestHandler(p *mockProvider, wh WebhookSender) *Handler {
	return New(Config{
		Provider:      p,
		Sessions:      cache.NewMemoryStore(),
		Webhook:       wh,
		Logger:        zap.NewNop(),
		Range:         logic.RangeConfig{From: 1700000000, To: 1702000000},
		Prizes:        map[int]float64{1: 2000, 2: 1000},
		DisplayRows:   10,
		SnapshotRows:  20,
		RaceTitle:     "4k Race",
		AdminUsername: "admin",
		AdminPassword: "hunter2",
		SessionTTL:    time.Hour,
	})
}

func TestGetLeaderboard(t *testing.T) {
	p := &mockProvider{snap: testSnapshot(20)}
	h := newTestHandler(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
	w := httptest.NewRecorder()
	h.GetLeaderboard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
		UpdatedAt   *time.Time                `json:"updatedAt"`
		Prizes      map[string]float64        `json:"prizes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Leaderboard) != 10 {
		t.Errorf("got %d rows, want display cap of 10", len(body.Leaderboard))
	}
	if body.Leaderboard[0].Username != "SpinMaster" || body.Leaderboard[0].Rank != 1 {
		t.Errorf("top row = %+v", body.Leaderboard[0])
	}
	if body.UpdatedAt == nil {
		t.Error("updatedAt missing")
	}
	if body.Prizes["1"] != 2000 {
		t.Errorf("prizes = %v", body.Prizes)
	}
}

func TestGetLeaderboard_ColdSnapshotOmitsUpdatedAt(t *testing.T) {
	p := &mockProvider{snap: &models.Snapshot{Entries: logic.Rank(nil, nil, 10)}}
	h := newTestHandler(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
	w := httptest.NewRecorder()
	h.GetLeaderboard(w, req)

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["updatedAt"] != nil {
		t.Errorf("updatedAt = %v, want null", body["updatedAt"])
	}
}

func TestRefreshLeaderboard(t *testing.T) {
	tests := []struct {
		name       string
		provider   *mockProvider
		wantStatus int
	}{
		{"success", &mockProvider{}, http.StatusOK},
		{"cooldown", &mockProvider{retryAfter: 9 * time.Minute, refreshErr: refresh.ErrCooldown}, http.StatusTooManyRequests},
		{"upstream failure", &mockProvider{refreshErr: context.DeadlineExceeded}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(tt.provider, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/leaderboard/refresh", nil)
			w := httptest.NewRecorder()
			h.RefreshLeaderboard(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusTooManyRequests {
				if got := w.Header().Get("Retry-After"); got != "540" {
					t.Errorf("Retry-After = %q, want 540", got)
				}
				var body map[string]interface{}
				json.Unmarshal(w.Body.Bytes(), &body)
				if body["retryAfterSeconds"] != float64(540) {
					t.Errorf("retryAfterSeconds = %v", body["retryAfterSeconds"])
				}
			}
		})
	}
}

func TestAdminLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid credentials", `{"username":"admin","password":"hunter2"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"wrong"}`, http.StatusUnauthorized},
		{"wrong username", `{"username":"root","password":"hunter2"}`, http.StatusUnauthorized},
		{"missing fields", `{"username":"admin"}`, http.StatusBadRequest},
		{"malformed body", `not-json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&mockProvider{}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.AdminLogin(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			cookies := w.Result().Cookies()
			if tt.wantStatus == http.StatusOK {
				if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value == "" {
					t.Errorf("cookies = %v, want session cookie", cookies)
				}
				if !cookies[0].HttpOnly {
					t.Error("session cookie not HttpOnly")
				}
			} else if len(cookies) != 0 {
				t.Errorf("failed login set cookies: %v", cookies)
			}
		})
	}
}

func TestAdminSessionLifecycle(t *testing.T) {
	h := newTestHandler(&mockProvider{standings: testSnapshot(20)}, nil)
	protected := h.AdminAuthMiddleware(http.HandlerFunc(h.AdminCheck))

	// No cookie
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/check", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie: status = %d, want 401", w.Code)
	}

	// Unknown token
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/check", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "forged"})
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: status = %d, want 401", w.Code)
	}

	// Login, then the issued cookie passes
	w = httptest.NewRecorder()
	h.AdminLogin(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login",
		bytes.NewBufferString(`{"username":"admin","password":"hunter2"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d", w.Code)
	}
	session := w.Result().Cookies()[0]

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/check", nil)
	req.AddCookie(session)
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid session: status = %d, want 200", w.Code)
	}

	// Logout invalidates the session
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/logout", nil)
	req.AddCookie(session)
	h.AdminLogout(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/check", nil)
	req.AddCookie(session)
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: status = %d, want 401", w.Code)
	}
}

func TestGetSnapshot(t *testing.T) {
	h := newTestHandler(&mockProvider{standings: testSnapshot(20)}, nil)

	w := httptest.NewRecorder()
	h.GetSnapshot(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/snapshot", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data logic.SnapshotData
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Leaderboard) != 20 {
		t.Errorf("got %d rows, want 20", len(data.Leaderboard))
	}
	if data.Prizes[1] != 2000 {
		t.Errorf("prizes = %v", data.Prizes)
	}
}

func TestGetSnapshot_UpstreamFailure(t *testing.T) {
	h := newTestHandler(&mockProvider{standErr: context.DeadlineExceeded}, nil)

	w := httptest.NewRecorder()
	h.GetSnapshot(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/snapshot", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestGetSnapshotText_Unmasked(t *testing.T) {
	h := newTestHandler(&mockProvider{standings: testSnapshot(20)}, nil)

	w := httptest.NewRecorder()
	h.GetSnapshotText(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/snapshot/text", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	text := w.Body.String()
	if !strings.Contains(text, "🏆 **4k Race** 🏆") {
		t.Errorf("title missing:\n%s", text)
	}
	if !strings.Contains(text, "SpinMaster") {
		t.Errorf("admin text should be unmasked:\n%s", text)
	}
}

func TestPushWebhook(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		h := newTestHandler(&mockProvider{standings: testSnapshot(20)}, nil)
		w := httptest.NewRecorder()
		h.PushWebhook(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/webhook", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", w.Code)
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		h := newTestHandler(&mockProvider{standErr: context.DeadlineExceeded}, &mockWebhook{})
		w := httptest.NewRecorder()
		h.PushWebhook(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/webhook", nil))
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", w.Code)
		}
	})

	t.Run("delivery failure", func(t *testing.T) {
		h := newTestHandler(&mockProvider{standings: testSnapshot(20)}, &mockWebhook{err: context.DeadlineExceeded})
		w := httptest.NewRecorder()
		h.PushWebhook(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/webhook", nil))
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", w.Code)
		}
	})

	t.Run("delivers masked text", func(t *testing.T) {
		wh := &mockWebhook{}
		h := newTestHandler(&mockProvider{standings: testSnapshot(20)}, wh)
		w := httptest.NewRecorder()
		h.PushWebhook(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/webhook", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if len(wh.sent) != 1 {
			t.Fatalf("sent %d payloads, want 1", len(wh.sent))
		}
		if !strings.Contains(wh.sent[0], "`SP******er`") {
			t.Errorf("webhook text not masked:\n%s", wh.sent[0])
		}
		if strings.Contains(wh.sent[0], "SpinMaster") {
			t.Errorf("webhook text leaked a full username:\n%s", wh.sent[0])
		}
	})
}

func TestHealthAndReady(t *testing.T) {
	h := newTestHandler(&mockProvider{}, nil)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Ready(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ready status = %d", w.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["ready"] != true {
		t.Errorf("ready body = %v", body)
	}
}
