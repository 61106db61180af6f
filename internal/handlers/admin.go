package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/streamingshack/race-api/internal/models"
)

// AdminLogin authenticates against the shared admin credential
// @Summary Admin Login
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool "Authenticated"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /admin/login [post]
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	body := http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if !credentialsMatch(req.Username, h.adminUsername) || !credentialsMatch(req.Password, h.adminPassword) {
		h.errorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token := uuid.NewString()
	if err := h.sessions.Set(r.Context(), sessionKey(token), []byte("1"), h.sessionTTL); err != nil {
		h.logger.Errorw("Failed to store admin session", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})

	h.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// AdminLogout destroys the current admin session
// @Summary Admin Logout
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]bool "Logged out"
// @Router /admin/logout [post]
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Del(r.Context(), sessionKey(cookie.Value)); err != nil {
			h.logger.Warnw("Failed to delete admin session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	h.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// AdminCheck reports whether the caller holds a valid admin session
// @Summary Admin Session Check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]bool "Authenticated"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /admin/check [get]
func (h *Handler) AdminCheck(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]bool{"authenticated": true})
}

// credentialsMatch compares values in constant time via sha256 digests so
// length differences leak nothing.
func credentialsMatch(got, want string) bool {
	gotSum := sha256.Sum256([]byte(got))
	wantSum := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(gotSum[:], wantSum[:]) == 1
}
