package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bikinibottom/spongeplay/internal/httputil"
)

const SessionCookieName = "spongeplay_session"

type Handler struct {
	gate          *Gate
	secret        string
	ttl           time.Duration
	secureCookies bool

	// generation advances on every admin logout; tokens issued under an
	// earlier generation no longer grant admin.
	generation atomic.Uint64
}

func NewHandler(gate *Gate, secret string, ttl time.Duration, secureCookies bool) *Handler {
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	return &Handler{gate: gate, secret: secret, ttl: ttl, secureCookies: secureCookies}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Admin     bool   `json:"admin"`
	ExpiresAt string `json:"expiresAt"`
}

type sessionResponse struct {
	Admin bool `json:"admin"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "password is required")
		return
	}

	if !h.gate.Login(req.Password) {
		slog.Warn("auth: rejected admin login", "remote_addr", r.RemoteAddr)
		httputil.WriteError(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	token, expiresAt, err := GenerateSessionToken(h.secret, h.ttl, h.generation.Load())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate session")
		return
	}

	h.setSessionCookie(w, token, int(h.ttl/time.Second))
	slog.Info("auth: admin logged in", "remote_addr", r.RemoteAddr)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Admin:     true,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout always succeeds; a visitor logging out is a no-op. An admin logout
// revokes every outstanding session token, cookie or bearer.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if SessionFromContext(r.Context()).IsAdmin {
		h.generation.Add(1)
		slog.Info("auth: admin logged out", "remote_addr", r.RemoteAddr)
	}
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{Admin: SessionFromContext(r.Context()).IsAdmin})
}

// Middleware attaches a Session to every request. Missing or invalid
// credentials yield a visitor session rather than an error.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithSession(r.Context(), h.sessionFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).IsAdmin {
			httputil.WriteError(w, http.StatusUnauthorized, "admin login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) sessionFromRequest(r *http.Request) Session {
	tokenStr := ""
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenStr, _ = strings.CutPrefix(authHeader, "Bearer ")
	} else if cookie, err := r.Cookie(SessionCookieName); err == nil {
		tokenStr = cookie.Value
	}
	if tokenStr == "" {
		return Session{}
	}

	claims, err := ValidateToken(h.secret, tokenStr)
	if err != nil || !claims.Admin || claims.Generation != h.generation.Load() {
		return Session{}
	}
	s := Session{IsAdmin: true}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}
