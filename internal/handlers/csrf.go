package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenLen   = 32
	csrfMaxAge     = 12 * time.Hour
)

// csrfTokens tracks issued tokens and their expiry.
type csrfTokens struct {
	mu     sync.Mutex
	expiry map[string]time.Time
	now    func() time.Time
}

func newCSRFTokens() *csrfTokens {
	return &csrfTokens{expiry: make(map[string]time.Time), now: time.Now}
}

func (t *csrfTokens) issue() (string, error) {
	b := make([]byte, csrfTokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	t.mu.Lock()
	t.expiry[token] = t.now().Add(csrfMaxAge)
	t.mu.Unlock()
	return token, nil
}

func (t *csrfTokens) valid(token string) bool {
	if token == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.expiry[token]
	return ok && t.now().Before(exp)
}

// prune drops expired tokens and returns how many remain.
func (t *csrfTokens) prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for token, exp := range t.expiry {
		if !now.Before(exp) {
			delete(t.expiry, token)
		}
	}
	return len(t.expiry)
}

// setCSRFCookie issues a token cookie unless the request already holds a
// valid one. The page echoes it back in the X-CSRF-Token header.
func (h *Handler) setCSRFCookie(w http.ResponseWriter, r *http.Request) {
	if h.disableCSRF {
		return
	}
	if c, err := r.Cookie(csrfCookieName); err == nil && h.csrf.valid(c.Value) {
		return
	}

	token, err := h.csrf.issue()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to generate CSRF token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfMaxAge.Seconds()),
		SameSite: http.SameSiteStrictMode,
	})
}

// requireCSRF writes a 403 and returns false unless the request carries a
// cookie and a matching header token. Safe methods always pass.
func (h *Handler) requireCSRF(w http.ResponseWriter, r *http.Request) bool {
	if h.disableCSRF {
		return true
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}

	if c, err := r.Cookie(csrfCookieName); err == nil {
		if token := r.Header.Get(csrfHeader); token == c.Value && h.csrf.valid(token) {
			return true
		}
	}
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid CSRF token"})
	return false
}

// StartCSRFCleanup prunes expired tokens every interval until ctx is done.
func (h *Handler) StartCSRFCleanup(ctx context.Context, interval time.Duration) {
	if h.disableCSRF {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := h.csrf.prune()
				h.log.Debug().Int("tokens", n).Msg("pruned CSRF tokens")
			}
		}
	}()
}
