package handlers

import (
	"net/http"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// GetSettings handles GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.setCSRFCookie(w, r)
	writeJSON(w, http.StatusOK, h.settings.Get())
}

// PutSettings handles PUT /api/settings. The body replaces the settings as a
// whole; an empty algorithm keeps the current one.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}
	var s types.Settings
	if err := decodeJSON(r, &s); err != nil {
		writeError(w, err)
		return
	}
	if s.Algorithm == "" {
		s.Algorithm = h.settings.Get().Algorithm
	}
	if err := h.settings.Set(s); err != nil {
		writeError(w, err)
		return
	}
	h.log.Info().Str("algorithm", string(s.Algorithm)).Str("report", s.TestReportNo).Msg("settings updated")
	writeJSON(w, http.StatusOK, h.settings.Get())
}
