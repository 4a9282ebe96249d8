package handler

import (
	"net/http"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/config"
)

// ConfigHandler serves public configuration to clients (no auth).
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// GetPollingConfig returns the polling intervals so every client follows the
// server's staleness bounds instead of hardcoding its own.
// GET /api/config/polling
func (h *ConfigHandler) GetPollingConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Polling)
}

// GetPushConfig returns the public VAPID key for browser subscription, if
// Web Push is enabled.
// GET /api/config/push
func (h *ConfigHandler) GetPushConfig(w http.ResponseWriter, r *http.Request) {
	if h.cfg.PushServiceURL == "" || h.cfg.PushVAPIDPublicKey == "" {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":          true,
		"vapid_public_key": h.cfg.PushVAPIDPublicKey,
	})
}
