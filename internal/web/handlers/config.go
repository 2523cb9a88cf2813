package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler exposes the effective station configuration.
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a config handler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{config: cfg}
}

// Get returns the resolved configuration after defaults, settings file,
// environment overrides and clamping.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.config)
}
