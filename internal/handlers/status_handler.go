package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
)

// StatusHandler serves health and version endpoints.
type StatusHandler struct {
	started time.Time
	logger  arbor.ILogger
}

func NewStatusHandler(logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		started: time.Now(),
		logger:  logger,
	}
}

// HealthHandler handles GET /api/health.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime_s":  int(time.Since(h.started).Seconds()),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// VersionHandler handles GET /api/version.
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}
