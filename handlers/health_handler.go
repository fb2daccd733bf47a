package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/garageline/mechanic-api/utils"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db     Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil when the
// service runs in completion-only mode.
func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz. Alive means the process is serving.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HandleReadiness handles GET /readyz. Ready means the configured
// dependencies respond; a service without storage is ready in degraded form.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db == nil {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"storage": "disabled",
		})
		return
	}

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"storage": "unreachable",
		})
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": "ok",
	})
}
