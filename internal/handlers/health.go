package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

const version = "1.2.0"

var startTime = time.Now()

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store  kvstore.Store
	logger *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store kvstore.Store, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// Check handles GET /health (liveness probe)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: version,
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready handles GET /health/ready (readiness probe). The store is
// probed with a read; a missing key is a healthy answer.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	storeStatus := "connected"
	if _, err := h.store.Get(r.Context(), "health-probe"); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		storeStatus = "disconnected"
		respondJSON(w, http.StatusServiceUnavailable, models.HealthStatus{
			Status:  "not ready",
			Version: version,
			Store:   storeStatus,
		})
		return
	}

	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ready",
		Version: version,
		Uptime:  time.Since(startTime).String(),
		Store:   storeStatus,
	})
}
