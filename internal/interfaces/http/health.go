package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fanpulse/fanpulse/internal/infrastructure/db"
	"github.com/fanpulse/fanpulse/internal/infrastructure/source"
)

// HealthHandler reports service health: database connectivity, connection
// pool stats, and the metric source breaker state.
type HealthHandler struct {
	db      *db.Manager
	breaker *source.BreakerSource
}

// NewHealthHandler creates the health endpoint handler. breaker may be nil.
func NewHealthHandler(manager *db.Manager, breaker *source.BreakerSource) *HealthHandler {
	return &HealthHandler{db: manager, breaker: breaker}
}

type healthResponse struct {
	Status   string                 `json:"status"`
	Database map[string]interface{} `json:"database"`
	Breaker  string                 `json:"breaker,omitempty"`
	Time     time.Time              `json:"time"`
}

// Health returns 200 when the database answers a ping, 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
	}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = map[string]interface{}{"error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		resp.Database = h.db.Stats()
	}

	if h.breaker != nil {
		resp.Breaker = h.breaker.State().String()
	}

	writeJSON(w, status, resp)
}
