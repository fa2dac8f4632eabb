package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dvloznov/expense-ingest/internal/api/middleware"
	"github.com/dvloznov/expense-ingest/internal/logger"
)

const serviceName = "expense-ingest"

// HealthHandler handles GET /health.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":  "OK",
		"service": serviceName,
		"time":    time.Now().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Database health check failed")
			body["status"] = "DEGRADED"
			body["database"] = "unreachable"
			middleware.WriteJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}

	middleware.WriteJSON(w, http.StatusOK, body)
}
