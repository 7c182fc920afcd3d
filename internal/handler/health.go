package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"thoughtbox/internal/httputil"
)

// Pinger checks a dependency is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db       Pinger
	sessions func() int
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler. sessions reports the
// number of live editor sessions.
func NewHealthHandler(db Pinger, sessions func() int, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions, logger: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Sessions int    `json:"sessions"`
}

// HealthCheck answers 200 when the database responds and 503 otherwise
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Sessions: h.sessions()}
	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", "error", err)
		resp.Status, resp.Database = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}

	httputil.RespondJSON(w, status, resp)
}
