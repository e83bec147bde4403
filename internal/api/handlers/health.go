package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and, when a database is configured, whether
// it answers.
type HealthHandler struct {
	DB Pinger
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]string{"status": "ok", "database": "disabled"}
	if h.DB == nil {
		writeJSON(w, r, http.StatusOK, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		res["status"], res["database"] = "degraded", err.Error()
		writeJSON(w, r, http.StatusServiceUnavailable, res)
		return
	}
	res["database"] = "ok"
	writeJSON(w, r, http.StatusOK, res)
}
