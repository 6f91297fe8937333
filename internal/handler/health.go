package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything whose liveness can be probed, usually the database.
type Pinger interface {
	Ping() error
}

// HealthHandler answers GET /healthz.
type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HandleHealth returns 200 {"status":"ok"} or 503 when the database is down.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- h.db.Ping() }()

	select {
	case err := <-errc:
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	case <-ctx.Done():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "timeout"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
