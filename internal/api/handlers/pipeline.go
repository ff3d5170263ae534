package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/trungvh/gazette/internal/pipeline"
)

// GetStatus handles GET /api/status. It reports the pipeline's current
// stage and cycle history.
func GetStatus(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, p.Status())
	}
}

// Refresh handles POST /api/refresh. It starts an ingestion cycle in the
// background and returns 202 Accepted, or 409 Conflict when a cycle is
// already running.
func Refresh(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The cycle outlives the request, so it must not inherit the
		// request context.
		err := p.StartCycle(context.Background())
		if errors.Is(err, pipeline.ErrCycleRunning) {
			writeError(w, http.StatusConflict, "A refresh cycle is already running")
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}
