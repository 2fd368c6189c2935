package api

import (
	"net/http"

	"github.com/fynch/toast-export-api/internal/api/shared"
	"github.com/fynch/toast-export-api/internal/task"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	store *task.Store
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store *task.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health. Besides liveness it reports how many tasks sit
// in each state, which is enough to spot a stuck or runaway process from the
// outside.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	counts := h.store.CountByState()
	tasks := make(map[string]int, len(counts))
	for state, n := range counts {
		tasks[string(state)] = n
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ok",
		Tasks:  tasks,
	})
}
