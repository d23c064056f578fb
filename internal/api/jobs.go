package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/pkg/handlers"
	"github.com/JaimeStill/auditor/pkg/routes"
)

const defaultDeadLetterLimit = 50

// jobsHandler reports Redis queue depths and dead letters.
type jobsHandler struct {
	queue  *jobs.Queue
	logger *slog.Logger
}

func newJobsHandler(queue *jobs.Queue, logger *slog.Logger) *jobsHandler {
	return &jobsHandler{
		queue:  queue,
		logger: logger.With("handler", "jobs"),
	}
}

func (h *jobsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/jobs",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/stats", Handler: h.stats},
			{Method: "GET", Pattern: "/dead", Handler: h.dead},
		},
	}
}

func (h *jobsHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, stats)
}

func (h *jobsHandler) dead(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultDeadLetterLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = n
	}

	dead, err := h.queue.DeadLetters(r.Context(), limit)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, dead)
}
