package pipeline

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/auditor/internal/sheets"
	"github.com/JaimeStill/auditor/pkg/handlers"
	"github.com/JaimeStill/auditor/pkg/pagination"
	"github.com/JaimeStill/auditor/pkg/routes"
)

// Handler provides HTTP endpoints for pending sheets and their verification.
type Handler struct {
	sys        System
	sheets     sheets.System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given systems, logger, and pagination config.
func NewHandler(sys System, sheetSys sheets.System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		sheets:     sheetSys,
		logger:     logger.With("handler", "pipeline"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for pending sheet endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/pending",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "/verify", Handler: h.VerifyAll},
			{Method: "POST", Pattern: "/{recording}/verify", Handler: h.Verify},
		},
	}
}

// List returns a paginated list of pending sheets.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sheets.ListPending(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Verify processes one pending sheet synchronously and returns its outcome.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	out, err := h.sys.Process(r.Context(), r.PathValue("recording"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, out)
}

// VerifyAll schedules every pending sheet for verification. With
// ?sync=true the sheets are processed before responding.
func (h *Handler) VerifyAll(w http.ResponseWriter, r *http.Request) {
	if sync, _ := strconv.ParseBool(r.URL.Query().Get("sync")); sync {
		handlers.RespondJSON(w, http.StatusOK, h.sys.ProcessAll(r.Context()))
		return
	}

	n, err := h.sys.EnqueueAll(r.Context())
	if err != nil && n == 0 {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	body := map[string]any{"enqueued": n}
	if err != nil {
		h.logger.Warn("some verification jobs not enqueued", "error", err)
		body["error"] = err.Error()
	}
	handlers.RespondJSON(w, http.StatusAccepted, body)
}
