package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/auditor/internal/documents"
	"github.com/JaimeStill/auditor/pkg/handlers"
	"github.com/JaimeStill/auditor/pkg/pagination"
	"github.com/JaimeStill/auditor/pkg/routes"
)

// Import kinds accepted by the import endpoint.
const (
	KindProtocols = "protocols"
	KindCodes     = "codes"
)

// Handler provides HTTP endpoints for the knowledge base.
type Handler struct {
	sys           System
	cfg           Config
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest carries the clinical text to retrieve knowledge for.
type SearchRequest struct {
	Text string `json:"text"`
}

// SearchResult is the fused retrieval output and its rendered context.
type SearchResult struct {
	Protocols []Protocol      `json:"protocols"`
	Codes     []DiagnosisCode `json:"codes"`
	Context   string          `json:"context"`
}

// NewHandler creates a Handler for the knowledge base.
func NewHandler(
	sys System,
	cfg Config,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		cfg:           cfg,
		logger:        logger.With("handler", "knowledge"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for knowledge endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/knowledge",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/protocols", Handler: h.ListProtocols},
			{Method: "POST", Pattern: "/protocols", Handler: h.UpsertProtocol},
			{Method: "GET", Pattern: "/codes", Handler: h.ListDiagnosisCodes},
			{Method: "POST", Pattern: "/codes", Handler: h.UpsertDiagnosisCode},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/import", Handler: h.Import, MaxBody: h.maxUploadSize},
		},
	}
}

func (h *Handler) ListProtocols(w http.ResponseWriter, r *http.Request) {
	respondPage(h, w, r, h.sys.ListProtocols)
}

func (h *Handler) ListDiagnosisCodes(w http.ResponseWriter, r *http.Request) {
	respondPage(h, w, r, h.sys.ListDiagnosisCodes)
}

// UpsertProtocol creates or replaces a protocol by title.
func (h *Handler) UpsertProtocol(w http.ResponseWriter, r *http.Request) {
	respondUpsert(h, w, r, h.sys.UpsertProtocol)
}

// UpsertDiagnosisCode creates or replaces a diagnosis code.
func (h *Handler) UpsertDiagnosisCode(w http.ResponseWriter, r *http.Request) {
	respondUpsert(h, w, r, h.sys.UpsertDiagnosisCode)
}

func respondPage[T any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	list func(context.Context, pagination.PageRequest) (*pagination.PageResult[T], error),
) {
	result, err := list(r.Context(), pagination.PageRequestFromQuery(r.URL.Query(), h.pagination))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func respondUpsert[C, T any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	upsert func(context.Context, C) (*T, error),
) {
	cmd, err := handlers.DecodeJSON[C](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidEntry, err))
		return
	}

	entry, err := upsert(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, entry)
}

// Search embeds the request text and returns fused protocols and codes
// with their rendered context.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[SearchRequest](r)
	if err != nil || strings.TrimSpace(req.Text) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidEntry)
		return
	}

	ctx := r.Context()
	embedding := h.sys.Embed(ctx, req.Text)

	var result SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.Protocols, err = h.sys.FindProtocols(gctx, req.Text, embedding)
		return err
	})
	g.Go(func() error {
		var err error
		result.Codes, err = h.sys.FindDiagnosisCodes(gctx, req.Text, embedding)
		return err
	})
	if err := g.Wait(); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	result.Context = Context(result.Protocols, result.Codes, h.cfg.ContextBudget)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Import reads a multipart file and upserts every protocol or code parsed
// from its text. The kind form value selects the parser.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	upload, err := h.readImport(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, documents.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	importer := h.sys.ImportProtocols
	if upload.kind == KindCodes {
		importer = h.sys.ImportDiagnosisCodes
	}
	summary := importer(r.Context(), upload.text, upload.filename)

	h.logger.Info("knowledge imported",
		"kind", upload.kind,
		"file", upload.filename,
		"imported", summary.Imported,
		"errors", len(summary.Errors),
	)
	handlers.RespondJSON(w, http.StatusOK, summary)
}

type importUpload struct {
	kind     string
	filename string
	text     string
}

func (h *Handler) readImport(r *http.Request) (importUpload, error) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		return importUpload{}, documents.ErrFileTooLarge
	}

	upload := importUpload{kind: r.FormValue("kind")}
	if upload.kind != KindProtocols && upload.kind != KindCodes {
		return upload, fmt.Errorf("%w: kind must be %s or %s", ErrInvalidFile, KindProtocols, KindCodes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload, ErrInvalidFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return upload, ErrInvalidFile
	}

	upload.filename = header.Filename
	contentType := documents.DetectContentType(header.Header.Get("Content-Type"), header.Filename, data)
	if upload.text = documents.ExtractText(h.logger, data, contentType); upload.text == "" {
		return upload, fmt.Errorf("%w: no text in %s", ErrInvalidFile, header.Filename)
	}
	return upload, nil
}
