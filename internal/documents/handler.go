package documents

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/auditor/pkg/formatting"
	"github.com/JaimeStill/auditor/pkg/handlers"
	"github.com/JaimeStill/auditor/pkg/routes"
)

// Handler provides HTTP endpoints for document uploads.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Upload, MaxBody: h.maxUploadSize},
		},
	}
}

// Upload accepts one or more files under the "files" (or "file") form key
// and an optional "uploaded_by" value. Each file is processed independently
// and the response summarizes successes and failures.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%w (%s)", ErrFileTooLarge, formatting.Size(h.maxUploadSize)))
		return
	}

	headers := r.MultipartForm.File["files"]
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	var uploadedBy *string
	if v := strings.TrimSpace(r.FormValue("uploaded_by")); v != "" {
		uploadedBy = &v
	}

	files := make([]File, 0, len(headers))
	summary := Summary{Errors: []string{}}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			summary.Add(Result{Filename: fh.Filename, Error: ErrInvalidFile.Error()})
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil || len(data) == 0 {
			summary.Add(Result{Filename: fh.Filename, Error: ErrInvalidFile.Error()})
			continue
		}

		files = append(files, File{
			Data:        data,
			Filename:    fh.Filename,
			ContentType: DetectContentType(fh.Header.Get("Content-Type"), fh.Filename, data),
			UploadedBy:  uploadedBy,
		})
	}

	result := h.sys.UploadAll(r.Context(), files)
	summary.Success += result.Success
	summary.Failed += result.Failed
	summary.Errors = append(summary.Errors, result.Errors...)
	summary.Results = append(summary.Results, result.Results...)

	status := http.StatusCreated
	if summary.Success == 0 {
		status = http.StatusUnprocessableEntity
	}

	handlers.RespondJSON(w, status, summary)
}
