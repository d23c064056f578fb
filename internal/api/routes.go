package api

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/pkg/routes"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	maxUpload := cfg.API.MaxUploadSizeBytes()

	groups := []routes.Group{
		domain.Documents.Handler(maxUpload).Routes(),
		domain.Pipeline.Handler().Routes(),
		domain.Sheets.Handler().Routes(),
		domain.Knowledge.Handler(maxUpload).Routes(),
		domain.Physicians.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	}
	if domain.Queue != nil {
		groups = append(groups, newJobsHandler(domain.Queue, runtime.Logger).routes())
	}

	routes.Register(mux, groups...)
}
