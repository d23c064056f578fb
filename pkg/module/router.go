package module

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/auditor/pkg/handlers"
)

// Router dispatches requests to mounted modules by their first path
// segment. Paths owned by no module fall through to a native ServeMux
// that carries the operational endpoints.
type Router struct {
	modules map[string]*Module
	native  *http.ServeMux
}

// NewRouter creates a Router with no modules mounted.
func NewRouter() *Router {
	return &Router{
		modules: make(map[string]*Module),
		native:  http.NewServeMux(),
	}
}

// Handle registers handler on the native mux.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.native.Handle(pattern, handler)
}

// HandleNative registers a handler function on the native mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Health registers GET /healthz, which always answers ok, and GET /readyz,
// which answers 503 naming the pending checks until pending returns none.
func (r *Router) Health(pending func() []string) {
	r.HandleNative("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.HandleNative("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if p := pending(); len(p) > 0 {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "not ready",
				"pending": p,
			})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}

// Mount registers m under its prefix, replacing any module already there.
func (r *Router) Mount(m *Module) {
	r.modules[m.prefix] = m
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if path := trimTrailingSlash(req.URL.Path); path != req.URL.Path {
		req = cloneRequest(req, path)
	}

	if m, ok := r.modules[firstSegment(req.URL.Path)]; ok {
		m.Serve(w, req)
		return
	}

	r.native.ServeHTTP(w, req)
}

func firstSegment(path string) string {
	rest, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return "/" + rest
}

func trimTrailingSlash(path string) string {
	if len(path) > 1 {
		return strings.TrimRight(path, "/")
	}
	return path
}
