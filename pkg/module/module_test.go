package module_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/auditor/pkg/module"
)

// echoPath answers with the path the inner router saw.
func echoPath(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, r.URL.Path)
}

func TestNewPrefix(t *testing.T) {
	tests := []struct {
		prefix    string
		wantPanic bool
	}{
		{"/api", false},
		{"/ops", false},
		{"", true},
		{"/", true},
		{"sheets", true},
		{"/api/v1", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			defer func() {
				if panicked := recover() != nil; panicked != tt.wantPanic {
					t.Errorf("New(%q) panicked = %v, want %v", tt.prefix, panicked, tt.wantPanic)
				}
			}()

			m := module.New(tt.prefix, http.NewServeMux())
			if m.Prefix() != tt.prefix {
				t.Errorf("Prefix() = %q, want %q", m.Prefix(), tt.prefix)
			}
		})
	}
}

func TestModuleServeStripsPrefix(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", echoPath)

	m := module.New("/api", mux)

	tests := map[string]string{
		"/api":                  "/",
		"/api/sheets":           "/sheets",
		"/api/sheets/42/report": "/sheets/42/report",
	}

	for path, want := range tests {
		rec := httptest.NewRecorder()
		m.Serve(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if got := rec.Body.String(); got != want {
			t.Errorf("%s reached inner router as %q, want %q", path, got, want)
		}
	}
}

func TestModuleUseOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "handler")
	})

	var trail []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trail = append(trail, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	m := module.New("/api", mux)
	m.Use(tag("auth"), tag("audit"))

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/physicians", nil))

	if len(trail) != 2 || trail[0] != "auth" || trail[1] != "audit" {
		t.Errorf("middleware order: got %v, want [auth audit]", trail)
	}
	if rec.Body.String() != "handler" {
		t.Errorf("body: got %q", rec.Body.String())
	}
}

func TestRouterServeHTTP(t *testing.T) {
	api := http.NewServeMux()
	api.HandleFunc("GET /sheets", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "api:"+r.URL.Path)
	})

	ops := http.NewServeMux()
	ops.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ops:"+r.URL.Path)
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", api))
	router.Mount(module.New("/ops", ops))
	router.HandleNative("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "native")
	})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"api module", "/api/sheets", http.StatusOK, "api:/sheets"},
		{"trailing slash trimmed", "/api/sheets/", http.StatusOK, "api:/sheets"},
		{"ops root", "/ops", http.StatusOK, "ops:/"},
		{"native fallback", "/metrics", http.StatusOK, "native"},
		{"unknown path", "/reports", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRouterMountReplaces(t *testing.T) {
	first := http.NewServeMux()
	first.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "first")
	})
	second := http.NewServeMux()
	second.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "second")
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", first))
	router.Mount(module.New("/api", second))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	if rec.Body.String() != "second" {
		t.Errorf("body: got %q, want second", rec.Body.String())
	}
}
