package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/auditor/pkg/middleware"
)

const portal = "https://portal.emirmed.kz"

func tag(order *[]string, name string) middleware.Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestStackOrder(t *testing.T) {
	var order []string
	mw := middleware.New(tag(&order, "recover"), tag(&order, "cors"))
	mw.Use(tag(&order, "logger"))

	handler := mw.Apply(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"recover", "cors", "logger", "handler"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestCORS(t *testing.T) {
	policy := middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{portal},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}

	tests := []struct {
		name        string
		cfg         middleware.CORSConfig
		method      string
		origin      string
		wantOrigin  string
		wantHeaders map[string]string
		wantStatus  int
		wantReached bool
	}{
		{
			name:        "disabled",
			cfg:         middleware.CORSConfig{Origins: []string{portal}},
			method:      "GET",
			origin:      portal,
			wantStatus:  http.StatusNoContent,
			wantReached: true,
		},
		{
			name:       "allowed origin",
			cfg:        policy,
			method:     "GET",
			origin:     portal,
			wantOrigin: portal,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Methods":     "GET, POST",
				"Access-Control-Allow-Headers":     "Content-Type",
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Max-Age":           "600",
				"Vary":                             "Origin",
			},
			wantStatus:  http.StatusNoContent,
			wantReached: true,
		},
		{
			name:        "foreign origin",
			cfg:         policy,
			method:      "GET",
			origin:      "https://elsewhere.example",
			wantHeaders: map[string]string{"Vary": "Origin"},
			wantStatus:  http.StatusNoContent,
			wantReached: true,
		},
		{
			name:       "preflight stops at middleware",
			cfg:        policy,
			method:     http.MethodOptions,
			origin:     portal,
			wantOrigin: portal,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := middleware.CORS(&tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(tt.method, "/api/sheets", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if reached != tt.wantReached {
				t.Errorf("handler reached = %v, want %v", reached, tt.wantReached)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tt.wantOrigin)
			}
			for k, want := range tt.wantHeaders {
				if got := rec.Header().Get(k); got != want {
					t.Errorf("%s = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			want:    "status=404",
		},
		{
			name:    "implicit ok",
			handler: func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "ok") },
			want:    "status=200 bytes=2",
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    "level=ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			middleware.Logger(logger)(tt.handler).
				ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/sheets/123456", nil))

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log %q missing %s", buf.String(), tt.want)
			}
		})
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("verification exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/pending/verify", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "verification exploded") {
		t.Errorf("log %q does not carry the panic value", buf.String())
	}
}

func TestCORSConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg middleware.CORSConfig
		if err := cfg.Finalize(nil); err != nil {
			t.Fatal(err)
		}
		if len(cfg.AllowedMethods) != 5 || len(cfg.AllowedHeaders) != 2 || cfg.MaxAge != 3600 {
			t.Errorf("defaults = %+v", cfg)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("API_CORS_ENABLED", "true")
		t.Setenv("API_CORS_ORIGINS", portal+", http://localhost:5173")
		t.Setenv("API_CORS_CREDENTIALS", "true")

		var cfg middleware.CORSConfig
		err := cfg.Finalize(&middleware.CORSEnv{
			Enabled:          "API_CORS_ENABLED",
			Origins:          "API_CORS_ORIGINS",
			AllowCredentials: "API_CORS_CREDENTIALS",
		})
		if err != nil {
			t.Fatal(err)
		}

		if !cfg.Enabled || !cfg.AllowCredentials {
			t.Errorf("flags = %+v", cfg)
		}
		if want := []string{portal, "http://localhost:5173"}; !slices.Equal(cfg.Origins, want) {
			t.Errorf("origins = %v, want %v", cfg.Origins, want)
		}
	})
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Origins:        []string{"http://localhost:5173"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}
	base.Merge(&middleware.CORSConfig{Enabled: true, Origins: []string{portal}, MaxAge: 7200})

	if !base.Enabled || base.MaxAge != 7200 {
		t.Errorf("merged = %+v", base)
	}
	if !slices.Equal(base.Origins, []string{portal}) {
		t.Errorf("origins = %v", base.Origins)
	}
	if !slices.Equal(base.AllowedMethods, []string{"GET"}) {
		t.Errorf("methods should survive an overlay without them, got %v", base.AllowedMethods)
	}
}

func TestCORSConfigFinalizeRejectsMalformed(t *testing.T) {
	env := &middleware.CORSEnv{Enabled: "API_CORS_ENABLED", MaxAge: "API_CORS_MAX_AGE"}

	tests := map[string]string{
		"API_CORS_ENABLED": "sometimes",
		"API_CORS_MAX_AGE": "an hour",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)

			var cfg middleware.CORSConfig
			err := cfg.Finalize(env)
			if err == nil || !strings.Contains(err.Error(), name) {
				t.Errorf("Finalize() = %v, want error naming %s", err, name)
			}
		})
	}
}
