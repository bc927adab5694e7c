package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"potager/internal/config"
	"potager/internal/types"
)

func newTestServerForRoutes(t *testing.T, tokenHash string) *Server {
	t.Helper()
	cfg := &config.Config{Environment: "local"}
	cfg.Security.APITokenHash = types.SecretString(tokenHash)
	cfg.Security.CorsAllowedOrigins = []string{"*"}
	srv, err := NewServer(cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	srv.Metrics = &MockMetricsCollector{}
	return srv
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func TestMountRoutes_MiddlewareCount(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	srv.MountRoutes()

	// Recoverer, ContextTimeout, RequestID, SecurityHeaders, RequestLogger,
	// CORS, Metrics.
	if got := len(srv.Router().Middlewares()); got != 7 {
		t.Errorf("middleware count = %d, want 7", got)
	}
}

func TestMountRoutes_HealthEndpoints(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	srv.MountRoutes()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s Content-Type = %q", path, ct)
		}
	}
}

func TestMountRoutes_HealthNeedsNoToken(t *testing.T) {
	srv := newTestServerForRoutes(t, testTokenHash(t))
	srv.MountRoutes()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s without credentials = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestMountRoutes_V1RequiresToken(t *testing.T) {
	srv := newTestServerForRoutes(t, testTokenHash(t))
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	srv.MountRoutes()

	t.Run("rejects without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		resp := decodeErrorResponse(t, rec)
		if resp.Error.Code != string(types.ErrCodeAuthTokenMissing) {
			t.Errorf("code = %q, want %q", resp.Error.Code, types.ErrCodeAuthTokenMissing)
		}
	})

	t.Run("accepts with token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("401 carries request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

		headerID := rec.Header().Get("X-Request-Id")
		if headerID == "" {
			t.Fatal("X-Request-Id header missing on 401")
		}
		resp := decodeErrorResponse(t, rec)
		if resp.Error.RequestID != headerID {
			t.Errorf("body request_id = %q, header = %q", resp.Error.RequestID, headerID)
		}
	})
}

func TestMountRoutes_UnknownRoute(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMountRoutes_RequestID(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	srv.MountRoutes()

	t.Run("generated when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		id := rec.Header().Get("X-Request-Id")
		if len(id) != 32 || !isHex(id) {
			t.Errorf("X-Request-Id = %q, want 32 hex chars", id)
		}
	})

	t.Run("propagated when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-Id", "req_fixed")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-Id"); got != "req_fixed" {
			t.Errorf("X-Request-Id = %q, want req_fixed", got)
		}
	})
}

func TestMountRoutes_SecurityHeaders(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestMountRoutes_CORS(t *testing.T) {
	srv := newTestServerForRoutes(t, testTokenHash(t))
	srv.MountRoutes()

	t.Run("preflight bypasses auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/garden", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("preflight status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "PUT" {
			t.Errorf("Access-Control-Allow-Methods = %q, want PUT", got)
		}
		if got := rec.Header().Get("Access-Control-Max-Age"); got != "300" {
			t.Errorf("Access-Control-Max-Age = %q, want 300", got)
		}
	})

	t.Run("actual request carries allow origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
	})
}

func TestMountRoutes_PanicInHandler(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
			panic("handler exploded")
		})
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	resp := decodeErrorResponse(t, rec)
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("code = %q, want %q", resp.Error.Code, types.ErrCodeInternalUnexpected)
	}
	// The request id was assigned before the panic, so the header survives.
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing on panic response")
	}
}

func TestMountRoutes_MetricsUseRoutePatterns(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	mc := srv.Metrics.(*MockMetricsCollector)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/advice/{date}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/advice/2026-06-15", nil))

	if len(mc.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(mc.Calls))
	}
	if mc.Calls[0].Endpoint != "/v1/advice/{date}" {
		t.Errorf("endpoint = %q, want /v1/advice/{date}", mc.Calls[0].Endpoint)
	}
	if mc.Calls[0].Status != "200" {
		t.Errorf("status = %q, want 200", mc.Calls[0].Status)
	}
}

func TestContextTimeoutMiddleware(t *testing.T) {
	t.Run("sets a deadline", func(t *testing.T) {
		var deadline time.Time
		var hasDeadline bool
		handler := ContextTimeoutMiddleware(29 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline, hasDeadline = r.Context().Deadline()
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/garden", nil))

		if !hasDeadline {
			t.Fatal("request context has no deadline")
		}
		if until := time.Until(deadline); until > 29*time.Second {
			t.Errorf("deadline %v away, want at most 29s", until)
		}
	})

	t.Run("cancels past the deadline", func(t *testing.T) {
		var ctxErr error
		handler := ContextTimeoutMiddleware(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			ctxErr = r.Context().Err()
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/garden", nil))

		if ctxErr != context.DeadlineExceeded {
			t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctxErr)
		}
	})
}

func TestMountRoutes_FullChain(t *testing.T) {
	srv := newTestServerForRoutes(t, "")
	mc := srv.Metrics.(*MockMetricsCollector)

	var seenRequestID string
	var seenDeadline bool
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			seenRequestID = types.GetRequestID(r.Context())
			_, seenDeadline = r.Context().Deadline()
			JSON(w, r, http.StatusOK, APIResponse{Data: "pong"})
		})
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if seenRequestID == "" {
		t.Error("handler saw no request id")
	}
	if seenRequestID != rec.Header().Get("X-Request-Id") {
		t.Error("context request id does not match response header")
	}
	if !seenDeadline {
		t.Error("handler saw no context deadline")
	}
	if len(mc.Calls) != 1 || mc.Calls[0].Endpoint != "/v1/ping" {
		t.Errorf("metrics calls = %+v, want one for /v1/ping", mc.Calls)
	}
}
