package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type denyAfter struct{ left int }

func (d *denyAfter) Allow(string) bool {
	if d.left <= 0 {
		return false
	}
	d.left--
	return true
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
}

func serve(s *Server, path string) int {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestServerRateLimitSkipsHealth(t *testing.T) {
	s := NewServer(pingHandler{}, WithMetrics(false), WithRateLimiter(&denyAfter{left: 1}))

	if code := serve(s, "/api/ping"); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := serve(s, "/api/ping"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
	if code := serve(s, "/healthz"); code != http.StatusOK {
		t.Fatalf("healthz must not be limited, got %d", code)
	}
}

func TestServerUnknownRoute(t *testing.T) {
	s := NewServer(nil, WithMetrics(false))
	if code := serve(s, "/nope"); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := AppErrorResponse(c, UnprocessableError("frame has no Close column")); err != nil {
		t.Fatalf("AppErrorResponse: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func request(s *Server, method, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowList(t *testing.T) {
	s := NewServer(pingHandler{}, WithMetrics(false), WithCORS("https://dash.example.com"))

	rec := request(s, http.MethodGet, "/api/ping", "https://dash.example.com")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://dash.example.com" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlExposeHeaders); got != "Content-Disposition, X-Run-Id" {
		t.Fatalf("unexpected exposed headers %q", got)
	}

	rec = request(s, http.MethodGet, "/api/ping", "https://evil.example.com")
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("foreign origin must not get CORS headers, code=%d", rec.Code)
	}

	rec = request(s, http.MethodOptions, "/api/ping", "https://dash.example.com")
	if rec.Code != http.StatusNoContent || rec.Header().Get(echo.HeaderAccessControlAllowMethods) != "GET, OPTIONS" {
		t.Fatalf("unexpected preflight: code=%d methods=%q", rec.Code, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	}
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	s := NewServer(pingHandler{}, WithMetrics(false), WithCORS())
	rec := request(s, http.MethodGet, "/api/ping", "https://dash.example.com")
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("expected no CORS headers when disabled")
	}
}
