package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurity_Headers(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(SecurityConfig{})(okHandler(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	for name, want := range securityHeaders {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != hstsValue {
		t.Errorf("Strict-Transport-Security = %q, want %q", got, hstsValue)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "sandbox") {
		t.Errorf("Content-Security-Policy = %q, want sandbox for served SVG", csp)
	}
}

func TestSecurity_NoHSTSInDevelopment(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(SecurityConfig{IsDevelopment: true})(okHandler(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want unset", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestSecurity_HandlerCanOverride(t *testing.T) {
	handler := Security(SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, max-age=60")
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Cache-Control"); got != "private, max-age=60" {
		t.Errorf("Cache-Control = %q, want handler value", got)
	}
}

func TestMaxBodySize_DeclaredLength(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodPost, "/clean_svg", strings.NewReader(`{"svg":"<svg/>"}`))
	req.ContentLength = 4096
	rec := httptest.NewRecorder()

	MaxBodySize(64)(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if called {
		t.Error("handler ran for an oversize body")
	}
	if env := decodeEnvelope(t, rec); env.Error != MsgTooLarge || env.WasSuccessful {
		t.Errorf("envelope = %+v", env)
	}
}

func TestMaxBodySize_UndeclaredLength(t *testing.T) {
	var readErr error
	handler := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/insert", strings.NewReader(`{"csv":"/tmp/x.csv","uid":"run_7"}`))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var tooLarge *http.MaxBytesError
	if !errors.As(readErr, &tooLarge) {
		t.Fatalf("read error = %v, want *http.MaxBytesError", readErr)
	}
	if tooLarge.Limit != 8 {
		t.Errorf("limit = %d, want 8", tooLarge.Limit)
	}
}

func TestMaxBodySize_SmallBodyPasses(t *testing.T) {
	var called bool
	req := httptest.NewRequest(http.MethodPost, "/clean_svg", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	MaxBodySize(64)(okHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}
}
