package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveCORS(origins []string, method, origin string, preflight bool) *httptest.ResponseRecorder {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins

	req := httptest.NewRequest(method, "/summarization_gene_expression/samples/run_7", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	CORS(cfg)(okHandler(nil)).ServeHTTP(rec, req)
	return rec
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"nothing configured", nil, "https://lab.example.org", ""},
		{"exact match", []string{"https://lab.example.org"}, "https://lab.example.org", "https://lab.example.org"},
		{"case folded", []string{"HTTPS://LAB.EXAMPLE.ORG"}, "https://lab.example.org", "https://lab.example.org"},
		{"other origin", []string{"https://lab.example.org"}, "https://evil.test", ""},
		{"any origin", []string{"*"}, "https://evil.test", "https://evil.test"},
		{"subdomain pattern", []string{"*.example.org"}, "https://plants.example.org", "https://plants.example.org"},
		{"nested subdomain", []string{"*.example.org"}, "https://a.b.example.org", "https://a.b.example.org"},
		{"lookalike domain", []string{"*.example.org"}, "https://notexample.org", ""},
		{"bare parent domain", []string{"*.example.org"}, "https://example.org", ""},
		{"no origin header", []string{"*"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveCORS(tt.allowed, http.MethodGet, tt.origin, false)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	rec := serveCORS([]string{"https://lab.example.org"}, http.MethodOptions, "https://lab.example.org", true)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	methods := rec.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(methods, http.MethodPost) || strings.Contains(methods, http.MethodDelete) {
		t.Errorf("Access-Control-Allow-Methods = %q", methods)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Api-Key") {
		t.Errorf("Access-Control-Allow-Headers = %q, want X-Api-Key", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "43200" {
		t.Errorf("Access-Control-Max-Age = %q, want 43200", got)
	}
}

func TestCORS_PreflightFromUnknownOrigin(t *testing.T) {
	rec := serveCORS([]string{"https://lab.example.org"}, http.MethodOptions, "https://evil.test", true)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	rec := serveCORS([]string{"https://lab.example.org"}, http.MethodOptions, "https://lab.example.org", false)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want handler's 200", rec.Code)
	}
}

func TestCORS_WildcardDropsCredentials(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.AllowCredentials = true

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://lab.example.org")
	rec := httptest.NewRecorder()
	CORS(cfg)(okHandler(nil)).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want unset", got)
	}
}
