package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestBearerToken(t *testing.T) {
	h := BearerToken("s3cret")(ok)
	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"no credentials", "/api/events", "", http.StatusUnauthorized},
		{"valid header", "/api/events", "Bearer s3cret", http.StatusOK},
		{"lowercase scheme", "/api/events", "bearer s3cret", http.StatusOK},
		{"wrong token", "/api/events", "Bearer nope", http.StatusUnauthorized},
		{"basic scheme", "/api/events", "Basic s3cret", http.StatusUnauthorized},
		{"query token", "/ws/events?access_token=s3cret", "", http.StatusOK},
		{"header wins over query", "/ws/events?access_token=s3cret", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestBearerTokenDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	BearerToken("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://ops.example"})(ok)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Origin", "https://ops.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/pass", nil)
	req.Header.Set("Origin", "https://ops.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}
