package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestPinMiddleware(t *testing.T) {
	handler := pinMiddleware(func() string { return "123456" }, okHandler())

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "valid header", header: "123456", want: http.StatusOK},
		{name: "valid query param", query: "?pin=123456", want: http.StatusOK},
		{name: "wrong pin", header: "000000", want: http.StatusUnauthorized},
		{name: "missing pin", want: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/thing"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("X-API-PIN", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestPinMiddlewareEmptyConfiguredPIN(t *testing.T) {
	handler := pinMiddleware(func() string { return "" }, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/thing?pin=", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// An unset PIN must never mean open access.
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 when no PIN is configured", rec.Code)
	}
}

func TestLocalhostOnlyMiddleware(t *testing.T) {
	handler := localhostOnlyMiddleware(okHandler())

	tests := []struct {
		host string
		want int
	}{
		{host: "localhost:8989", want: http.StatusOK},
		{host: "127.0.0.1:8989", want: http.StatusOK},
		{host: "localhost", want: http.StatusOK},
		{host: "example.com", want: http.StatusForbidden},
		{host: "192.168.1.10:8989", want: http.StatusForbidden},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Host = tc.host
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("host %q: status = %d, want %d", tc.host, rec.Code, tc.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/thing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
