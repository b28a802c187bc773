package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRateLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := WithRateLimit(next, 1)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	allowed := 0
	for i := 0; i < 10; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed == 0 || allowed == 10 {
		t.Fatalf("limiter allowed %d of 10 burst requests", allowed)
	}

	// a different client has its own budget
	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusOK {
		t.Fatalf("fresh client throttled: %d", resp.Code)
	}

	// disabled limiter passes everything through
	passthrough := WithRateLimit(next, 0)
	for i := 0; i < 10; i++ {
		resp := httptest.NewRecorder()
		passthrough.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request: %d", resp.Code)
		}
	}
}
