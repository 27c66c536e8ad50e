package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duespark/duespark-backend/internal/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := middleware.NewRateLimiter(3)
	h := rl.Limit(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/reminders/run", nil)
		req.Header.Set("X-Owner-ID", "1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest("POST", "/reminders/run", nil)
	req.Header.Set("X-Owner-ID", "1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json error, got %s", ct)
	}
}

// Owners do not share buckets.
func TestRateLimiterKeysByOwner(t *testing.T) {
	rl := middleware.NewRateLimiter(1)
	h := rl.Limit(okHandler())

	req1 := httptest.NewRequest("POST", "/reminders/run", nil)
	req1.Header.Set("X-Owner-ID", "1")
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, req1)

	req2 := httptest.NewRequest("POST", "/reminders/run", nil)
	req2.Header.Set("X-Owner-ID", "2")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req2)

	if w1.Code != http.StatusOK || w2.Code != http.StatusOK {
		t.Errorf("independent owners both within limit: got %d and %d", w1.Code, w2.Code)
	}
}

// The bucket key combines owner and address, so the same owner calling
// from two addresses gets two buckets, and two requests from the same
// owner and address share one.
func TestRateLimiterKeysByOwnerAndAddr(t *testing.T) {
	rl := middleware.NewRateLimiter(1)
	h := rl.Limit(okHandler())

	req1 := httptest.NewRequest("POST", "/reminders/run", nil)
	req1.Header.Set("X-Owner-ID", "1")
	req1.RemoteAddr = "10.0.0.1:5000"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, req1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}

	req2 := httptest.NewRequest("POST", "/reminders/run", nil)
	req2.Header.Set("X-Owner-ID", "1")
	req2.RemoteAddr = "10.0.0.2:5000" // same owner, different address
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req2)
	if w2.Code != http.StatusOK {
		t.Errorf("expected separate bucket per address, got %d", w2.Code)
	}

	req3 := httptest.NewRequest("POST", "/reminders/run", nil)
	req3.Header.Set("X-Owner-ID", "1")
	req3.RemoteAddr = "10.0.0.1:6000" // same owner and address
	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, req3)
	if w3.Code != http.StatusTooManyRequests {
		t.Errorf("expected shared bucket for same owner and address, got %d", w3.Code)
	}
}

func TestRateLimiterFallsBackToRemoteAddr(t *testing.T) {
	rl := middleware.NewRateLimiter(1)
	h := rl.Limit(okHandler())

	req := httptest.NewRequest("POST", "/reminders/run", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req2 := httptest.NewRequest("POST", "/reminders/run", nil)
	req2.RemoteAddr = "10.0.0.1:6000" // same host, different port
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req2)
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("expected same-host requests to share a bucket, got %d", w2.Code)
	}
}
