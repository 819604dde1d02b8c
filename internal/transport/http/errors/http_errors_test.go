package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusConflict, CodeMatchInactive, "match is no longer active")

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != CodeMatchInactive {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestWriteUnavailableSetsRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteUnavailable(rr)

	if rr.Code != http.StatusServiceUnavailable || rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("unexpected response %d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
}

func TestWriteTooFast(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rr := httptest.NewRecorder()
	WriteTooFast(rr, 0, now)

	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("unexpected response %d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	var body RateLimitError
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RetryAfterSec != 1 || body.CooldownUntil == nil || !body.CooldownUntil.Equal(now.Add(time.Second)) {
		t.Fatalf("unexpected body %+v", body)
	}
}
