package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Error codes shared by handlers and middleware.
const (
	CodeInvalidPair     = "INVALID_PAIR"
	CodeInvalidDecision = "INVALID_DECISION"
	CodeInvalidBody     = "INVALID_BODY"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeMatchInactive   = "MATCH_INACTIVE"
	CodeConflict        = "CONFLICT"
	CodeTooFast         = "TOO_FAST"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Code          string     `json:"code"`
	Message       string     `json:"message"`
	RetryAfterSec int64      `json:"retry_after_sec"`
	CooldownUntil *time.Time `json:"cooldown_until"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, APIError{Code: code, Message: message})
}

// WriteUnavailable answers 503 and asks the client to come back in a second.
func WriteUnavailable(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, "service temporarily unavailable")
}

// WriteTooFast answers 429 with the cooldown both as a header and in the body.
func WriteTooFast(w http.ResponseWriter, retryAfterSec int64, now time.Time) {
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	until := now.UTC().Add(time.Duration(retryAfterSec) * time.Second)
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSec, 10))
	Write(w, http.StatusTooManyRequests, RateLimitError{
		Code:          CodeTooFast,
		Message:       "too many actions, slow down",
		RetryAfterSec: retryAfterSec,
		CooldownUntil: &until,
	})
}
