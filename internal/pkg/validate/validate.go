package validate

import (
	"strconv"
	"strings"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Limit parses a page size, falling back on empty or invalid input and capping at max.
func Limit(raw string, fallback, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		n = fallback
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// Cursor parses a non-negative sequence cursor. Empty input means the beginning.
func Cursor(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
