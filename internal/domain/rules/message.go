package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/relun/backend/internal/domain/errs"
)

const DefaultMessageMaxLength = 2000

// NormalizeBody trims surrounding whitespace and enforces the length limit in runes.
func NormalizeBody(body string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMessageMaxLength
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", fmt.Errorf("%w: body is empty", errs.ErrInvalidBody)
	}
	if !utf8.ValidString(trimmed) {
		return "", fmt.Errorf("%w: body is not valid utf-8", errs.ErrInvalidBody)
	}
	if n := utf8.RuneCountInString(trimmed); n > maxLength {
		return "", fmt.Errorf("%w: body has %d characters, limit is %d", errs.ErrInvalidBody, n, maxLength)
	}
	return trimmed, nil
}
