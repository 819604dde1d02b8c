package errs

import "errors"

var (
	ErrValidation      = errors.New("validation error")
	ErrInvalidPair     = errors.New("invalid pair")
	ErrInvalidDecision = errors.New("unsupported decision")
	ErrInvalidBody     = errors.New("invalid message body")
	ErrForbidden       = errors.New("forbidden")
	ErrMatchInactive   = errors.New("match is not active")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflicting concurrent write")
	ErrUnavailable     = errors.New("storage unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
)

// TooFastError is returned when a rate window rejects an action.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too many actions"
}

func IsTooFast(err error) (TooFastError, bool) {
	var target TooFastError
	if errors.As(err, &target) {
		return target, true
	}
	return TooFastError{}, false
}
