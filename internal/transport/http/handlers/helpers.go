package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	authsvc "github.com/relun/backend/internal/services/auth"
	httperrors "github.com/relun/backend/internal/transport/http/errors"
)

const maxBodyBytes = 64 << 10

// decodeJSON treats an empty body as an empty object so requests whose
// fields are all optional may omit it.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusBadRequest, code, message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusInternalServerError, code, message)
}

// writeServiceError maps the domain taxonomy onto HTTP. Unknown errors are
// logged and reported as 500 with the given message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, message string) {
	if tooFast, ok := errs.IsTooFast(err); ok {
		httperrors.WriteTooFast(w, tooFast.RetryAfterSec, time.Now())
		return
	}

	switch {
	case errors.Is(err, errs.ErrInvalidPair):
		writeBadRequest(w, httperrors.CodeInvalidPair, "actor and target must be two different users")
	case errors.Is(err, errs.ErrInvalidDecision):
		writeBadRequest(w, httperrors.CodeInvalidDecision, "decision must be like, pass or superlike")
	case errors.Is(err, errs.ErrInvalidBody):
		writeBadRequest(w, httperrors.CodeInvalidBody, "message body is empty or too long")
	case errors.Is(err, errs.ErrValidation):
		writeBadRequest(w, httperrors.CodeValidation, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		httperrors.WriteError(w, http.StatusUnauthorized, httperrors.CodeUnauthorized, "authentication required")
	case errors.Is(err, errs.ErrForbidden):
		httperrors.WriteError(w, http.StatusForbidden, httperrors.CodeForbidden, "not a participant of this match")
	case errors.Is(err, errs.ErrNotFound):
		httperrors.WriteError(w, http.StatusNotFound, httperrors.CodeNotFound, "not found")
	case errors.Is(err, errs.ErrMatchInactive):
		httperrors.WriteError(w, http.StatusConflict, httperrors.CodeMatchInactive, "match is no longer active")
	case errors.Is(err, errs.ErrConflict):
		httperrors.WriteError(w, http.StatusConflict, httperrors.CodeConflict, "concurrent update, try again")
	case errors.Is(err, errs.ErrUnavailable):
		logger.Warn("storage unavailable", zap.Error(err))
		httperrors.WriteUnavailable(w)
	default:
		logger.Error(message, zap.Error(err))
		httperrors.WriteError(w, http.StatusInternalServerError, httperrors.CodeInternal, message)
	}
}

// actingUser resolves who performs the request. A body may name the user
// explicitly, but only as the authenticated identity itself.
func actingUser(r *http.Request, claimed string) (model.UserID, error) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		return "", errs.ErrUnauthorized
	}
	claimed = strings.TrimSpace(claimed)
	if claimed != "" && model.UserID(claimed) != identity.UserID {
		return "", fmt.Errorf("%w: request acts for another user", errs.ErrForbidden)
	}
	return identity.UserID, nil
}
