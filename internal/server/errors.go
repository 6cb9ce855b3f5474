package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/hostelsec/internal/apperr"
	"github.com/wolfeidau/hostelsec/internal/auth"
	"github.com/wolfeidau/hostelsec/internal/store"
)

// writeError translates err into the fixed response shape for its kind.
// Unauthenticated and Forbidden never expose the internal reason.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	kind, message := classify(err)
	switch kind {
	case apperr.KindUnauthenticated:
		logger.Debug().Err(err).Msg("request unauthenticated")
		auth.WriteUnauthorized(w)
	case apperr.KindForbidden:
		logger.Debug().Err(err).Str("reason", apperr.ReasonOf(err)).Msg("request forbidden")
		writeDetail(w, http.StatusForbidden, "forbidden")
	case apperr.KindValidation:
		writeDetail(w, http.StatusBadRequest, message)
	case apperr.KindNotFound:
		writeDetail(w, http.StatusNotFound, message)
	case apperr.KindConflict:
		writeDetail(w, http.StatusConflict, message)
	case apperr.KindDegraded:
		logger.Warn().Err(err).Msg("dependency degraded")
		writeDetail(w, http.StatusServiceUnavailable, "service degraded")
	default:
		logger.Error().Err(err).Msg("request failed")
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

// classify resolves the kind of err and a caller safe message. Bare store
// sentinels are mapped for callers that did not translate them.
func classify(err error) (apperr.Kind, string) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message := appErr.Message
		if message == "" {
			message = appErr.Kind.String()
		}
		return appErr.Kind, message
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.KindNotFound, "not found"
	case errors.Is(err, store.ErrAlreadyExists):
		return apperr.KindConflict, "already exists"
	case errors.Is(err, store.ErrInvalidReference):
		return apperr.KindValidation, "invalid reference"
	case errors.Is(err, store.ErrInvalidValue):
		return apperr.KindValidation, "invalid value"
	case errors.Is(err, store.ErrUnavailable):
		return apperr.KindDegraded, ""
	}
	return apperr.KindInternal, ""
}
