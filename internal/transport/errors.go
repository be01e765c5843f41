package transport

import (
	"errors"
	"net/http"

	"zarab-collections/internal/catalog"
	"zarab-collections/internal/dashboard"
	"zarab-collections/internal/domain"
	"zarab-collections/internal/form"
	"zarab-collections/internal/middleware"
	"zarab-collections/internal/repository"
	"zarab-collections/internal/service"

	"go.uber.org/zap"
)

// respondError turns a component error into the single message the client shows
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if ve, ok := domain.IsValidation(err); ok {
		middleware.RespondWithErrorDetails(w, http.StatusUnprocessableEntity, ve.Message, map[string]interface{}{
			"field":  ve.Field,
			"reason": ve.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, form.ErrSubmitInProgress):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrDeleteNotConfirmed):
		middleware.RespondWithError(w, http.StatusPreconditionRequired, "confirm deletion with X-Confirm-Delete: true")
	case errors.Is(err, catalog.ErrUnknownSortKey), errors.Is(err, dashboard.ErrUnknownTab):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dashboard.ErrShellClosed), errors.Is(err, service.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "session has ended")
	case errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "session expired")
	case domain.IsBackend(err):
		logger.Error("Backend call failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("Unhandled error", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, form.MessageUnexpected)
	}
}

// respondDecodeError reports a request body that failed to decode or validate
func respondDecodeError(w http.ResponseWriter, err error) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}
