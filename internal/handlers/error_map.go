package handlers

import (
	"net/http"

	"inventory-dashboard/internal/apperror"
	"inventory-dashboard/internal/logger"
)

func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, internalMessage string) {
	switch {
	case apperror.Is(err, apperror.KindNotFound):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	case apperror.Is(err, apperror.KindValidation):
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case apperror.Is(err, apperror.KindUnavailable):
		writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	case apperror.Is(err, apperror.KindRemote):
		if log != nil {
			log.WithError(err).Warn(internalMessage)
		}
		writeErrorResponse(w, http.StatusBadGateway, internalMessage)
	default:
		if log != nil {
			log.WithError(err).Error(internalMessage)
		}
		writeErrorResponse(w, http.StatusInternalServerError, internalMessage)
	}
}
