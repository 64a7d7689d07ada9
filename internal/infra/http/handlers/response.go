package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

var domainStatus = map[string]int{
	usecase.CodeValidation:        http.StatusBadRequest,
	usecase.CodeInvalidToken:      http.StatusBadRequest,
	usecase.CodeTenantNotFound:    http.StatusNotFound,
	usecase.CodeCampaignNotFound:  http.StatusNotFound,
	usecase.CodeWeeklyLimit:       http.StatusConflict,
	usecase.CodeNotRetryable:      http.StatusConflict,
	usecase.CodeNotClaimable:      http.StatusConflict,
	usecase.CodeTribeFull:         http.StatusConflict,
	usecase.CodeAlreadySubscribed: http.StatusConflict,
	usecase.CodeNoRecipients:      http.StatusUnprocessableEntity,
}

// writeUseCaseError maps use case errors to responses. Anything that is not
// a DomainError is logged and answered with a generic 500.
func writeUseCaseError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status, ok := domainStatus[de.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		writeErrorResponse(w, status, de.Code, de.Message)
		return
	}

	logger.Error().Err(err).Msg("request failed")
	writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong, please try again")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
