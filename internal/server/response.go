package server

import (
	"encoding/json"
	"net/http"

	"github.com/gemchat/gemchat/pkg/types"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeOutcome writes a classified error in the wire error shape.
func writeOutcome(w http.ResponseWriter, status int, outcome *types.ErrorOutcome) {
	writeJSON(w, status, types.ErrorResponse{Error: outcome})
}

// writeGeneralError writes a general error with the given message.
func writeGeneralError(w http.ResponseWriter, status int, message string) {
	writeOutcome(w, status, &types.ErrorOutcome{
		Kind:    types.OutcomeGeneral,
		Message: message,
	})
}

// outcomeStatus maps an error outcome to an HTTP status.
func outcomeStatus(outcome *types.ErrorOutcome) int {
	if outcome.Kind == types.OutcomeRateLimit {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
