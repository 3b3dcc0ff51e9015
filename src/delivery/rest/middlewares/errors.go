package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/seatvault/reservation-engine/src/internal/domain"
)

// errorResponse is the {code, message, details} shape spec.md §7 requires
// for every error output.
type errorResponse struct {
	Code    domain.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// statusForCode is the single code->HTTP-status mapping table every
// controller's error path goes through, per spec.md §7.
var statusForCode = map[domain.ErrorCode]int{
	domain.CodeValidation:     http.StatusBadRequest,
	domain.CodeAuthentication: http.StatusUnauthorized,
	domain.CodeAuthorization:  http.StatusForbidden,
	domain.CodeNotFound:       http.StatusNotFound,
	domain.CodeConflict:       http.StatusConflict,
	domain.CodeSeatLock:       http.StatusConflict,
	domain.CodePayment:        http.StatusPaymentRequired,
	domain.CodeStoreUnavail:   http.StatusServiceUnavailable,
}

// WriteError maps err to a protocol response. Unrecognized errors are
// wrapped StoreUnavailable, per spec.md §7's adapter-error fallback.
func WriteError(w http.ResponseWriter, err error) {
	ee, ok := err.(*domain.EngineError)
	if !ok {
		ee = domain.Wrap(err).(*domain.EngineError)
	}

	status, ok := statusForCode[ee.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: ee.Code, Message: ee.Message, Details: ee.Details})
}

// WriteJSON writes a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
