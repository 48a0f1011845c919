// responses.go -- Package-wide HTTP response helpers.
//
// Rejections use the {error, type} shape the form client keys on: error is a
// human-readable sentence, type a stable machine code. Rejection messages
// stay generic -- which heuristic fired is logged, never echoed to the
// client, so bots get no tuning feedback.
package abuse

import (
	"encoding/json"
	"net/http"
)

// Rejection type codes attached to error responses.
const (
	TypeInvalidBody       = "INVALID_BODY"
	TypeMissingFormID     = "MISSING_FORM_ID"
	TypeIPBlocked         = "IP_BLOCKED"
	TypeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	TypeTokenInvalid      = "TOKEN_INVALID"
	TypeTokenReplayed     = "TOKEN_REPLAYED"
	TypeSpamDetected      = "SPAM_DETECTED"
	TypeCaptchaFailed     = "CAPTCHA_FAILED"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Reject writes a {error, type} rejection with the given status.
func Reject(w http.ResponseWriter, status int, message, rejectionType string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"type":  rejectionType,
	})
}

// InternalServerError logs the error and returns a generic 500 response.
// Never exposes internal error details.
func InternalServerError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r, "internal server error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
