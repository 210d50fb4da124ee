package mockbackend

import (
	"encoding/json"
	"errors"
	"net/http"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Error codes in the identity provider's vocabulary.
const (
	codeNotAuthorized         = "NotAuthorizedException"
	codeUserNotConfirmed      = "UserNotConfirmedException"
	codeUsernameExists        = "UsernameExistsException"
	codeCodeMismatch          = "CodeMismatchException"
	codeExpiredCode           = "ExpiredCodeException"
	codePasswordResetRequired = "PasswordResetRequiredException"
	codeTooManyRequests       = "TooManyRequestsException"
	codeInvalidParameter      = "InvalidParameterException"
	codeUserNotFound          = "UserNotFoundException"
	codeInternal              = "InternalErrorException"

	codeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	codeInvalidPublicToken = "INVALID_PUBLIC_TOKEN"
	codeInvalidField       = "INVALID_FIELD"
)

var errUserExists = errors.New("user already exists")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	})
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParameter, "Malformed request body")
		return false
	}
	return true
}
