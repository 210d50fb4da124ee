package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-saverr/internal/utils"
)

// Kind classifies a backend failure.
type Kind int

const (
	// KindAPI is a recognised error body with an unrecognised code; the raw message is kept.
	KindAPI Kind = iota
	KindInvalidCredentials
	KindNotConfirmed
	KindAlreadyExists
	KindExpiredCode
	KindInvalidCode
	KindResetRequired
	KindRateLimited
	KindUnauthorized
	// KindServer is a non-2xx response whose body could not be interpreted.
	KindServer
)

var kindNames = map[Kind]string{
	KindAPI:                "api_error",
	KindInvalidCredentials: "invalid_credentials",
	KindNotConfirmed:       "user_not_confirmed",
	KindAlreadyExists:      "user_already_exists",
	KindExpiredCode:        "expired_code",
	KindInvalidCode:        "invalid_code",
	KindResetRequired:      "password_reset_required",
	KindRateLimited:        "too_many_attempts",
	KindUnauthorized:       "unauthorized",
	KindServer:             "server_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var kindMessages = map[Kind]string{
	KindInvalidCredentials: "Invalid email or password",
	KindNotConfirmed:       "Please verify your email address",
	KindAlreadyExists:      "An account with this email already exists",
	KindExpiredCode:        "Verification code has expired",
	KindInvalidCode:        "Invalid verification code",
	KindResetRequired:      "Password reset is required",
	KindRateLimited:        "Too many attempts. Please try again later",
	KindUnauthorized:       "Please sign in to continue",
}

// Backend error codes with a dedicated Kind.
var codeKinds = map[string]Kind{
	"NotAuthorizedException":         KindInvalidCredentials,
	"UserNotConfirmedException":      KindNotConfirmed,
	"UsernameExistsException":        KindAlreadyExists,
	"ExpiredCodeException":           KindExpiredCode,
	"CodeMismatchException":          KindInvalidCode,
	"PasswordResetRequiredException": KindResetRequired,
	"TooManyRequestsException":       KindRateLimited,
	"LimitExceededException":         KindRateLimited,
}

// Error is a non-2xx response mapped into the domain taxonomy.
type Error struct {
	Kind       Kind
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		if e.Message != "" {
			return e.Message
		}
		return "An error occurred"
	case KindServer:
		return fmt.Sprintf("Server error (code: %d)", e.StatusCode)
	}
	return kindMessages[e.Kind]
}

var (
	ErrInvalidURL      = errors.New("invalid api url")
	ErrInvalidResponse = errors.New("invalid response from server")
)

// DecodeError is returned when a 2xx body does not match the expected shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode response: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// NetworkError wraps failures that happened before a response was read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// TokenError is returned when the token source could not supply a bearer token.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string { return "obtain access token: " + e.Err.Error() }
func (e *TokenError) Unwrap() error { return e.Err }

// Message renders err for the single error slot shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		apiErr     *Error
		decodeErr  *DecodeError
		networkErr *NetworkError
		tokenErr   *TokenError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.As(err, &tokenErr):
		return kindMessages[KindUnauthorized]
	case errors.As(err, &decodeErr):
		return "Failed to parse server response"
	case errors.Is(err, ErrInvalidURL):
		return "Invalid API configuration"
	case errors.Is(err, ErrInvalidResponse):
		return "Invalid response from server"
	case errors.As(err, &networkErr):
		return "Network error: " + networkErr.Err.Error()
	}
	return err.Error()
}

// KindOf extracts the Kind of a backend error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

type errorBody struct {
	Error     json.RawMessage `json:"error"`
	Message   *string         `json:"message"`
	Code      *string         `json:"code"`
	ErrorCode *string         `json:"error_code"`
}

type nestedErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// decodeErrorResponse accepts {error, message, code|error_code} and {error: {message, code}}.
func decodeErrorResponse(status int, data []byte) error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		raw := strings.TrimSpace(string(body.Error))
		if strings.HasPrefix(raw, "{") {
			var nested nestedErrorBody
			if err := json.Unmarshal(body.Error, &nested); err == nil && (nested.Message != "" || nested.Code != "") {
				return classifyNested(status, nested.Code, nested.Message)
			}
		}

		var errText string
		if strings.HasPrefix(raw, `"`) {
			_ = json.Unmarshal(body.Error, &errText)
		}
		code := utils.Value(utils.Coalesce(body.Code, body.ErrorCode))
		message := utils.Value(body.Message)
		if message == "" {
			message = errText
		}
		if code != "" || message != "" {
			return classify(status, code, message)
		}
	}

	if status == http.StatusUnauthorized {
		return &Error{Kind: KindUnauthorized, StatusCode: status}
	}
	return &Error{Kind: KindServer, StatusCode: status}
}

func classify(status int, code, message string) error {
	if kind, ok := codeKinds[code]; ok {
		return &Error{Kind: kind, StatusCode: status, Code: code, Message: message}
	}
	if status == http.StatusUnauthorized {
		return &Error{Kind: KindUnauthorized, StatusCode: status, Code: code, Message: message}
	}
	return &Error{Kind: KindAPI, StatusCode: status, Code: code, Message: message}
}

// classifyNested also recognises the backend's wording for unverified and duplicate users.
func classifyNested(status int, code, message string) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "verify your email"), strings.Contains(lower, "email address before logging in"):
		return &Error{Kind: KindNotConfirmed, StatusCode: status, Code: code, Message: message}
	case strings.Contains(lower, "already exists"):
		return &Error{Kind: KindAlreadyExists, StatusCode: status, Code: code, Message: message}
	}
	return classify(status, code, message)
}
