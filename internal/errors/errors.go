package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the session and account managers
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrNoLinkToken     = errors.New("no link token")
	ErrLinkNotReady    = errors.New("link flow not ready")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
