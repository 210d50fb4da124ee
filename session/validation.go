package session

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError is a local input failure. Operations that return one have not
// made a network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func plausibleEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

func validateLogin(email, password string) error {
	if email == "" || password == "" {
		return invalid("Please enter your email and password")
	}
	if !plausibleEmail(email) {
		return invalid("Please enter a valid email address")
	}
	return nil
}

func validateEmail(email string) error {
	if !plausibleEmail(email) {
		return invalid("Please enter a valid email address")
	}
	return nil
}

func validatePassword(password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return invalid(fmt.Sprintf("Password must be at least %d characters", minLength))
	}
	return nil
}

func validateSignUp(name, email, password string, minLength int) error {
	if name == "" {
		return invalid("Please enter your name")
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password, minLength)
}

func validateCode(code, message string) error {
	if code == "" {
		return invalid(message)
	}
	return nil
}
