package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth client
var (
	// Validation errors: malformed stored tokens, bad form input, empty server payloads
	ErrValidation = errors.New("validation error")

	// Authentication errors: login, refresh or me rejected by the server
	ErrAuth                = errors.New("authentication failed")
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Transport errors
	ErrNetwork = errors.New("network error")

	// Session errors
	ErrSignInInProgress = errors.New("sign in already in progress")
	ErrNoSession        = errors.New("no session")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
