package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the stores and the server
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidCookie   = errors.New("invalid session cookie")

	// User directory errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserBlocked  = errors.New("user is blocked")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
