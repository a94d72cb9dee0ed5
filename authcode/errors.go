package authcode

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthorization indicates that the user authorization step did not yield a code.
	ErrAuthorization = errors.New("authcode: authorization failed")

	// ErrMissingCode indicates a redirect URL without an authorization code or error.
	ErrMissingCode = errors.New("authcode: authorization code missing from redirect")
)

// AuthorizationError reports a failed authorization step: an unreachable consent
// page, an error parameter on the redirect, or a state mismatch.
type AuthorizationError struct {
	// StatusCode is set when the authorization endpoint answered with a non-2xx status.
	StatusCode int
	// Code is the OAuth2 error code, e.g. "access_denied" or "state_mismatch".
	Code        string
	Description string
}

// Error returns a message naming the failure.
func (e *AuthorizationError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("authcode: authorization endpoint returned status %d", e.StatusCode)
	case e.Description != "":
		return fmt.Sprintf("authcode: authorization failed: %s (%s)", e.Code, e.Description)
	default:
		return "authcode: authorization failed: " + e.Code
	}
}

// Is enables errors.Is(err, ErrAuthorization).
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrAuthorization
}
