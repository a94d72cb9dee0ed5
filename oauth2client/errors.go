package oauth2client

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication indicates that the token endpoint rejected the credentials,
	// the authorization code or the refresh token.
	ErrAuthentication = errors.New("oauth2client: authentication failed")

	// ErrNotAuthorized indicates that a code-based flow has no authorization code yet.
	ErrNotAuthorized = errors.New("oauth2client: authorization code not negotiated")

	// ErrNotInteractive indicates that the flow has no authorization step.
	ErrNotInteractive = errors.New("oauth2client: flow does not support user authorization")
)

// AuthenticationError reports a non-success response from the token endpoint.
// Body holds the endpoint's error payload verbatim.
type AuthenticationError struct {
	StatusCode int
	Body       string

	// ErrorCode and Description are extracted from a standard OAuth2 error payload, if any.
	ErrorCode   string
	Description string

	// Refresh is true when the rejected request was a refresh-token grant.
	Refresh bool
}

// Error returns a message including the upstream status and payload.
func (e *AuthenticationError) Error() string {
	kind := "token request"
	if e.Refresh {
		kind = "token refresh"
	}
	return fmt.Sprintf("oauth2client: %s rejected with status %d: %s", kind, e.StatusCode, e.Body)
}

// Is enables errors.Is(err, ErrAuthentication).
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}
