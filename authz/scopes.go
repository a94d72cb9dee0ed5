package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// knownScopes enumerates every scope identifier the authorization server recognizes.
var knownScopes = []string{
	"ugc-image-upload",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"app-remote-control",
	"streaming",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
	"user-follow-modify",
	"user-follow-read",
	"user-read-playback-position",
	"user-top-read",
	"user-read-recently-played",
	"user-library-modify",
	"user-library-read",
	"user-read-email",
	"user-read-private",
	"user-soa-link",
	"user-soa-unlink",
	"user-manage-entitlements",
	"user-manage-partner",
	"user-create-partner",
}

var knownScopeSet = toSet(knownScopes)

// Scope identifiers referenced by the request catalogue.
const (
	ScopeUserLibraryRead          = "user-library-read"
	ScopeUserLibraryModify        = "user-library-modify"
	ScopeUserReadRecentlyPlayed   = "user-read-recently-played"
	ScopeUserReadPlaybackState    = "user-read-playback-state"
	ScopeUserModifyPlaybackState  = "user-modify-playback-state"
	ScopeUserReadEmail            = "user-read-email"
	ScopeUserReadPrivate          = "user-read-private"
	ScopeUserReadPlaybackPosition = "user-read-playback-position"
)

var (
	// ErrInvalidScope indicates that a requested scope is not a known scope identifier.
	ErrInvalidScope = errors.New("authz: invalid scope")

	// ErrInvalidArgument indicates a malformed scope list, such as one holding blank entries.
	ErrInvalidArgument = errors.New("authz: invalid argument")
)

// InvalidScopeError lists the requested scopes that are not recognized.
type InvalidScopeError struct {
	Unknown []string
}

// Error returns a concise message naming the unknown scopes.
func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("authz: unknown scopes %v", e.Unknown)
}

// Is enables errors.Is(err, ErrInvalidScope).
func (e *InvalidScopeError) Is(target error) bool {
	return target == ErrInvalidScope
}

// KnownScopes returns a sorted copy of the recognized scope identifiers.
func KnownScopes() []string {
	scopes := make([]string, len(knownScopes))
	copy(scopes, knownScopes)
	sort.Strings(scopes)
	return scopes
}

// IsKnownScope reports whether scope is a recognized scope identifier.
func IsKnownScope(scope string) bool {
	_, ok := knownScopeSet[scope]
	return ok
}

// ValidateScopes checks requested scopes before any network call is made.
// A nil or empty list is valid and means "no scope requested".
func ValidateScopes(scopes []string) error {
	var unknown []string
	for _, scope := range scopes {
		if strings.TrimSpace(scope) == "" {
			return fmt.Errorf("%w: blank scope in list", ErrInvalidArgument)
		}
		if !IsKnownScope(scope) {
			unknown = append(unknown, scope)
		}
	}

	if len(unknown) > 0 {
		return &InvalidScopeError{Unknown: unknown}
	}
	return nil
}
