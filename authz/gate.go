package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrPermissionDenied indicates that the granted scopes do not cover an operation.
var ErrPermissionDenied = errors.New("authz: permission denied")

// MissingScopesError carries the required scopes that were not granted.
type MissingScopesError struct {
	Missing []string

	// NotAuthorized is true when no authorization has completed yet.
	NotAuthorized bool
}

// Error returns a concise authorization error message.
func (e *MissingScopesError) Error() string {
	if e.NotAuthorized {
		return "authz: no authorization has been completed"
	}
	if len(e.Missing) == 0 {
		return ErrPermissionDenied.Error()
	}
	return fmt.Sprintf("authz: missing required scopes %v", e.Missing)
}

// Is enables errors.Is(err, ErrPermissionDenied).
func (e *MissingScopesError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// ScopeSet is an unordered set of scope identifiers.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from scopes, ignoring blank entries.
// The result is never nil, so an empty grant is distinguishable from no grant.
func NewScopeSet(scopes ...string) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		set[scope] = struct{}{}
	}
	return set
}

// ParseScopeSet builds a set from a space-delimited scope string, as found in token responses.
func ParseScopeSet(scope string) ScopeSet {
	return NewScopeSet(strings.Fields(scope)...)
}

// Contains reports whether scope is in the set.
func (s ScopeSet) Contains(scope string) bool {
	_, ok := s[scope]
	return ok
}

// List returns the scopes in sorted order.
func (s ScopeSet) List() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

// String returns the space-delimited form used on the wire.
func (s ScopeSet) String() string {
	return strings.Join(s.List(), " ")
}

// Gate tracks the scopes granted by the most recent authorization and decides
// whether an operation may proceed. It is safe for concurrent use.
type Gate struct {
	mu      sync.RWMutex
	granted ScopeSet
}

// NewGate creates a gate with no completed authorization.
func NewGate() *Gate {
	return &Gate{}
}

// Grant replaces the granted set wholesale. A nil set records an authorization
// that granted no scopes.
func (g *Gate) Grant(scopes ScopeSet) {
	copied := make(ScopeSet, len(scopes))
	for scope := range scopes {
		copied[scope] = struct{}{}
	}

	g.mu.Lock()
	g.granted = copied
	g.mu.Unlock()
}

// Revoke forgets the granted set, returning the gate to the never-authorized state.
func (g *Gate) Revoke() {
	g.mu.Lock()
	g.granted = nil
	g.mu.Unlock()
}

// Granted returns a copy of the granted scopes and whether any authorization completed.
func (g *Gate) Granted() (ScopeSet, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.granted == nil {
		return nil, false
	}
	return NewScopeSet(g.granted.List()...), true
}

// HasRequiredScopes reports whether every required scope has been granted.
// It is false before any authorization completes, even for an empty requirement.
func (g *Gate) HasRequiredScopes(required []string) bool {
	return g.Require(required) == nil
}

// Require is the error-returning form of HasRequiredScopes.
func (g *Gate) Require(required []string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.granted == nil {
		return &MissingScopesError{NotAuthorized: true}
	}

	needed := NewScopeSet(required...)
	if len(g.granted) < len(needed) {
		return &MissingScopesError{Missing: missingFrom(needed, g.granted)}
	}

	if missing := missingFrom(needed, g.granted); len(missing) > 0 {
		return &MissingScopesError{Missing: missing}
	}
	return nil
}

func missingFrom(required, available ScopeSet) []string {
	missing := make([]string, 0, len(required))
	for _, scope := range required.List() {
		if !available.Contains(scope) {
			missing = append(missing, scope)
		}
	}
	return missing
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}
