// Package authz decides whether an outgoing request is covered by the scopes a user granted.
//
// A Gate starts in the never-authorized state. Once an authorization-code negotiation
// completes, the granted ScopeSet is recorded with Grant and replaced wholesale on every
// re-authorization. HasRequiredScopes answers with a plain bool so that callers can probe
// coverage without error handling; Require returns a *MissingScopesError instead.
//
// ValidateScopes checks requested scopes against the known scope identifiers before any
// network call is made.
package authz
