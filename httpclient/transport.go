package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// TokenProvider supplies bearer tokens. *oauth2client.Authority implements it.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// BearerTransport is an http.RoundTripper that adds "Authorization: Bearer <token>"
// to every request. Requests that already carry an Authorization header pass through.
type BearerTransport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// Tokens provides access tokens.
	Tokens TokenProvider
}

// RoundTrip implements http.RoundTripper. The token fetch honours the request context.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	if t.Tokens == nil {
		return nil, errors.New("httpclient: token provider is nil")
	}

	token, err := t.Tokens.AccessToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("httpclient: failed to get token: %w", err)
	}

	// RoundTrippers must not modify the original request.
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+token)

	return base.RoundTrip(reqClone)
}

// NewBearerTransport creates a BearerTransport. A nil base defaults to http.DefaultTransport.
func NewBearerTransport(tokens TokenProvider, base http.RoundTripper) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &BearerTransport{
		Base:   base,
		Tokens: tokens,
	}
}
