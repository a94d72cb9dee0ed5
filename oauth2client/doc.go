// Package oauth2client owns the OAuth2 access-token lifecycle of a REST API client.
//
// An Authority runs one of three grant flows against the token endpoint: client
// credentials, authorization code, or authorization code with PKCE. It caches the
// bearer token, refreshes it once it goes stale, and exposes the token as a plain
// string, an oauth2.TokenSource, or gRPC client interceptors.
//
// # Features
//
//   - Client-credentials, authorization-code and PKCE flows
//   - Token lifecycle Unset -> Pending -> Valid -> Stale with a terminal Failed state
//   - Refresh-token grant when a refresh token is held, re-request otherwise
//   - S256 code challenge and random verifier generation (GeneratePKCECodes)
//   - Context-aware token requests; oauth2.HTTPClient in the context overrides the client
//   - gRPC unary and stream client interceptors that inject Bearer tokens
//   - Optional logging (WithLogger, WithLoggingEnabled)
//
// # Quick Start
//
//	authority := oauth2client.NewClientCredentialsAuthority(
//	    ctx,
//	    "https://accounts.spotify.com/api/token",
//	    "client-id",
//	    "client-secret",
//	    oauth2client.WithLoggingEnabled(),
//	)
//
//	token, err := authority.AccessToken(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Code-based flows call BeginAuthorization before sending the user to the consent
// page and CompleteAuthorization with the returned code; the authcode package
// drives both steps.
//
// # Notes
//
//   - A rejected token or refresh request moves the Authority to StateFailed; Reset
//     or a new authorization leaves it.
//   - Authority is safe for concurrent use and uses double-checked locking.
package oauth2client
