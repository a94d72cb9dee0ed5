// Package authcode runs the user-authorization step of the authorization-code and
// PKCE flows.
//
// A Negotiator validates the requested scopes, builds the consent URL, hands it to a
// RedirectPrompter and exchanges the code found in the redirect URL through an
// oauth2client.Authority. On success the granted scopes replace those recorded on the
// authz.Gate.
//
// # Quick Start
//
//	authority := oauth2client.NewAuthority(ctx, oauth2client.Config{
//	    TokenURL:    "https://accounts.spotify.com/api/token",
//	    Credentials: oauth2client.Credentials{ClientID: "client-id"},
//	    Flow:        oauth2client.PKCE,
//	    RedirectURI: "http://127.0.0.1:8080/callback",
//	})
//	gate := authz.NewGate()
//
//	negotiator := authcode.NewNegotiator(authority, gate, authcode.NewBrowserPrompter(nil))
//	granted, err := negotiator.Authorize(ctx, authcode.AuthorizeOptions{
//	    Scopes: []string{authz.ScopeUserLibraryRead},
//	    State:  authcode.NewState(),
//	})
package authcode
