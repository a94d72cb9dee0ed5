// Package httpclient builds the HTTP clients used against the token endpoint, the
// consent page and the resource API.
//
// The fluent Builder creates an http.Client with TLS 1.2+ defaults, an optional custom
// CA, timeouts, a User-Agent and redirect handling. With a TokenProvider it wraps the
// transport in a BearerTransport, which injects "Authorization: Bearer <token>" into
// every request.
//
// # Quick Start
//
//	authority := oauth2client.NewClientCredentialsAuthority(ctx, tokenURL, clientID, clientSecret)
//
//	client, err := httpclient.NewBuilder().
//	    WithTokenProvider(authority).
//	    WithCAFile("/path/to/ca.crt").
//	    WithTimeout(60 * time.Second).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get("https://api.spotify.com/v1/browse/new-releases")
//
// # Manual Transport Wrapping
//
//	client := &http.Client{Transport: httpclient.NewBearerTransport(authority, nil)}
//
// All components are safe for concurrent use if the provided TokenProvider is.
package httpclient
