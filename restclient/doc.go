// Package restclient is the entry point of go-restauth: a Client built from a
// config.Config that owns the token authority, the scope gate and the dispatcher, and
// exposes a catalogue of Web API requests.
//
// # Quick Start
//
//	cfg, err := config.Load("restauth.yaml", ".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := restclient.New(ctx, cfg, restclient.WithLoggingEnabled())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.Authorize(ctx, authcode.NewState()); err != nil {
//	    log.Fatal(err)
//	}
//
//	albums, err := client.GetSavedAlbums(ctx, "DE", restclient.Page{Limit: 10})
//
// Catalogue methods validate list sizes before building a request, so an oversized id
// list fails with querycodec.ErrLimitExceeded without any network traffic. Requests
// whose scopes were not granted return a gated dispatch.Result.
package restclient
