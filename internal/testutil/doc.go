// Package testutil provides test helpers for go-restauth packages.
//
// It includes utilities to spin up IPv4-only local HTTP servers (avoiding IPv6 in sandboxes),
// mock the token endpoint and the REST API without real sockets, and generate a self-signed
// CA certificate for TLS tests.
//
// # Utilities
//
//   - NewLocalHTTPServer: start httptest server bound to 127.0.0.1
//   - MockServer: capture requests, including their bodies, and serve canned responses
//   - Routes / Sequence / JSONResponse: compose per-path and per-call responses
//   - TokenJSON / UserTokenJSON: render token endpoint payloads
//   - WriteTestCACert: generate a temporary CA certificate
//
// These helpers are designed for tests and may mutate http.DefaultClient/Transport; they restore previous values via tb.Cleanup.
package testutil
