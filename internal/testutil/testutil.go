package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// NewLocalHTTPServer starts an HTTP server bound to IPv4 loopback only.
// Binding tcp4 keeps tests runnable where IPv6 listeners are unavailable.
func NewLocalHTTPServer(tb testing.TB, handler http.Handler) *httptest.Server {
	tb.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create IPv4 listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()
	tb.Cleanup(server.Close)

	return server
}

// RoundTripFunc allows inlining http.RoundTripper implementations.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls the underlying function.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RecordedRequest is a snapshot of a request seen by MockServer. The body is read
// before the handler runs and restored on the request.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

// MockServer simulates the token endpoint and the REST API without real sockets.
// It records requests and serves responses through a custom RoundTripper.
type MockServer struct {
	URL    string
	Ctx    context.Context
	Client *http.Client

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewMockServer builds a mock backend served by an in-memory RoundTripper.
// If handler is nil, every request gets a default successful token response.
//
// The returned Ctx carries the mock client under oauth2.HTTPClient, and
// http.DefaultClient/DefaultTransport are swapped until the test finishes.
func NewMockServer(tb testing.TB, handler RoundTripFunc) *MockServer {
	tb.Helper()

	server := &MockServer{
		URL: "https://mock-api.example.com",
	}

	if handler == nil {
		handler = StaticJSONResponse(TokenJSON("mock-access-token", 3600))
	}

	rt := RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		server.record(req)
		return handler(req)
	})

	prevTransport := http.DefaultTransport
	prevClient := http.DefaultClient
	http.DefaultTransport = rt
	http.DefaultClient = &http.Client{Transport: rt}
	tb.Cleanup(func() {
		http.DefaultTransport = prevTransport
		http.DefaultClient = prevClient
	})

	server.Client = &http.Client{Transport: rt}
	server.Ctx = context.WithValue(context.Background(), oauth2.HTTPClient, server.Client)

	return server
}

func (m *MockServer) record(req *http.Request) {
	rec := RecordedRequest{
		Method:   req.Method,
		Path:     req.URL.Path,
		RawQuery: req.URL.RawQuery,
		Header:   req.Header.Clone(),
	}
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		rec.Body = string(raw)
		req.Body = io.NopCloser(strings.NewReader(rec.Body))
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	m.mu.Unlock()
}

// Requests returns a copy of every recorded request in arrival order.
func (m *MockServer) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Count returns the number of recorded requests for path.
func (m *MockServer) Count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Close is a no-op to mirror httptest.Server usage in tests.
func (m *MockServer) Close() {}

// Routes dispatches requests by URL path. Unknown paths get a 404.
func Routes(routes map[string]RoundTripFunc) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if h, ok := routes[req.URL.Path]; ok {
			return h(req)
		}
		return JSONResponse(http.StatusNotFound, `{"error":{"status":404,"message":"Not found."}}`)(req)
	}
}

// Sequence serves the handlers in order, repeating the last one once exhausted.
func Sequence(handlers ...RoundTripFunc) RoundTripFunc {
	var (
		mu   sync.Mutex
		next int
	)
	return func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		h := handlers[next]
		if next < len(handlers)-1 {
			next++
		}
		mu.Unlock()
		return h(req)
	}
}

// StaticJSONResponse returns a RoundTripper that always responds with the provided JSON body.
func StaticJSONResponse(body string) RoundTripFunc {
	return JSONResponse(http.StatusOK, body)
}

// JSONResponse returns a RoundTripper that always responds with status and body.
func JSONResponse(status int, body string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

// TokenJSON renders a bearer token response without a refresh token.
func TokenJSON(accessToken string, expiresIn int) string {
	return `{"access_token":"` + accessToken + `","token_type":"Bearer","expires_in":` + strconv.Itoa(expiresIn) + `}`
}

// UserTokenJSON renders a token response carrying a refresh token and granted scopes.
func UserTokenJSON(accessToken, refreshToken, scope string, expiresIn int) string {
	return `{"access_token":"` + accessToken + `","token_type":"Bearer","expires_in":` + strconv.Itoa(expiresIn) +
		`,"refresh_token":"` + refreshToken + `","scope":"` + scope + `"}`
}

// WriteTestCACert writes a self-signed CA certificate to the provided path for TLS tests.
func WriteTestCACert(tb testing.TB, path string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate CA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		Subject:               pkix.Name{CommonName: "test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		tb.Fatalf("failed to create CA certificate: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		tb.Fatalf("failed to write CA certificate: %v", err)
	}
}
