package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AmmannChristian/go-restauth/querycodec"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const maxResponseBytes = 10 << 20

// TokenProvider supplies bearer tokens. *oauth2client.Authority implements it.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// ScopeChecker decides whether required scopes were granted. *authz.Gate implements it.
type ScopeChecker interface {
	HasRequiredScopes(required []string) bool
}

// Logger is an interface for optional logging in Dispatcher.
type Logger interface {
	Printf(format string, args ...any)
}

// Dispatcher sends scope-gated, bearer-authenticated requests to the API.
// It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	baseURL    string
	tokens     TokenProvider
	gate       ScopeChecker
	httpClient *http.Client
	logger     Logger
}

// Option is a functional option for configuring Dispatcher.
type Option func(*Dispatcher)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(d *Dispatcher) {
		if baseURL != "" {
			d.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithGate sets the scope checker consulted for requests with required scopes.
// Without a gate every such request is gated.
func WithGate(gate ScopeChecker) Option {
	return func(d *Dispatcher) {
		d.gate = gate
	}
}

// WithHTTPClient sets the client used for resource requests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithLogger sets a custom logger for dispatched requests.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithLoggingEnabled enables logging through the standard logrus logger.
func WithLoggingEnabled() Option {
	return func(d *Dispatcher) {
		d.logger = logrus.StandardLogger()
	}
}

// New creates a Dispatcher that authenticates requests with tokens.
func New(tokens TokenProvider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL:    DefaultBaseURL,
		tokens:     tokens,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Endpoint returns base/version/resource[/id][?query] for spec.
func (d *Dispatcher) Endpoint(spec RequestSpec) string {
	var b strings.Builder
	b.WriteString(d.baseURL)
	b.WriteByte('/')
	b.WriteString(spec.version())
	b.WriteByte('/')
	b.WriteString(strings.Trim(spec.Resource, "/"))
	if spec.hasID() {
		b.WriteByte('/')
		b.WriteString(spec.ID)
	}
	if query, ok := querycodec.BuildQuery(spec.Query); ok {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

// Dispatch performs one request.
//
// A request whose RequiredScopes are not covered by the granted scopes returns a
// gated Result without requesting a token or contacting the API. Any non-2xx status
// is returned as a *RequestError, and a GET answered with a body that is not JSON
// fails with ErrDecode. Methods other than GET, PUT, POST and DELETE are rejected
// with a *MethodError before anything else happens.
func (d *Dispatcher) Dispatch(ctx context.Context, spec RequestSpec) (*Result, error) {
	if method := spec.method(); !supportedMethod(method) {
		return nil, &MethodError{Method: spec.Method}
	}

	if len(spec.RequiredScopes) > 0 && (d.gate == nil || !d.gate.HasRequiredScopes(spec.RequiredScopes)) {
		d.logf("dispatch: %s %s gated, missing scopes %v", spec.method(), spec.Resource, spec.RequiredScopes)
		return gatedResult(), nil
	}

	method := spec.method()
	endpoint := d.Endpoint(spec)

	token, err := d.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if spec.Body != nil {
		body = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if spec.Body != nil {
		contentType := spec.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %s %s failed: %w", method, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to read response: %w", err)
	}

	d.logf("dispatch: %s %s -> %d", method, endpoint, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Message:    upstreamMessage(raw),
		}
	}

	result := &Result{StatusCode: resp.StatusCode, Body: raw}
	if len(bytes.TrimSpace(result.Body)) == 0 {
		result.Body = emptyObject
	}
	if method != http.MethodGet {
		result.Acknowledged = true
	} else if !gjson.ValidBytes(result.Body) {
		return nil, fmt.Errorf("%w: %s %s returned non-JSON content (%s)", ErrDecode, method, endpoint, resp.Header.Get("Content-Type"))
	}

	return result, nil
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}
