package oauth2client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const maxTokenResponseBytes = 1 << 20

// Logger is an interface for optional logging in Authority.
// Implementations can log token acquisition and refresh events if desired.
type Logger interface {
	Printf(format string, args ...any)
}

// State is a position in the access-token lifecycle.
type State int

const (
	// StateUnset means no access token is held.
	StateUnset State = iota
	// StatePending means a token request is in flight.
	StatePending
	// StateValid means the held token has not reached its expiry.
	StateValid
	// StateStale means the held token has expired and must be refreshed on next use.
	StateStale
	// StateFailed means the token endpoint rejected the flow. It persists until
	// Reset or a new authorization.
	StateFailed
)

// String returns a lower-case state name.
func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StatePending:
		return "pending"
	case StateValid:
		return "valid"
	case StateStale:
		return "stale"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config describes the client and flow an Authority manages tokens for.
type Config struct {
	// TokenURL is the OAuth2 token endpoint.
	TokenURL string
	// Credentials identify the client. The secret is unused by the PKCE flow.
	Credentials Credentials
	// Flow selects the grant flow.
	Flow FlowKind
	// RedirectURI is sent with code exchanges. Required by code-based flows.
	RedirectURI string
}

// Authority owns the access-token state of one client and runs the flow-specific
// token requests. It is safe for concurrent access.
type Authority struct {
	tokenURL string
	creds    Credentials

	mu           sync.RWMutex
	grant        GrantContext
	token        *oauth2.Token
	refreshToken string
	failure      error
	pending      atomic.Bool

	ctx          context.Context // fallback context for token requests
	httpClient   *http.Client
	expiryLeeway time.Duration
	now          func() time.Time
	logger       Logger // optional logger
}

// Option is a functional option for configuring Authority.
type Option func(*Authority)

// WithLogger sets a custom logger for token events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(a *Authority) {
		a.logger = logger
	}
}

// WithLoggingEnabled enables logging through the standard logrus logger.
func WithLoggingEnabled() Option {
	return func(a *Authority) {
		a.logger = logrus.StandardLogger()
	}
}

// WithHTTPClient sets the client used for token requests.
// An *http.Client stored in the request context under oauth2.HTTPClient takes precedence.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Authority) {
		a.httpClient = client
	}
}

// WithExpiryLeeway treats tokens as stale this long before their actual expiry.
// The default is zero: a token is valid until its expiry instant.
func WithExpiryLeeway(leeway time.Duration) Option {
	return func(a *Authority) {
		if leeway >= 0 {
			a.expiryLeeway = leeway
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAuthority creates an Authority in the unset state.
//
// Parameters:
//   - ctx: Fallback context for token requests; its values (such as oauth2.HTTPClient) are
//     kept but its cancellation is not
//   - cfg: Token endpoint, client credentials, flow and redirect URI
//   - opts: Optional configuration options (WithLogger, WithHTTPClient, ...)
func NewAuthority(ctx context.Context, cfg Config, opts ...Option) *Authority {
	if ctx == nil {
		ctx = context.Background()
	} else {
		ctx = context.WithoutCancel(ctx)
	}

	a := &Authority{
		tokenURL: strings.TrimSpace(cfg.TokenURL),
		creds:    cfg.Credentials,
		grant: GrantContext{
			Kind:        cfg.Flow,
			RedirectURI: cfg.RedirectURI,
		},
		ctx: ctx,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// NewClientCredentialsAuthority is a convenience constructor for the client-credentials flow.
func NewClientCredentialsAuthority(ctx context.Context, tokenURL, clientID, clientSecret string, opts ...Option) *Authority {
	return NewAuthority(ctx, Config{
		TokenURL:    tokenURL,
		Credentials: Credentials{ClientID: clientID, ClientSecret: clientSecret},
		Flow:        ClientCredentials,
	}, opts...)
}

// Flow returns the grant flow selected at construction.
func (a *Authority) Flow() FlowKind {
	return a.grant.Kind
}

// Credentials returns the client credentials.
func (a *Authority) Credentials() Credentials {
	return a.creds
}

// Grant returns a snapshot of the grant context.
func (a *Authority) Grant() GrantContext {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.grant
}

// State reports the current lifecycle state.
func (a *Authority) State() State {
	if a.pending.Load() {
		return StatePending
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stateLocked()
}

func (a *Authority) stateLocked() State {
	switch {
	case a.failure != nil:
		return StateFailed
	case a.token == nil:
		return StateUnset
	case a.tokenValidLocked():
		return StateValid
	default:
		return StateStale
	}
}

// Token returns a copy of the held token, or nil when none is held.
func (a *Authority) Token() *oauth2.Token {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.token == nil {
		return nil
	}
	copied := *a.token
	return &copied
}

// AccessToken returns a valid access token, requesting or refreshing one if necessary.
//
// An unset authority performs the flow's token request. A stale token is refreshed with
// the refresh token when one is held; otherwise it is forgotten and requested again, at
// most once per call. A rejection by the token endpoint is returned as an
// *AuthenticationError and moves the authority to StateFailed.
func (a *Authority) AccessToken(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = a.ctx
	}

	// Fast path: check if we have a valid token without write lock
	a.mu.RLock()
	if a.failure == nil && a.tokenValidLocked() {
		token := a.token.AccessToken
		a.mu.RUnlock()
		return token, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		switch a.stateLocked() {
		case StateValid:
			return a.token.AccessToken, nil
		case StateFailed:
			return "", a.failure
		case StateStale:
			if a.refreshToken != "" {
				return a.refreshLocked(ctx)
			}
			a.logf("oauth2client: access token expired without refresh token, requesting a new one")
			a.token = nil
		case StateUnset:
			if a.refreshToken != "" {
				return a.refreshLocked(ctx)
			}
			body, err := a.grant.tokenRequestBody(a.creds)
			if err != nil {
				return "", err
			}
			return a.requestLocked(ctx, body, false)
		}
	}

	return "", errors.New("oauth2client: no usable access token")
}

func (a *Authority) refreshLocked(ctx context.Context) (string, error) {
	body := a.grant.refreshRequestBody(a.creds, a.refreshToken)
	return a.requestLocked(ctx, body, true)
}

func (a *Authority) requestLocked(ctx context.Context, body url.Values, refresh bool) (string, error) {
	a.pending.Store(true)
	defer a.pending.Store(false)

	token, err := a.postToken(ctx, body, refresh)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			a.token = nil
			a.refreshToken = ""
			a.failure = err
		}
		return "", err
	}

	a.token = token
	if token.RefreshToken != "" {
		a.refreshToken = token.RefreshToken
	}

	if refresh {
		a.logf("oauth2client: refreshed access token (expires: %s)", token.Expiry.Format(time.RFC3339))
	} else {
		a.logf("oauth2client: obtained new access token via %s (expires: %s)", a.grant.Kind, token.Expiry.Format(time.RFC3339))
	}

	return token.AccessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

// postToken sends one form-encoded request to the token endpoint.
func (a *Authority) postToken(ctx context.Context, body url.Values, refresh bool) (*oauth2.Token, error) {
	if a.tokenURL == "" {
		return nil, errors.New("oauth2client: token URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(body.Encode()))
	if err != nil {
		return nil, fmt.Errorf("oauth2client: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if a.grant.tokenRequestAuth() == oauth2.AuthStyleInHeader {
		if a.creds.ClientID == "" || a.creds.ClientSecret == "" {
			return nil, errors.New("oauth2client: client id and client secret are required")
		}
		req.SetBasicAuth(a.creds.ClientID, a.creds.ClientSecret)
	}

	resp, err := a.client(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth2client: token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("oauth2client: failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthenticationError{
			StatusCode:  resp.StatusCode,
			Body:        string(raw),
			ErrorCode:   gjson.GetBytes(raw, "error").String(),
			Description: gjson.GetBytes(raw, "error_description").String(),
			Refresh:     refresh,
		}
	}

	var payload tokenResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("oauth2client: failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, errors.New("oauth2client: token response missing access_token")
	}
	if payload.ExpiresIn <= 0 {
		return nil, errors.New("oauth2client: token response missing expires_in")
	}

	token := &oauth2.Token{
		AccessToken:  payload.AccessToken,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
		Expiry:       a.now().Add(time.Duration(payload.ExpiresIn) * time.Second),
		ExpiresIn:    payload.ExpiresIn,
	}

	return token.WithExtra(map[string]any{"scope": payload.Scope}), nil
}

// client picks the HTTP client for token requests.
func (a *Authority) client(ctx context.Context) *http.Client {
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	if c, ok := a.ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	if a.httpClient != nil {
		return a.httpClient
	}
	return http.DefaultClient
}

// tokenValidLocked reports whether the held token is still usable with a small safety window.
func (a *Authority) tokenValidLocked() bool {
	if a.token == nil || a.token.AccessToken == "" {
		return false
	}
	return a.now().Before(a.token.Expiry.Add(-a.expiryLeeway))
}

// Reset forgets every token and failure, returning the authority to StateUnset.
// Code-based flows also forget the authorization code and must authorize again.
func (a *Authority) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = nil
	a.refreshToken = ""
	a.failure = nil
	a.grant.Code = ""
	a.grant.State = ""
}

// AuthorizationParams carries what the authorization request needs from the grant.
type AuthorizationParams struct {
	ClientID      string
	RedirectURI   string
	CodeChallenge string
}

// BeginAuthorization prepares the grant for a new user authorization. The PKCE flow
// generates a fresh verifier and challenge.
func (a *Authority) BeginAuthorization() (AuthorizationParams, error) {
	if !a.grant.Kind.Interactive() {
		return AuthorizationParams{}, ErrNotInteractive
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	params := AuthorizationParams{
		ClientID:    a.creds.ClientID,
		RedirectURI: a.grant.RedirectURI,
	}

	if a.grant.Kind == PKCE {
		codes, err := GeneratePKCECodes()
		if err != nil {
			return AuthorizationParams{}, err
		}
		a.grant.CodeVerifier = codes.CodeVerifier
		a.grant.CodeChallenge = codes.CodeChallenge
		params.CodeChallenge = codes.CodeChallenge
	}

	return params, nil
}

// CompleteAuthorization stores the authorization code returned by the user's consent,
// discards any previous token state and exchanges the code for tokens.
func (a *Authority) CompleteAuthorization(ctx context.Context, code, state string) (*oauth2.Token, error) {
	if !a.grant.Kind.Interactive() {
		return nil, ErrNotInteractive
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrNotAuthorized
	}

	a.mu.Lock()
	a.grant.Code = code
	a.grant.State = state
	a.token = nil
	a.refreshToken = ""
	a.failure = nil
	a.mu.Unlock()

	if _, err := a.AccessToken(ctx); err != nil {
		return nil, err
	}
	return a.Token(), nil
}

// TokenSource adapts the authority to oauth2.TokenSource so it can back an oauth2.Transport.
func (a *Authority) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &authoritySource{authority: a, ctx: ctx}
}

type authoritySource struct {
	authority *Authority
	ctx       context.Context
}

func (s *authoritySource) Token() (*oauth2.Token, error) {
	if _, err := s.authority.AccessToken(s.ctx); err != nil {
		return nil, err
	}
	token := s.authority.Token()
	if token == nil {
		return nil, errors.New("oauth2client: token unavailable")
	}
	return token, nil
}

func (a *Authority) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}
