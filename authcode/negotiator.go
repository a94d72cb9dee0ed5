package authcode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/AmmannChristian/go-restauth/authz"
	"github.com/AmmannChristian/go-restauth/oauth2client"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// DefaultAuthURL is the Spotify accounts authorization endpoint.
const DefaultAuthURL = "https://accounts.spotify.com/authorize"

// Logger is an interface for optional logging in Negotiator.
type Logger interface {
	Printf(format string, args ...any)
}

// AuthorizeOptions describe one authorization request.
type AuthorizeOptions struct {
	// Scopes to request. They are validated against the known scopes first.
	Scopes []string
	// State is echoed by the authorization server. Empty means no state is sent.
	State string
	// ShowDialog forces the consent page even if the user already approved the client.
	ShowDialog bool
}

// Negotiator drives the interactive half of the authorization-code flows: it sends
// the user to the consent page, collects the redirect, hands the code to the
// Authority and records the granted scopes on the Gate.
type Negotiator struct {
	authority  *oauth2client.Authority
	gate       *authz.Gate
	prompter   RedirectPrompter
	authURL    string
	httpClient *http.Client
	logger     Logger
}

// Option is a functional option for configuring Negotiator.
type Option func(*Negotiator)

// WithAuthURL overrides the authorization endpoint.
func WithAuthURL(authURL string) Option {
	return func(n *Negotiator) {
		if authURL != "" {
			n.authURL = authURL
		}
	}
}

// WithHTTPClient sets the client used to load the consent page.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Negotiator) {
		n.httpClient = client
	}
}

// WithLogger sets a custom logger for authorization events.
func WithLogger(logger Logger) Option {
	return func(n *Negotiator) {
		n.logger = logger
	}
}

// WithLoggingEnabled enables logging through the standard logrus logger.
func WithLoggingEnabled() Option {
	return func(n *Negotiator) {
		n.logger = logrus.StandardLogger()
	}
}

// NewNegotiator creates a Negotiator for an authorization-code or PKCE authority.
// A nil prompter defaults to a TerminalPrompter on stdin/stdout and a nil gate to a
// fresh authz.Gate, available through Gate.
func NewNegotiator(authority *oauth2client.Authority, gate *authz.Gate, prompter RedirectPrompter, opts ...Option) *Negotiator {
	if prompter == nil {
		prompter = &TerminalPrompter{}
	}
	if gate == nil {
		gate = authz.NewGate()
	}

	n := &Negotiator{
		authority: authority,
		gate:      gate,
		prompter:  prompter,
		authURL:   DefaultAuthURL,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Gate returns the gate that receives the granted scopes.
func (n *Negotiator) Gate() *authz.Gate {
	return n.gate
}

// AuthorizationURL returns the consent page URL for opts. The challenge is only
// added when non-empty.
func (n *Negotiator) AuthorizationURL(params oauth2client.AuthorizationParams, opts AuthorizeOptions) string {
	cfg := &oauth2.Config{
		ClientID:    params.ClientID,
		RedirectURL: params.RedirectURI,
		Scopes:      opts.Scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: n.authURL},
	}

	urlOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("show_dialog", strconv.FormatBool(opts.ShowDialog)),
	}
	if params.CodeChallenge != "" {
		urlOpts = append(urlOpts,
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
			oauth2.SetAuthURLParam("code_challenge", params.CodeChallenge),
		)
	}

	return cfg.AuthCodeURL(opts.State, urlOpts...)
}

// Authorize runs one user authorization and returns the granted scopes.
//
// Steps:
//  1. Validate the requested scopes
//  2. Load the consent page; a non-2xx status is an *AuthorizationError
//  3. Ask the prompter for the redirect URL and extract the code
//  4. Exchange the code through the Authority
//  5. Replace the Gate's scopes with the granted ones
//
// The Gate is left untouched when any step fails.
func (n *Negotiator) Authorize(ctx context.Context, opts AuthorizeOptions) (authz.ScopeSet, error) {
	if !n.authority.Flow().Interactive() {
		return nil, oauth2client.ErrNotInteractive
	}
	if err := authz.ValidateScopes(opts.Scopes); err != nil {
		return nil, err
	}

	params, err := n.authority.BeginAuthorization()
	if err != nil {
		return nil, err
	}

	consentURL, err := n.loadConsentPage(ctx, n.AuthorizationURL(params, opts))
	if err != nil {
		return nil, err
	}

	redirect, err := n.prompter.PromptRedirect(ctx, consentURL)
	if err != nil {
		return nil, fmt.Errorf("authcode: prompt failed: %w", err)
	}

	code, state, err := ParseRedirect(redirect, opts.State)
	if err != nil {
		return nil, err
	}

	token, err := n.authority.CompleteAuthorization(ctx, code, state)
	if err != nil {
		return nil, err
	}

	granted := authz.NewScopeSet(opts.Scopes...)
	if scope, _ := token.Extra("scope").(string); strings.TrimSpace(scope) != "" {
		granted = authz.ParseScopeSet(scope)
	}
	n.gate.Grant(granted)

	n.logf("authcode: authorization complete, granted scopes: %s", granted)

	return granted, nil
}

// loadConsentPage requests the authorization URL and returns the final URL after redirects.
func (n *Negotiator) loadConsentPage(ctx context.Context, authURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", fmt.Errorf("authcode: failed to create authorization request: %w", err)
	}

	resp, err := n.client(ctx).Do(req)
	if err != nil {
		return "", fmt.Errorf("authcode: authorization request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthorizationError{StatusCode: resp.StatusCode}
	}

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String(), nil
	}
	return authURL, nil
}

func (n *Negotiator) client(ctx context.Context) *http.Client {
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	if n.httpClient != nil {
		return n.httpClient
	}
	return http.DefaultClient
}

func (n *Negotiator) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}

// ParseRedirect extracts the authorization code and state from the URL the user was
// redirected to. When sentState is non-empty the echoed state must match it.
func ParseRedirect(redirect, sentState string) (code, state string, err error) {
	u, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil {
		return "", "", fmt.Errorf("authcode: invalid redirect url: %w", err)
	}

	query := u.Query()
	if e := query.Get("error"); e != "" {
		return "", "", &AuthorizationError{Code: e, Description: query.Get("error_description")}
	}

	code = query.Get("code")
	if code == "" {
		return "", "", ErrMissingCode
	}

	state = query.Get("state")
	if sentState != "" && state != sentState {
		return "", "", &AuthorizationError{Code: "state_mismatch", Description: "returned state does not match the request"}
	}

	return code, state, nil
}
