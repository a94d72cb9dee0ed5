package restclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/AmmannChristian/go-restauth/authcode"
	"github.com/AmmannChristian/go-restauth/authz"
	"github.com/AmmannChristian/go-restauth/config"
	"github.com/AmmannChristian/go-restauth/dispatch"
	"github.com/AmmannChristian/go-restauth/httpclient"
	"github.com/AmmannChristian/go-restauth/oauth2client"
	"github.com/sirupsen/logrus"
)

// ErrInvalidArgument indicates a request parameter the API would reject.
var ErrInvalidArgument = errors.New("restclient: invalid argument")

// Logger is an interface for optional logging, shared by every component of a Client.
type Logger interface {
	Printf(format string, args ...any)
}

// Client composes the token authority, scope gate, negotiator and dispatcher for one
// set of client credentials and exposes the request catalogue.
type Client struct {
	cfg        *config.Config
	authority  *oauth2client.Authority
	gate       *authz.Gate
	negotiator *authcode.Negotiator
	dispatcher *dispatch.Dispatcher
	httpClient *http.Client
}

type clientOptions struct {
	httpClient *http.Client
	prompter   authcode.RedirectPrompter
	logger     Logger
}

// Option is a functional option for configuring Client.
type Option func(*clientOptions)

// WithHTTPClient replaces the client built from the HTTP configuration.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithPrompter sets the prompter used by Authorize. The default is a TerminalPrompter.
func WithPrompter(prompter authcode.RedirectPrompter) Option {
	return func(o *clientOptions) {
		o.prompter = prompter
	}
}

// WithLogger sets a logger for token, authorization and request events.
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithLoggingEnabled logs through the standard logrus logger.
func WithLoggingEnabled() Option {
	return func(o *clientOptions) {
		o.logger = logrus.StandardLogger()
	}
}

// New validates cfg and assembles a Client. The context supplies values for token
// requests (such as oauth2.HTTPClient); its cancellation is ignored.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("restclient: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	flow, err := cfg.FlowKind()
	if err != nil {
		return nil, err
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	hc := o.httpClient
	if hc == nil {
		b := httpclient.NewBuilder().
			WithTimeout(cfg.HTTP.Timeout).
			WithUserAgent(cfg.HTTP.UserAgent)
		if cfg.HTTP.CAFile != "" {
			b = b.WithCAFile(cfg.HTTP.CAFile)
		}
		hc, err = b.Build()
		if err != nil {
			return nil, fmt.Errorf("restclient: %w", err)
		}
	}

	authorityOpts := []oauth2client.Option{oauth2client.WithHTTPClient(hc)}
	dispatchOpts := []dispatch.Option{
		dispatch.WithBaseURL(cfg.APIBaseURL),
		dispatch.WithHTTPClient(hc),
	}
	negotiatorOpts := []authcode.Option{
		authcode.WithAuthURL(cfg.AuthURL),
		authcode.WithHTTPClient(hc),
	}
	if o.logger != nil {
		authorityOpts = append(authorityOpts, oauth2client.WithLogger(o.logger))
		dispatchOpts = append(dispatchOpts, dispatch.WithLogger(o.logger))
		negotiatorOpts = append(negotiatorOpts, authcode.WithLogger(o.logger))
	}

	authority := oauth2client.NewAuthority(ctx, oauth2client.Config{
		TokenURL: cfg.TokenURL,
		Credentials: oauth2client.Credentials{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		},
		Flow:        flow,
		RedirectURI: cfg.RedirectURI,
	}, authorityOpts...)

	gate := authz.NewGate()
	dispatchOpts = append(dispatchOpts, dispatch.WithGate(gate))

	c := &Client{
		cfg:        cfg,
		authority:  authority,
		gate:       gate,
		dispatcher: dispatch.New(authority, dispatchOpts...),
		httpClient: hc,
	}

	if flow.Interactive() {
		c.negotiator = authcode.NewNegotiator(authority, gate, o.prompter, negotiatorOpts...)
	}

	return c, nil
}

// Authority returns the token authority.
func (c *Client) Authority() *oauth2client.Authority {
	return c.authority
}

// Gate returns the scope gate.
func (c *Client) Gate() *authz.Gate {
	return c.gate
}

// Authorize runs the user authorization with the configured scopes and dialog setting.
// It fails with oauth2client.ErrNotInteractive for the client-credentials flow.
func (c *Client) Authorize(ctx context.Context, state string) (authz.ScopeSet, error) {
	return c.AuthorizeWith(ctx, authcode.AuthorizeOptions{
		Scopes:     c.cfg.Scopes,
		State:      state,
		ShowDialog: c.cfg.ShowDialog,
	})
}

// AuthorizeWith runs the user authorization with explicit options.
func (c *Client) AuthorizeWith(ctx context.Context, opts authcode.AuthorizeOptions) (authz.ScopeSet, error) {
	if c.negotiator == nil {
		return nil, oauth2client.ErrNotInteractive
	}
	return c.negotiator.Authorize(ctx, opts)
}

// Dispatch sends an arbitrary request through the scope gate and dispatcher.
func (c *Client) Dispatch(ctx context.Context, spec dispatch.RequestSpec) (*dispatch.Result, error) {
	return c.dispatcher.Dispatch(ctx, spec)
}

// HTTPClient returns an http.Client that authenticates every request with the
// authority's bearer token, for endpoints outside the catalogue.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{
		Transport:     httpclient.NewBearerTransport(c.authority, c.httpClient.Transport),
		Timeout:       c.httpClient.Timeout,
		CheckRedirect: c.httpClient.CheckRedirect,
	}
}
