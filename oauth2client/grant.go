package oauth2client

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// FlowKind selects the OAuth2 grant flow an Authority runs.
type FlowKind int

const (
	// ClientCredentials exchanges the client id and secret for an application token.
	ClientCredentials FlowKind = iota
	// AuthorizationCode exchanges a user-approved authorization code, authenticating
	// the client with its secret.
	AuthorizationCode
	// PKCE is the public-client authorization-code variant that proves possession of a
	// code verifier instead of sending a client secret.
	PKCE
)

// String returns the configuration name of the flow.
func (k FlowKind) String() string {
	switch k {
	case ClientCredentials:
		return "client_credentials"
	case AuthorizationCode:
		return "authorization_code"
	case PKCE:
		return "pkce"
	default:
		return fmt.Sprintf("FlowKind(%d)", int(k))
	}
}

// Interactive reports whether the flow needs a user authorization step.
func (k FlowKind) Interactive() bool {
	return k == AuthorizationCode || k == PKCE
}

// ParseFlowKind parses the configuration name of a flow.
func ParseFlowKind(name string) (FlowKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "client_credentials", "client-credentials":
		return ClientCredentials, nil
	case "authorization_code", "authorization-code", "code":
		return AuthorizationCode, nil
	case "pkce":
		return PKCE, nil
	default:
		return 0, fmt.Errorf("oauth2client: unknown flow %q", name)
	}
}

// Credentials identifies the client application. It is never mutated after construction.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// GrantContext holds the flow-specific inputs of token requests.
//
// Kind is fixed at construction. Code and State are filled once the user has authorized
// the client; CodeVerifier and CodeChallenge are only used by the PKCE flow.
type GrantContext struct {
	Kind          FlowKind
	RedirectURI   string
	Code          string
	State         string
	CodeVerifier  string
	CodeChallenge string
}

// tokenRequestBody returns the form body of the initial token request.
func (g GrantContext) tokenRequestBody(creds Credentials) (url.Values, error) {
	switch g.Kind {
	case ClientCredentials:
		return url.Values{"grant_type": {"client_credentials"}}, nil
	case AuthorizationCode:
		if g.Code == "" {
			return nil, ErrNotAuthorized
		}
		return url.Values{
			"grant_type":   {"authorization_code"},
			"code":         {g.Code},
			"redirect_uri": {g.RedirectURI},
		}, nil
	case PKCE:
		if g.Code == "" || g.CodeVerifier == "" {
			return nil, ErrNotAuthorized
		}
		return url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {g.Code},
			"redirect_uri":  {g.RedirectURI},
			"client_id":     {creds.ClientID},
			"code_verifier": {g.CodeVerifier},
		}, nil
	default:
		return nil, fmt.Errorf("oauth2client: unsupported flow %s", g.Kind)
	}
}

// tokenRequestAuth reports how the client authenticates to the token endpoint.
// PKCE clients are public and never send the secret.
func (g GrantContext) tokenRequestAuth() oauth2.AuthStyle {
	if g.Kind == PKCE {
		return oauth2.AuthStyleInParams
	}
	return oauth2.AuthStyleInHeader
}

// refreshRequestBody returns the form body of a refresh-token grant.
func (g GrantContext) refreshRequestBody(creds Credentials, refreshToken string) url.Values {
	body := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	if g.Kind == PKCE {
		body.Set("client_id", creds.ClientID)
	}
	return body
}
