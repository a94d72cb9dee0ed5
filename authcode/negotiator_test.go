package authcode

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/AmmannChristian/go-restauth/authz"
	"github.com/AmmannChristian/go-restauth/internal/testutil"
	"github.com/AmmannChristian/go-restauth/oauth2client"
)

const (
	authorizePath = "/authorize"
	tokenPath     = "/api/token"
	redirectURI   = "http://127.0.0.1:8080/callback"
)

type fixture struct {
	server     *testutil.MockServer
	authority  *oauth2client.Authority
	gate       *authz.Gate
	negotiator *Negotiator
	consentURL string
	prompted   int
}

func newFixture(t *testing.T, flow oauth2client.FlowKind, tokenBody, redirect string, authorizeStatus int) *fixture {
	t.Helper()

	f := &fixture{}
	f.server = testutil.NewMockServer(t, testutil.Routes(map[string]testutil.RoundTripFunc{
		authorizePath: testutil.JSONResponse(authorizeStatus, `<html></html>`),
		tokenPath:     testutil.StaticJSONResponse(tokenBody),
	}))

	f.authority = oauth2client.NewAuthority(f.server.Ctx, oauth2client.Config{
		TokenURL:    f.server.URL + tokenPath,
		Credentials: oauth2client.Credentials{ClientID: "client-id", ClientSecret: "client-secret"},
		Flow:        flow,
		RedirectURI: redirectURI,
	})
	f.gate = authz.NewGate()

	prompter := PrompterFunc(func(_ context.Context, consentURL string) (string, error) {
		f.prompted++
		f.consentURL = consentURL
		return redirect, nil
	})

	f.negotiator = NewNegotiator(f.authority, f.gate, prompter, WithAuthURL(f.server.URL+authorizePath))
	return f
}

func TestNegotiator_PKCE(t *testing.T) {
	f := newFixture(t, oauth2client.PKCE,
		testutil.UserTokenJSON("access", "refresh", "user-library-read user-read-email", 3600),
		redirectURI+"?code=abc&state=s1", http.StatusOK)

	granted, err := f.negotiator.Authorize(f.server.Ctx, AuthorizeOptions{
		Scopes: []string{authz.ScopeUserLibraryRead, authz.ScopeUserReadEmail},
		State:  "s1",
	})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	if !granted.Contains(authz.ScopeUserLibraryRead) || !granted.Contains(authz.ScopeUserReadEmail) {
		t.Errorf("unexpected granted scopes %v", granted.List())
	}
	if !f.gate.HasRequiredScopes([]string{authz.ScopeUserReadEmail}) {
		t.Error("expected gate to be updated")
	}

	consent, err := url.Parse(f.consentURL)
	if err != nil {
		t.Fatalf("invalid consent url: %v", err)
	}
	q := consent.Query()
	checks := map[string]string{
		"response_type":         "code",
		"client_id":             "client-id",
		"redirect_uri":          redirectURI,
		"scope":                 "user-library-read user-read-email",
		"state":                 "s1",
		"show_dialog":           "false",
		"code_challenge_method": "S256",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("consent url %s = %q, want %q", k, got, want)
		}
	}
	if challenge := q.Get("code_challenge"); len(challenge) != 43 {
		t.Errorf("expected 43 character challenge, got %q", challenge)
	}

	grant := f.authority.Grant()
	if grant.Code != "abc" || grant.State != "s1" {
		t.Errorf("expected code and state stored, got %+v", grant)
	}
	if oauth2client.CodeChallenge(grant.CodeVerifier) != q.Get("code_challenge") {
		t.Error("challenge in consent url does not match stored verifier")
	}
	if f.authority.State() != oauth2client.StateValid {
		t.Errorf("expected valid token, got %s", f.authority.State())
	}
}

func TestNegotiator_AuthorizationCode_RecordsRequestedScopes(t *testing.T) {
	f := newFixture(t, oauth2client.AuthorizationCode,
		testutil.TokenJSON("access", 3600),
		redirectURI+"?code=abc", http.StatusOK)

	granted, err := f.negotiator.Authorize(f.server.Ctx, AuthorizeOptions{
		Scopes:     []string{authz.ScopeUserReadRecentlyPlayed},
		ShowDialog: true,
	})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	if got := granted.List(); len(got) != 1 || got[0] != authz.ScopeUserReadRecentlyPlayed {
		t.Errorf("expected requested scopes to be recorded, got %v", got)
	}

	q := mustQuery(t, f.consentURL)
	if q.Get("show_dialog") != "true" {
		t.Errorf("expected show_dialog=true, got %q", q.Get("show_dialog"))
	}
	if q.Has("code_challenge") {
		t.Error("authorization code flow must not send a code challenge")
	}
	if q.Has("state") {
		t.Error("expected no state parameter")
	}
}

func TestNegotiator_Failures(t *testing.T) {
	tests := []struct {
		name            string
		scopes          []string
		state           string
		redirect        string
		authorizeStatus int
		wantErr         error
		wantPrompt      bool
	}{
		{
			name:            "unknown scope",
			scopes:          []string{"user-read-mind"},
			authorizeStatus: http.StatusOK,
			wantErr:         authz.ErrInvalidScope,
		},
		{
			name:            "consent page unavailable",
			scopes:          []string{authz.ScopeUserReadEmail},
			authorizeStatus: http.StatusInternalServerError,
			wantErr:         ErrAuthorization,
		},
		{
			name:            "user denied",
			scopes:          []string{authz.ScopeUserReadEmail},
			redirect:        redirectURI + "?error=access_denied",
			authorizeStatus: http.StatusOK,
			wantErr:         ErrAuthorization,
			wantPrompt:      true,
		},
		{
			name:            "missing code",
			scopes:          []string{authz.ScopeUserReadEmail},
			redirect:        redirectURI + "?foo=bar",
			authorizeStatus: http.StatusOK,
			wantErr:         ErrMissingCode,
			wantPrompt:      true,
		},
		{
			name:            "state mismatch",
			scopes:          []string{authz.ScopeUserReadEmail},
			state:           "expected",
			redirect:        redirectURI + "?code=abc&state=forged",
			authorizeStatus: http.StatusOK,
			wantErr:         ErrAuthorization,
			wantPrompt:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, oauth2client.PKCE, testutil.TokenJSON("access", 3600), tt.redirect, tt.authorizeStatus)

			_, err := f.negotiator.Authorize(f.server.Ctx, AuthorizeOptions{Scopes: tt.scopes, State: tt.state})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if (f.prompted > 0) != tt.wantPrompt {
				t.Errorf("prompted = %d, wantPrompt %v", f.prompted, tt.wantPrompt)
			}
			if _, ok := f.gate.Granted(); ok {
				t.Error("gate must stay unauthorized on failure")
			}
			if got := f.server.Count(tokenPath); got != 0 {
				t.Errorf("expected no token request, got %d", got)
			}
		})
	}
}

func TestNegotiator_ClientCredentials(t *testing.T) {
	f := newFixture(t, oauth2client.ClientCredentials, testutil.TokenJSON("access", 3600), "", http.StatusOK)

	_, err := f.negotiator.Authorize(context.Background(), AuthorizeOptions{})
	if !errors.Is(err, oauth2client.ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
}

func TestParseRedirect(t *testing.T) {
	tests := []struct {
		name      string
		redirect  string
		sentState string
		wantCode  string
		wantState string
		wantErr   error
	}{
		{name: "code only", redirect: "http://cb?code=abc", wantCode: "abc"},
		{name: "code and state", redirect: "http://cb?code=abc&state=xyz", sentState: "xyz", wantCode: "abc", wantState: "xyz"},
		{name: "unsolicited state accepted", redirect: "http://cb?code=abc&state=xyz", wantCode: "abc", wantState: "xyz"},
		{name: "error parameter", redirect: "http://cb?error=access_denied&code=abc", wantErr: ErrAuthorization},
		{name: "missing code", redirect: "http://cb", wantErr: ErrMissingCode},
		{name: "state mismatch", redirect: "http://cb?code=abc", sentState: "xyz", wantErr: ErrAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, state, err := ParseRedirect(tt.redirect, tt.sentState)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tt.wantCode || state != tt.wantState {
				t.Errorf("got (%q, %q), want (%q, %q)", code, state, tt.wantCode, tt.wantState)
			}
		})
	}
}

func TestParseRedirect_ErrorDetails(t *testing.T) {
	_, _, err := ParseRedirect("http://cb?error=access_denied&error_description=User+said+no", "")

	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthorizationError, got %T", err)
	}
	if authErr.Code != "access_denied" || authErr.Description != "User said no" {
		t.Errorf("unexpected error fields %+v", authErr)
	}
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url %q: %v", raw, err)
	}
	return u.Query()
}

func TestNegotiator_ConsentPageFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(authorizePath, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login?continue="+url.QueryEscape(r.URL.String()), http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>login</html>"))
	})
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testutil.UserTokenJSON("access", "refresh", "", 3600)))
	})
	server := testutil.NewLocalHTTPServer(t, mux)

	authority := oauth2client.NewAuthority(context.Background(), oauth2client.Config{
		TokenURL:    server.URL + tokenPath,
		Credentials: oauth2client.Credentials{ClientID: "client-id", ClientSecret: "client-secret"},
		Flow:        oauth2client.AuthorizationCode,
		RedirectURI: redirectURI,
	}, oauth2client.WithHTTPClient(server.Client()))

	var consentURL string
	prompter := PrompterFunc(func(_ context.Context, u string) (string, error) {
		consentURL = u
		return redirectURI + "?code=abc", nil
	})

	n := NewNegotiator(authority, authz.NewGate(), prompter,
		WithAuthURL(server.URL+authorizePath), WithHTTPClient(server.Client()))

	if _, err := n.Authorize(context.Background(), AuthorizeOptions{Scopes: []string{authz.ScopeUserLibraryRead}}); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	consent, err := url.Parse(consentURL)
	if err != nil {
		t.Fatalf("invalid consent url: %v", err)
	}
	if consent.Path != "/login" {
		t.Errorf("expected the prompter to receive the final consent page, got %q", consentURL)
	}
	if !strings.Contains(consent.Query().Get("continue"), authorizePath) {
		t.Errorf("expected redirect to carry the authorization request, got %q", consentURL)
	}
}

func TestNegotiator_NilGate(t *testing.T) {
	server := testutil.NewMockServer(t, testutil.Routes(map[string]testutil.RoundTripFunc{
		authorizePath: testutil.StaticJSONResponse(`<html></html>`),
		tokenPath:     testutil.StaticJSONResponse(testutil.UserTokenJSON("access", "refresh", "user-read-email", 3600)),
	}))

	authority := oauth2client.NewAuthority(server.Ctx, oauth2client.Config{
		TokenURL:    server.URL + tokenPath,
		Credentials: oauth2client.Credentials{ClientID: "client-id", ClientSecret: "client-secret"},
		Flow:        oauth2client.AuthorizationCode,
		RedirectURI: redirectURI,
	})
	prompter := PrompterFunc(func(context.Context, string) (string, error) {
		return redirectURI + "?code=abc", nil
	})

	n := NewNegotiator(authority, nil, prompter, WithAuthURL(server.URL+authorizePath))

	granted, err := n.Authorize(server.Ctx, AuthorizeOptions{Scopes: []string{authz.ScopeUserReadEmail}})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !granted.Contains(authz.ScopeUserReadEmail) {
		t.Errorf("unexpected granted scopes %v", granted.List())
	}
	if !n.Gate().HasRequiredScopes([]string{authz.ScopeUserReadEmail}) {
		t.Error("expected the default gate to record the grant")
	}
}
