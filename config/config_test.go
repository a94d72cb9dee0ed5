package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AmmannChristian/go-restauth/oauth2client"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TokenURL != DefaultTokenURL || cfg.AuthURL != DefaultAuthURL || cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("unexpected default endpoints %+v", cfg)
	}
	if cfg.HTTP.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.HTTP.Timeout)
	}
	if flow, _ := cfg.FlowKind(); flow != oauth2client.ClientCredentials {
		t.Errorf("expected client credentials flow, got %s", flow)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
client-id: yaml-client
redirect-uri: http://127.0.0.1:8080/callback
flow: pkce
scopes:
  - user-library-read
  - user-read-email
show-dialog: true
api-base-url: https://api.example.com
http:
  timeout: 15s
  user-agent: restauth-test
logging:
  level: debug
  file: logs/restauth.log
  max-backups: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ClientID != "yaml-client" || cfg.Flow != "pkce" || !cfg.ShowDialog {
		t.Errorf("unexpected credentials section %+v", cfg)
	}
	if len(cfg.Scopes) != 2 || cfg.Scopes[1] != "user-read-email" {
		t.Errorf("unexpected scopes %v", cfg.Scopes)
	}
	if cfg.APIBaseURL != "https://api.example.com" || cfg.TokenURL != DefaultTokenURL {
		t.Errorf("expected overridden base url and default token url, got %q / %q", cfg.APIBaseURL, cfg.TokenURL)
	}
	if cfg.HTTP.Timeout != 15*time.Second || cfg.HTTP.UserAgent != "restauth-test" {
		t.Errorf("unexpected http section %+v", cfg.HTTP)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File != "logs/restauth.log" || cfg.Logging.MaxBackups != 3 {
		t.Errorf("unexpected logging section %+v", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("expected default max size to survive, got %d", cfg.Logging.MaxSizeMB)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := writeFile(t, "bad.yaml", "client-id: [unterminated")
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoad_DotEnvAndEnvironment(t *testing.T) {
	envFile := writeFile(t, ".env", "client_id=dotenv-client\nclient_secret=dotenv-secret\nRESTAUTH_SCOPES=user-read-email,user-read-private\n")

	t.Setenv("RESTAUTH_CLIENT_SECRET", "env-secret")

	cfg, err := Load("", envFile, filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ClientID != "dotenv-client" {
		t.Errorf("expected client id from .env, got %q", cfg.ClientID)
	}
	if cfg.ClientSecret != "env-secret" {
		t.Errorf("expected environment to win over .env, got %q", cfg.ClientSecret)
	}
	if strings.Join(cfg.Scopes, " ") != "user-read-email user-read-private" {
		t.Errorf("unexpected scopes %v", cfg.Scopes)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RESTAUTH_FLOW":         "authorization_code",
		"redirect_uri":          "http://127.0.0.1/cb",
		"RESTAUTH_HTTP_TIMEOUT": "5s",
		"RESTAUTH_LOG_LEVEL":    "warn",
		"token_url":             "   ",
	}

	cfg := Default()
	cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	if cfg.Flow != "authorization_code" || cfg.RedirectURI != "http://127.0.0.1/cb" {
		t.Errorf("unexpected flow settings %+v", cfg)
	}
	if cfg.HTTP.Timeout != 5*time.Second || cfg.Logging.Level != "warn" {
		t.Errorf("unexpected ambient settings %+v %+v", cfg.HTTP, cfg.Logging)
	}
	if cfg.TokenURL != DefaultTokenURL {
		t.Errorf("blank values must not override, got %q", cfg.TokenURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.ClientID = "id"
		cfg.ClientSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "client credentials", mutate: func(*Config) {}},
		{name: "missing client id", mutate: func(c *Config) { c.ClientID = "" }, wantErr: "client id"},
		{name: "unknown flow", mutate: func(c *Config) { c.Flow = "implicit" }, wantErr: "unknown flow"},
		{name: "missing secret", mutate: func(c *Config) { c.ClientSecret = "" }, wantErr: "client secret"},
		{
			name:   "pkce without secret",
			mutate: func(c *Config) { c.Flow = "pkce"; c.ClientSecret = ""; c.RedirectURI = "http://127.0.0.1/cb" },
		},
		{name: "code flow without redirect", mutate: func(c *Config) { c.Flow = "authorization_code" }, wantErr: "redirect uri"},
		{name: "bad token url", mutate: func(c *Config) { c.TokenURL = "ftp://x" }, wantErr: "token url"},
		{name: "missing host", mutate: func(c *Config) { c.APIBaseURL = "https://" }, wantErr: "api base url"},
		{name: "unknown scope", mutate: func(c *Config) { c.Scopes = []string{"user-read-mind"} }, wantErr: "user-read-mind"},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTP.Timeout = -time.Second }, wantErr: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
