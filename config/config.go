package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/AmmannChristian/go-restauth/authz"
	"github.com/AmmannChristian/go-restauth/oauth2client"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default endpoints of the Spotify accounts service and Web API.
const (
	DefaultTokenURL   = "https://accounts.spotify.com/api/token"
	DefaultAuthURL    = "https://accounts.spotify.com/authorize"
	DefaultAPIBaseURL = "https://api.spotify.com"
	DefaultTimeout    = 30 * time.Second
)

// Config holds client credentials, endpoints and ambient settings.
type Config struct {
	ClientID     string   `yaml:"client-id"`
	ClientSecret string   `yaml:"client-secret"`
	RedirectURI  string   `yaml:"redirect-uri"`
	Flow         string   `yaml:"flow"`
	Scopes       []string `yaml:"scopes"`
	ShowDialog   bool     `yaml:"show-dialog"`

	TokenURL   string `yaml:"token-url"`
	AuthURL    string `yaml:"auth-url"`
	APIBaseURL string `yaml:"api-base-url"`

	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig configures the HTTP clients.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	CAFile    string        `yaml:"ca-file"`
	UserAgent string        `yaml:"user-agent"`
}

// LoggingConfig configures logrus and optional file rotation.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables rotated file output when set.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with the default endpoints and client-credentials flow.
func Default() *Config {
	return &Config{
		Flow:       oauth2client.ClientCredentials.String(),
		TokenURL:   DefaultTokenURL,
		AuthURL:    DefaultAuthURL,
		APIBaseURL: DefaultAPIBaseURL,
		HTTP: HTTPConfig{
			Timeout: DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when empty),
// the given .env files and the process environment, in increasing precedence.
// Missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	dotenv := make(map[string]string)
	for _, file := range envFiles {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: failed to read %s: %w", file, err)
		}
		for k, v := range values {
			if _, exists := dotenv[k]; !exists {
				dotenv[k] = v
			}
		}
	}

	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	return cfg, nil
}

// ApplyEnv overrides fields from lookup. Each field accepts a RESTAUTH_ prefixed key
// and, for credentials and endpoints, the bare lower-case key used by .env files.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}

	if v, ok := get("RESTAUTH_CLIENT_ID", "client_id"); ok {
		c.ClientID = v
	}
	if v, ok := get("RESTAUTH_CLIENT_SECRET", "client_secret"); ok {
		c.ClientSecret = v
	}
	if v, ok := get("RESTAUTH_REDIRECT_URI", "redirect_uri"); ok {
		c.RedirectURI = v
	}
	if v, ok := get("RESTAUTH_TOKEN_URL", "token_url"); ok {
		c.TokenURL = v
	}
	if v, ok := get("RESTAUTH_AUTH_URL", "auth_url"); ok {
		c.AuthURL = v
	}
	if v, ok := get("RESTAUTH_API_BASE_URL", "api_base_url"); ok {
		c.APIBaseURL = v
	}
	if v, ok := get("RESTAUTH_FLOW", "flow"); ok {
		c.Flow = v
	}
	if v, ok := get("RESTAUTH_SCOPES", "scopes"); ok {
		c.Scopes = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	}
	if v, ok := get("RESTAUTH_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := get("RESTAUTH_LOG_FILE"); ok {
		c.Logging.File = v
	}
	if v, ok := get("RESTAUTH_HTTP_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.Timeout = d
		}
	}
}

// FlowKind parses the configured flow.
func (c *Config) FlowKind() (oauth2client.FlowKind, error) {
	return oauth2client.ParseFlowKind(c.Flow)
}

// Validate checks the flow-specific requirements.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("config: client id is required")
	}

	flow, err := c.FlowKind()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if flow != oauth2client.PKCE && c.ClientSecret == "" {
		return fmt.Errorf("config: client secret is required for the %s flow", flow)
	}
	if flow.Interactive() && c.RedirectURI == "" {
		return fmt.Errorf("config: redirect uri is required for the %s flow", flow)
	}

	for name, raw := range map[string]string{
		"token url":    c.TokenURL,
		"auth url":     c.AuthURL,
		"api base url": c.APIBaseURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("config: invalid %s: %w", name, err)
		}
	}

	if err := authz.ValidateScopes(c.Scopes); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.HTTP.Timeout < 0 {
		return errors.New("config: http timeout must not be negative")
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
