// Command restauth authorizes against the accounts service and fetches one Web API
// resource, printing the JSON body to stdout.
//
// Usage:
//
//	restauth -config restauth.yaml -resource albums -id 4aawyAB9vmqN3uQ7FjRGTy
//	restauth -authorize -resource me/albums
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AmmannChristian/go-restauth/authcode"
	"github.com/AmmannChristian/go-restauth/authz"
	"github.com/AmmannChristian/go-restauth/config"
	"github.com/AmmannChristian/go-restauth/dispatch"
	"github.com/AmmannChristian/go-restauth/internal/logging"
	"github.com/AmmannChristian/go-restauth/restclient"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath string
		envFile    string
		authorize  bool
		noBrowser  bool
		resource   string
		id         string
		scopes     string
	)

	flag.StringVar(&configPath, "config", "", "YAML config file path")
	flag.StringVar(&envFile, "env", ".env", "dotenv file with credential overrides")
	flag.BoolVar(&authorize, "authorize", false, "run the user authorization before the request")
	flag.BoolVar(&noBrowser, "no-browser", false, "print the consent url instead of opening a browser")
	flag.StringVar(&resource, "resource", "", "resource path below the API version, e.g. albums or me/albums")
	flag.StringVar(&id, "id", "", "resource id")
	flag.StringVar(&scopes, "scopes", "", "space-separated scopes required by the resource")
	flag.Parse()

	if err := run(configPath, envFile, authorize, noBrowser, resource, id, scopes); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, authorize, noBrowser bool, resource, id, scopes string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	if err := logging.Setup(nil, logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		return err
	}
	defer func() {
		_ = logging.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompter := newPrompter(noBrowser, os.Stdin, os.Stderr, log.StandardLogger())

	client, err := restclient.New(ctx, cfg, restclient.WithLoggingEnabled(), restclient.WithPrompter(prompter))
	if err != nil {
		return err
	}

	flow, _ := cfg.FlowKind()
	if authorize || flow.Interactive() {
		granted, err := client.Authorize(ctx, authcode.NewState())
		if err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}
		log.Infof("granted scopes: %s", granted)
	}

	if resource == "" {
		return nil
	}

	required := authz.ParseScopeSet(scopes).List()
	result, err := client.Dispatch(ctx, dispatch.RequestSpec{
		Resource:       strings.Trim(resource, "/"),
		ID:             id,
		RequiredScopes: required,
	})
	if err != nil {
		return err
	}
	if result.Gated {
		return fmt.Errorf("scopes %v were not granted", required)
	}

	_, err = fmt.Fprintln(os.Stdout, string(result.Body))
	return err
}

// newPrompter reads the redirect from the terminal, opening the browser first unless
// noBrowser is set. Browser failures are reported to logger.
func newPrompter(noBrowser bool, in io.Reader, out io.Writer, logger authcode.Logger) authcode.RedirectPrompter {
	terminal := &authcode.TerminalPrompter{In: in, Out: out}
	if noBrowser {
		return terminal
	}

	browser := authcode.NewBrowserPrompter(terminal)
	browser.Logger = logger
	return browser
}
