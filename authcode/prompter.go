package authcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/skratchdot/open-golang/open"
)

// RedirectPrompter shows the consent URL to the user and returns the URL the
// authorization server redirected the user to afterwards.
type RedirectPrompter interface {
	PromptRedirect(ctx context.Context, consentURL string) (string, error)
}

// PrompterFunc adapts a function to RedirectPrompter.
type PrompterFunc func(ctx context.Context, consentURL string) (string, error)

// PromptRedirect calls f.
func (f PrompterFunc) PromptRedirect(ctx context.Context, consentURL string) (string, error) {
	return f(ctx, consentURL)
}

// TerminalPrompter prints the consent URL and reads the redirect URL as one line.
// Nil In and Out default to os.Stdin and os.Stdout.
//
// The line is read on a separate goroutine. When ctx is cancelled first,
// PromptRedirect returns immediately but that goroutine stays blocked on In until a
// line arrives or In is closed; a read from os.Stdin lives until the process exits.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// PromptRedirect implements RedirectPrompter.
func (p *TerminalPrompter) PromptRedirect(ctx context.Context, consentURL string) (string, error) {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	if _, err := fmt.Fprintf(out, "Follow this url: %s\nInput the redirected url: ", consentURL); err != nil {
		return "", fmt.Errorf("authcode: failed to write prompt: %w", err)
	}

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		done <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("authcode: failed to read redirect url: %w", r.err)
		}
		return r.line, nil
	}
}

// BrowserPrompter opens the consent URL in the user's browser, then asks Next for
// the redirect URL. Next defaults to a TerminalPrompter on stdin/stdout.
type BrowserPrompter struct {
	Next   RedirectPrompter
	Logger Logger

	open func(string) error
}

// NewBrowserPrompter returns a BrowserPrompter that falls back to the terminal.
func NewBrowserPrompter(next RedirectPrompter) *BrowserPrompter {
	return &BrowserPrompter{Next: next}
}

// PromptRedirect implements RedirectPrompter. A browser that cannot be started is
// logged and otherwise ignored, since Next still shows the URL.
func (p *BrowserPrompter) PromptRedirect(ctx context.Context, consentURL string) (string, error) {
	opener := p.open
	if opener == nil {
		opener = open.Run
	}
	if err := opener(consentURL); err != nil && p.Logger != nil {
		p.Logger.Printf("authcode: failed to open browser: %v", err)
	}

	next := p.Next
	if next == nil {
		next = &TerminalPrompter{}
	}
	return next.PromptRedirect(ctx, consentURL)
}
