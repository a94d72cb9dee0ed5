package authcode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestTerminalPrompter(t *testing.T) {
	var out bytes.Buffer
	p := &TerminalPrompter{
		In:  strings.NewReader("  http://cb?code=abc \n"),
		Out: &out,
	}

	redirect, err := p.PromptRedirect(context.Background(), "https://accounts.example.com/authorize?x=1")
	if err != nil {
		t.Fatalf("PromptRedirect failed: %v", err)
	}
	if redirect != "http://cb?code=abc" {
		t.Errorf("expected trimmed redirect, got %q", redirect)
	}
	if !strings.Contains(out.String(), "https://accounts.example.com/authorize?x=1") {
		t.Errorf("expected consent url in prompt, got %q", out.String())
	}
}

func TestTerminalPrompter_NoTrailingNewline(t *testing.T) {
	p := &TerminalPrompter{In: strings.NewReader("http://cb?code=abc"), Out: io.Discard}

	redirect, err := p.PromptRedirect(context.Background(), "u")
	if err != nil {
		t.Fatalf("PromptRedirect failed: %v", err)
	}
	if redirect != "http://cb?code=abc" {
		t.Errorf("unexpected redirect %q", redirect)
	}
}

func TestTerminalPrompter_EmptyInput(t *testing.T) {
	p := &TerminalPrompter{In: strings.NewReader(""), Out: io.Discard}

	if _, err := p.PromptRedirect(context.Background(), "u"); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestTerminalPrompter_ContextCanceled(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &TerminalPrompter{In: reader, Out: io.Discard}
	if _, err := p.PromptRedirect(ctx, "u"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Printf(format string, _ ...any) {
	l.messages = append(l.messages, format)
}

func TestBrowserPrompter(t *testing.T) {
	var opened string
	logger := &recordingLogger{}

	p := NewBrowserPrompter(PrompterFunc(func(_ context.Context, consentURL string) (string, error) {
		return consentURL + "#redirected", nil
	}))
	p.Logger = logger
	p.open = func(u string) error {
		opened = u
		return errors.New("no display")
	}

	redirect, err := p.PromptRedirect(context.Background(), "https://consent")
	if err != nil {
		t.Fatalf("PromptRedirect failed: %v", err)
	}
	if opened != "https://consent" {
		t.Errorf("expected browser to open consent url, got %q", opened)
	}
	if redirect != "https://consent#redirected" {
		t.Errorf("expected delegated redirect, got %q", redirect)
	}
	if len(logger.messages) != 1 {
		t.Errorf("expected browser failure to be logged, got %v", logger.messages)
	}
}

func TestNewState(t *testing.T) {
	a, b := NewState(), NewState()

	if a == b {
		t.Error("expected distinct states")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected uuid state, got %q: %v", a, err)
	}
}
