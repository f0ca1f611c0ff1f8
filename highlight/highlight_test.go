package highlight_test

import (
	"strings"
	"testing"

	"github.com/mickamy/kvtap/highlight"
)

func TestValueHighlightsJSON(t *testing.T) {
	t.Parallel()

	got := highlight.Value(`{"a":1}`)
	if got == `{"a":1}` {
		t.Fatal("expected ANSI highlighting to change the rendered string")
	}
	if !strings.Contains(got, "a") {
		t.Fatalf("expected highlighted output to still contain the original content, got %q", got)
	}
}

func TestValuePassesThroughPlainText(t *testing.T) {
	t.Parallel()

	if got := highlight.Value("hello world"); got != "hello world" {
		t.Fatalf("got %q, want unchanged plain text", got)
	}
}

func TestValuePassesThroughEmpty(t *testing.T) {
	t.Parallel()

	if got := highlight.Value(""); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
