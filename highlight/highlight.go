// Package highlight applies ANSI terminal syntax highlighting to the
// string and byte values the inspector TUI renders: JSON when a value
// looks like it, plain text otherwise.
package highlight

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

var (
	jsonLexer chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
)

func init() {
	jsonLexer = lexers.Get("json")
	formatter = formatters.Get("terminal256")
	style = styles.Get("monokai")
}

// Value returns s with ANSI syntax highlighting applied if it looks like
// JSON, and the original string unchanged otherwise (including on any
// lexing or formatting error, so a malformed fragment never disappears).
func Value(s string) string {
	if !looksLikeJSON(s) {
		return s
	}

	iterator, err := jsonLexer.Tokenise(nil, s)
	if err != nil {
		return s
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return s
	}

	return strings.TrimRight(buf.String(), "\n")
}

// looksLikeJSON is a cheap heuristic, not a parse: it only decides
// whether highlighting is worth attempting.
func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	switch s[0] {
	case '{', '[', '"':
		return true
	}
	return false
}
