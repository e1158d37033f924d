package feed

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// RenderMarkdown converts the summarizer's lightweight markup into the
// HTML used for item descriptions. Unconvertible input falls back to an
// escaped paragraph so a bad summary can never corrupt the document.
func RenderMarkdown(s string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return "<p>" + html.EscapeString(s) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}
