package extract

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// CaseText fetches the case page and extracts plain text for the
// summarizer, bounded at maxChars with a truncation marker.
func (e *Extractor) CaseText(ctx context.Context, caseURL string, maxChars int) Result {
	page, err := e.client.Get(ctx, caseURL)
	if err != nil {
		return Failure(err.Error())
	}

	text := pageText(page, caseURL)
	text = Normalize(text)
	if text == "" {
		return Failure("could not extract case text from page")
	}
	if !e.sufficient(text) {
		return Failure("extracted text too small (likely non-text page)")
	}
	return Result{Body: Truncate(text, maxChars)}
}

// pageText prefers readability's article extraction and falls back to the
// raw content block when readability finds nothing.
func pageText(page []byte, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(page), u)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text
		}
	}

	if main := contentBlock(page); main != nil {
		for _, sel := range chromeSelectors {
			main.Find(sel).Remove()
		}
		return main.Text()
	}
	return ""
}
