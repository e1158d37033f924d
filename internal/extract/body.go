package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// bodyPolicy keeps formatting-friendly tags and drops everything else.
// Only anchors keep an attribute (href); script/style/event handlers are
// removed by the allow-list.
var bodyPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "hr", "blockquote", "pre", "code",
		"em", "strong", "b", "i", "u",
		"h1", "h2", "h3", "h4",
		"ol", "ul", "li",
		"table", "thead", "tbody", "tr", "th", "td",
		"sup", "sub",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	return p
}()

// chromeSelectors are page furniture stripped before extraction.
var chromeSelectors = []string{"nav", "header", "footer", "aside", "script", "style"}

// BodyHTML fetches the case page and extracts its content block as
// sanitized HTML suitable for a feed item description.
func (e *Extractor) BodyHTML(ctx context.Context, caseURL string) Result {
	page, err := e.client.Get(ctx, caseURL)
	if err != nil {
		return Failure(err.Error())
	}
	return extractBody(page)
}

func extractBody(page []byte) Result {
	main := contentBlock(page)
	if main == nil {
		return Failure("could not locate content block on page")
	}

	for _, sel := range chromeSelectors {
		main.Find(sel).Remove()
	}

	raw, err := main.Html()
	if err != nil {
		return Failure("could not serialize content block")
	}

	body := strings.TrimSpace(bodyPolicy.Sanitize(raw))
	if body == "" {
		return Failure("could not extract body HTML")
	}
	return Result{Body: body}
}

// contentBlock picks the widest content wrapper the page offers.
func contentBlock(page []byte) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil
	}
	for _, sel := range []string{"#content1", "main#main", "main", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return nil
}
