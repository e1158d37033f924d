package listing

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	decidedRe = regexp.MustCompile(`(?i)decided date:\s*([A-Za-z]+\s+\d{1,2},\s+\d{4})`)
	docketRe  = regexp.MustCompile(`(?i)\bNo\.\s*(\S+)`)
)

// HTMLLister parses the court's "Most Recent Decisions" listing page into
// case records.
type HTMLLister struct {
	client  Getter
	pageURL string
	baseURL string
	heading string
}

// NewHTMLLister wires a lister for the given listing page. Relative case
// links are resolved against baseURL.
func NewHTMLLister(client Getter, pageURL, baseURL string) *HTMLLister {
	return &HTMLLister{
		client:  client,
		pageURL: pageURL,
		baseURL: baseURL,
		heading: "Most Recent Decisions",
	}
}

// List fetches the listing page and returns up to maxItems case records in
// page order. A page without the expected section yields an empty slice.
func (l *HTMLLister) List(ctx context.Context, maxItems int) ([]CaseRecord, error) {
	body, err := l.client.Get(ctx, l.pageURL)
	if err != nil {
		return nil, err
	}
	return l.parse(body, maxItems), nil
}

func (l *HTMLLister) parse(page []byte, maxItems int) []CaseRecord {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var section *goquery.Selection
	doc.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.TrimSpace(h.Text()) != l.heading {
			return true
		}
		dl := h.NextAllFiltered("dl").First()
		if dl.Length() == 0 {
			dl = h.Parent().Find("dl").First()
		}
		if dl.Length() > 0 {
			section = dl
		}
		return false
	})
	if section == nil {
		return nil
	}

	var out []CaseRecord
	section.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		a := dt.Find("a[href]").First()
		if a.Length() == 0 {
			return true
		}
		href, _ := a.Attr("href")

		rec := CaseRecord{
			Title: squeeze(a.Text()),
			URL:   l.resolve(href),
		}

		if dd := dt.NextFiltered("dd"); dd.Length() > 0 {
			rec.Meta = squeeze(dd.Text())
			if m := decidedRe.FindStringSubmatch(rec.Meta); m != nil {
				rec.Decided = m[1]
			}
			if m := docketRe.FindStringSubmatch(rec.Meta); m != nil {
				rec.Docket = m[1]
			}
		}

		out = append(out, rec)
		return maxItems <= 0 || len(out) < maxItems
	})

	return out
}

func (l *HTMLLister) resolve(href string) string {
	base, err := url.Parse(l.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// squeeze collapses internal whitespace runs to single spaces.
func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
