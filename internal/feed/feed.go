// Package feed builds, writes, and incrementally merges the published RSS
// documents. The primary documents are rebuilt wholesale each run; the
// summary document is append-only: items already published are never
// rewritten or removed.
package feed

import (
	"fmt"
	"html"
	"strings"
	"time"

	"opinionfeed/internal/extract"
	"opinionfeed/internal/listing"
)

// Item is one entry in a published document. GUID equals the case URL and
// is unique within a document.
type Item struct {
	GUID         string
	Title        string
	Link         string
	PubDate      time.Time
	Description  string
	EnclosureURL string
}

// Document is a published feed: channel metadata plus ordered items.
type Document struct {
	Title       string
	Link        string
	Description string
	Language    string
	LastBuild   time.Time
	Items       []Item
}

// GUIDSet returns the identities already present in the document.
func (d *Document) GUIDSet() map[string]bool {
	set := make(map[string]bool, len(d.Items))
	for _, it := range d.Items {
		set[it.GUID] = true
	}
	return set
}

// OpinionItem builds a primary-document item carrying the sanitized case
// body HTML plus the metadata line, with an explicit error block when
// extraction failed.
func OpinionItem(rec listing.CaseRecord, res extract.Result, now time.Time) Item {
	var parts []string
	parts = append(parts, fmt.Sprintf(`<p><a href="%s">Source</a></p>`, html.EscapeString(rec.URL)))
	if rec.Meta != "" {
		parts = append(parts, "<p>"+html.EscapeString(rec.Meta)+"</p>")
	}
	if res.Failed() {
		parts = append(parts, errorBlock(res))
	}
	if res.Body != "" {
		parts = append(parts, res.Body)
	}

	return Item{
		GUID:        rec.URL,
		Title:       orUntitled(rec.Title),
		Link:        rec.URL,
		PubDate:     listing.PubDate(rec.Decided, now),
		Description: strings.Join(parts, "\n"),
	}
}

// FullTextItem builds a primary-document item carrying extracted PDF full
// text in a <pre> block, with the PDF linked as both anchor and enclosure.
func FullTextItem(rec listing.CaseRecord, pdfURL string, res extract.Result, channelLink string) Item {
	link := rec.URL
	if link == "" {
		link = channelLink
	}

	var parts []string
	parts = append(parts, fmt.Sprintf(`<p><a href="%s">Source</a></p>`, html.EscapeString(link)))
	if pdfURL != "" {
		parts = append(parts, fmt.Sprintf(`<p><a href="%s">PDF</a></p>`, html.EscapeString(pdfURL)))
	}
	if res.Failed() {
		parts = append(parts, errorBlock(res))
	}
	parts = append(parts, "<pre>"+html.EscapeString(res.Body)+"</pre>")

	return Item{
		GUID:         link,
		Title:        orUntitled(rec.Title),
		Link:         link,
		PubDate:      rec.Published,
		Description:  strings.Join(parts, "\n"),
		EnclosureURL: pdfURL,
	}
}

func errorBlock(res extract.Result) string {
	reason := res.Err
	if reason == "" {
		reason = "extraction produced no content"
	}
	return "<p><b>Error:</b> " + html.EscapeString(reason) + "</p>"
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}
