package listing

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// AtomLister parses a syndication feed of recent opinions into case
// records, picking up PDF enclosures when the feed advertises them.
type AtomLister struct {
	client  Getter
	feedURL string
}

// NewAtomLister wires a lister for the given Atom/RSS feed URL.
func NewAtomLister(client Getter, feedURL string) *AtomLister {
	return &AtomLister{client: client, feedURL: feedURL}
}

// List fetches and parses the feed, returning up to maxItems case records
// in feed order. An unparseable feed yields an empty slice.
func (l *AtomLister) List(ctx context.Context, maxItems int) ([]CaseRecord, error) {
	body, err := l.client.Get(ctx, l.feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, nil
	}

	var out []CaseRecord
	for _, item := range feed.Items {
		if maxItems > 0 && len(out) >= maxItems {
			break
		}

		rec := CaseRecord{
			Title: strings.TrimSpace(item.Title),
			URL:   item.Link,
		}
		if rec.Title == "" {
			rec.Title = "Untitled"
		}
		for _, enc := range item.Enclosures {
			if enc.Type == "application/pdf" && enc.URL != "" {
				rec.PDFURL = enc.URL
				break
			}
		}
		rec.Published = publishedAt(item, time.Now())

		out = append(out, rec)
	}
	return out, nil
}

func publishedAt(item *gofeed.Item, now time.Time) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return now.UTC()
}
