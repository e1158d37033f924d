// Package listing fetches the upstream sources of recently published
// opinions and parses them into case records. Parsers are tolerant:
// restructured or missing markup yields an empty result, never an error.
package listing

import (
	"context"
	"time"

	"github.com/araddon/dateparse"
)

// Getter fetches a URL. Satisfied by fetch.Client.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// CaseRecord is one upstream opinion. URL is the stable identity key used
// across the cache and published documents.
type CaseRecord struct {
	Title     string
	URL       string
	Decided   string // free-text decided date, e.g. "June 27, 2025"
	Docket    string
	Meta      string // raw metadata line from the listing
	PDFURL    string // binary enclosure, when the source advertises one
	Published time.Time
}

// PubDate converts a free-text decided date into the item publication time.
// Known dates are normalized to noon UTC so readers in US time zones do not
// display the previous day. Unknown or unparseable dates fall back to now.
func PubDate(decided string, now time.Time) time.Time {
	if decided == "" {
		return now.UTC()
	}
	d, err := dateparse.ParseAny(decided)
	if err != nil {
		return now.UTC()
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)
}
