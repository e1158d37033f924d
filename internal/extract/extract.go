// Package extract turns a case's canonical URL into usable content. Two
// strategies exist: sanitized body HTML from the case page, and full text
// pulled from a PDF enclosure. Extraction failure is data, not a crash:
// every path reports into a Result consumed by the feed builders.
package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"opinionfeed/internal/sanitize"
)

// Getter fetches a URL. Satisfied by fetch.Client.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Result is the outcome of one extraction. Exactly one of Body or Err is
// expected to be non-empty; both empty is a degenerate fetch and counts as
// failure.
type Result struct {
	Body string
	Err  string
}

// Failed reports whether the result is unusable downstream.
func (r Result) Failed() bool {
	return r.Err != "" || strings.TrimSpace(r.Body) == ""
}

// Failure builds a failed Result with a diagnostic reason.
func Failure(reason string) Result {
	return Result{Err: reason}
}

// TruncationMarker is appended when extracted text is cut at the cap.
const TruncationMarker = "\n\n[TRUNCATED]\n"

// Extractor runs the extraction strategies against live pages.
type Extractor struct {
	client   Getter
	minChars int
}

// New creates an Extractor. minChars is the content-sufficiency threshold:
// shorter extractions are treated as failures even when bytes came back.
func New(client Getter, minChars int) *Extractor {
	if minChars <= 0 {
		minChars = 200
	}
	return &Extractor{client: client, minChars: minChars}
}

var (
	crlfRe       = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe   = regexp.MustCompile(`\n{4,}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize cleans extracted text for embedding: null bytes and carriage
// returns dropped, trailing spaces stripped, runs of blank lines collapsed,
// and XML-invalid characters removed.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = crlfRe.ReplaceAllString(s, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n\n")
	return strings.TrimSpace(sanitize.XML(s))
}

// Truncate caps s at max bytes, appending TruncationMarker when cut. The
// cut never splits a UTF-8 sequence.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + TruncationMarker
}

// sufficient applies the minimum-length heuristic after collapsing
// whitespace. Distinguishes "something came back" from "something usable".
func (e *Extractor) sufficient(s string) bool {
	return len(whitespaceRe.ReplaceAllString(s, " ")) >= e.minChars
}
