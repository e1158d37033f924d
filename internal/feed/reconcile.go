package feed

import (
	"context"
	"log"
	"time"

	"opinionfeed/internal/cache"
	"opinionfeed/internal/extract"
	"opinionfeed/internal/listing"
	"opinionfeed/internal/summarize"
)

// TextExtractor produces the plain-text opinion body fed to the model.
type TextExtractor interface {
	CaseText(ctx context.Context, caseURL string, maxChars int) extract.Result
}

// Summarizer produces a structured summary for extracted text.
type Summarizer interface {
	Summarize(ctx context.Context, extracted string) (string, error)
}

// Reconciler maintains the append-only summary document. Items already
// published keep their content forever; only identities missing from the
// document are processed, and the cache guards the expensive calls for
// those.
type Reconciler struct {
	Channel   Document // channel skeleton for a fresh document
	Cache     *cache.Store
	Extractor TextExtractor
	Summarize Summarizer
	MaxChars  int // truncation cap for extracted text
	Now       func() time.Time
}

// Reconcile merges the current case records into the summary document at
// path and reports how many items were added. When every record is
// already published the call is a no-op: the file is not rewritten and
// lastBuildDate is untouched.
func (r *Reconciler) Reconcile(ctx context.Context, cases []listing.CaseRecord, path string) (int, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	doc, ok := ReadFile(path)
	if !ok {
		skeleton := r.Channel
		skeleton.Items = nil
		doc = &skeleton
	}

	existing := doc.GUIDSet()
	var missing []listing.CaseRecord
	for _, rec := range cases {
		if rec.URL == "" || existing[rec.URL] {
			continue
		}
		existing[rec.URL] = true // guard against duplicates within one run
		missing = append(missing, rec)
	}
	if len(missing) == 0 {
		log.Printf("Summary document up to date (%d items)", len(doc.Items))
		return 0, nil
	}

	entries := r.Cache.Load()
	for _, rec := range missing {
		summary := r.summaryFor(ctx, rec, entries, now)
		doc.Items = append(doc.Items, Item{
			GUID:        rec.URL,
			Title:       orUntitled(rec.Title),
			Link:        rec.URL,
			PubDate:     listing.PubDate(rec.Decided, now()),
			Description: RenderMarkdown(summary),
		})
	}

	doc.LastBuild = now().UTC()

	// Cache first: a failed document write must not lose paid summaries.
	if err := r.Cache.Save(entries); err != nil {
		log.Printf("Warning: saving summary cache: %v", err)
	}
	if err := WriteFile(path, doc); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// summaryFor returns the summary body for one record: the cached one when
// the decided-date fingerprint still matches, otherwise a fresh
// extraction + summarization. Failures come back as the placeholder body
// and are not cached, so a later run retries the item.
func (r *Reconciler) summaryFor(ctx context.Context, rec listing.CaseRecord, entries map[string]cache.Entry, now func() time.Time) string {
	if cached, ok := entries[rec.URL]; ok && cached.Valid(rec.Decided) {
		return cached.Summary
	}

	res := r.Extractor.CaseText(ctx, rec.URL, r.MaxChars)
	if res.Failed() {
		reason := res.Err
		if reason == "" {
			reason = "could not extract case text from page"
		}
		log.Printf("Extraction failed for %s: %s", rec.URL, reason)
		return summarize.Placeholder(reason)
	}

	summary, err := r.Summarize.Summarize(ctx, res.Body)
	if err != nil {
		log.Printf("Summarization failed for %s: %v", rec.URL, err)
		return summarize.Placeholder(err.Error())
	}

	entries[rec.URL] = cache.NewEntry(rec.Decided, summary, now())
	return summary
}
