// Package pipeline orchestrates the three document builds: the two
// stateless primary documents and the incremental summary document.
//
// Execution is sequential and single-writer: the cache file and each
// published document are read once per run and written at most once.
// Concurrent runs against the same output paths are not supported.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"opinionfeed/internal/cache"
	"opinionfeed/internal/config"
	"opinionfeed/internal/extract"
	"opinionfeed/internal/feed"
	"opinionfeed/internal/fetch"
	"opinionfeed/internal/listing"
	"opinionfeed/internal/summarize"
)

// Lister produces the current case records from an upstream source.
type Lister interface {
	List(ctx context.Context, maxItems int) ([]listing.CaseRecord, error)
}

// StepResult holds the outcome of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
	Warning bool // Err is non-fatal for the run
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any fatal step failed.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil && !s.Warning {
			return true
		}
	}
	return false
}

// Pipeline wires the collaborators from configuration.
type Pipeline struct {
	cfg        *config.Config
	htmlLister Lister
	atomLister Lister
	extractor  *extract.Extractor
	summarizer *summarize.Client
	store      *cache.Store
}

// New builds a pipeline from configuration.
func New(cfg *config.Config) *Pipeline {
	client := fetch.New(cfg.Sources.UserAgent, cfg.Sources.Timeout())
	summ := cfg.Summarization

	return &Pipeline{
		cfg:        cfg,
		htmlLister: listing.NewHTMLLister(client, cfg.Sources.ListingURL, cfg.Sources.BaseURL),
		atomLister: listing.NewAtomLister(client, cfg.Sources.AtomURL),
		extractor:  extract.New(client, cfg.Extraction.MinContentChars),
		summarizer: summarize.New(summarize.Options{
			APIKey:          summ.APIKey(),
			APIVersion:      summ.APIVersion,
			Model:           summ.Model,
			MaxAttempts:     summ.MaxAttempts,
			RetryMargin:     summ.RetryMargin(),
			Temperature:     summ.Temperature,
			MaxOutputTokens: summ.MaxOutputTokens,
		}),
		store: cache.NewStore(cfg.Output.CachePath),
	}
}

// Run executes all three builds. A summary-phase failure is a warning: the
// primary documents written earlier in the run are kept.
func (p *Pipeline) Run(ctx context.Context, maxItems int) *Result {
	r := &Result{}

	count, err := p.RunOpinions(ctx, maxItems)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Opinions",
		Summary: fmt.Sprintf("Wrote %d items to %s", count, p.cfg.Output.OpinionsPath()),
		Err:     err,
	})

	count, err = p.RunFullText(ctx, maxItems)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Full text",
		Summary: fmt.Sprintf("Wrote %d items to %s", count, p.cfg.Output.FullTextPath()),
		Err:     err,
	})

	added, err := p.RunSummaries(ctx, maxItems)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Summaries",
		Summary: fmt.Sprintf("Added %d items to %s", added, p.cfg.Output.SummaryPath()),
		Err:     err,
		Warning: err != nil,
	})

	return r
}

// RunOpinions rebuilds the primary opinions document from scratch: every
// listed case, sanitized body HTML inline, extraction failures embedded as
// error blocks.
func (p *Pipeline) RunOpinions(ctx context.Context, maxItems int) (int, error) {
	cases, ok := p.list(ctx, p.htmlLister, maxItems)
	if !ok {
		return 0, nil
	}

	now := time.Now()
	doc := channelDoc(p.cfg.Channels.Opinions, now)
	for _, rec := range cases {
		res := p.extractor.BodyHTML(ctx, rec.URL)
		if res.Failed() {
			log.Printf("Body extraction failed for %s: %s", rec.URL, res.Err)
		}
		doc.Items = append(doc.Items, feed.OpinionItem(rec, res, now))
	}

	if err := feed.WriteFile(p.cfg.Output.OpinionsPath(), doc); err != nil {
		return 0, err
	}
	return len(doc.Items), nil
}

// RunFullText rebuilds the full-text document from the Atom source,
// extracting each opinion's PDF.
func (p *Pipeline) RunFullText(ctx context.Context, maxItems int) (int, error) {
	cases, ok := p.list(ctx, p.atomLister, maxItems)
	if !ok {
		return 0, nil
	}

	doc := channelDoc(p.cfg.Channels.FullText, time.Now())
	for _, rec := range cases {
		pdfURL, res := p.extractor.FullText(ctx, rec.URL, rec.PDFURL)
		if res.Failed() {
			log.Printf("Full-text extraction failed for %s: %s", rec.URL, res.Err)
		}
		doc.Items = append(doc.Items, feed.FullTextItem(rec, pdfURL, res, p.cfg.Channels.FullText.Link))
	}

	if err := feed.WriteFile(p.cfg.Output.FullTextPath(), doc); err != nil {
		return 0, err
	}
	return len(doc.Items), nil
}

// RunSummaries reconciles the listing against the append-only summary
// document, summarizing only cases not yet published.
func (p *Pipeline) RunSummaries(ctx context.Context, maxItems int) (int, error) {
	if !p.summarizer.IsConfigured() {
		return 0, fmt.Errorf("missing %s (or %s) in environment",
			p.cfg.Summarization.APIKeyEnv, p.cfg.Summarization.FallbackAPIKeyEnv)
	}

	cases, ok := p.list(ctx, p.htmlLister, maxItems)
	if !ok {
		return 0, nil
	}

	ch := p.cfg.Channels.Summary
	rec := &feed.Reconciler{
		Channel: feed.Document{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Language:    ch.Language,
		},
		Cache:     p.store,
		Extractor: p.extractor,
		Summarize: p.summarizer,
		MaxChars:  p.cfg.Extraction.MaxPromptChars,
	}
	return rec.Reconcile(ctx, cases, p.cfg.Output.SummaryPath())
}

// list runs a lister, treating an unavailable upstream as an empty run
// rather than a failure. ok is false when nothing should be written.
func (p *Pipeline) list(ctx context.Context, l Lister, maxItems int) ([]listing.CaseRecord, bool) {
	if maxItems <= 0 {
		maxItems = p.cfg.Sources.MaxItems
	}
	cases, err := l.List(ctx, maxItems)
	if err != nil {
		log.Printf("Warning: listing unavailable: %v", err)
		return nil, false
	}
	return cases, true
}

func channelDoc(ch config.Channel, now time.Time) *feed.Document {
	return &feed.Document{
		Title:       ch.Title,
		Link:        ch.Link,
		Description: ch.Description,
		Language:    ch.Language,
		LastBuild:   now.UTC(),
	}
}
