// Package summarize invokes the Gemini generateContent API with a fixed
// prompt template and a candidate-model fallback chain. Rate-limit
// responses are retried per the server's own hint; the package never
// invents a backoff schedule of its own.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// defaultCandidates are tried in order when no override is configured.
var defaultCandidates = []string{
	"gemini-2.5-flash-lite",
	"gemini-2.5-flash",
	"gemini-2.0-flash",
}

// Error is a summarization failure. Permanent failures will not succeed
// without operator intervention; the diagnostics carry everything needed
// to see why (models tried, models the key can actually reach, last error
// body from the API).
type Error struct {
	Permanent bool
	Attempted []string
	Available []string
	LastBody  string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("summarization failed; tried models %v", e.Attempted)
	if e.LastBody != "" {
		msg += "; last error: " + e.LastBody
	}
	if len(e.Available) > 0 {
		msg += fmt.Sprintf("; models available to this key: %v", e.Available)
	}
	return msg
}

// Options configures a Client. Zero values take the built-in defaults.
type Options struct {
	APIKey          string
	APIVersion      string        // default v1beta
	BaseURL         string        // override for tests
	Model           string        // optional candidate override, tried first
	MaxAttempts     int           // per-candidate attempt bound, default 8
	RetryMargin     time.Duration // added on top of server-suggested waits
	Temperature     float64
	MaxOutputTokens int
	Sleep           func(time.Duration) // injectable for tests
}

// Client calls the generative API.
type Client struct {
	apiKey      string
	apiVersion  string
	baseURL     string
	candidates  []string
	maxAttempts int
	margin      time.Duration
	temperature float64
	maxTokens   int
	http        *http.Client
	sleep       func(time.Duration)
}

// New creates a Client, prepending the configured model override to the
// built-in candidate chain.
func New(opts Options) *Client {
	c := &Client{
		apiKey:      opts.APIKey,
		apiVersion:  opts.APIVersion,
		baseURL:     opts.BaseURL,
		maxAttempts: opts.MaxAttempts,
		margin:      opts.RetryMargin,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxOutputTokens,
		http:        &http.Client{Timeout: 120 * time.Second},
		sleep:       opts.Sleep,
	}
	if c.apiVersion == "" {
		c.apiVersion = "v1beta"
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 8
	}
	if c.margin <= 0 {
		c.margin = time.Second
	}
	if c.temperature == 0 {
		c.temperature = 0.2
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 650
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	if opts.Model != "" {
		c.candidates = append(c.candidates, opts.Model)
	}
	for _, m := range defaultCandidates {
		if m != opts.Model {
			c.candidates = append(c.candidates, m)
		}
	}
	return c
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Summarize embeds the extracted text in the prompt template and walks the
// candidate chain. It returns the model's response verbatim (trimmed) on
// the first success; exhausting every candidate yields a permanent *Error.
func (c *Client) Summarize(ctx context.Context, extracted string) (string, error) {
	prompt := BuildPrompt(extracted)

	var lastBody string
	for _, model := range c.candidates {
		text, body, err := c.tryCandidate(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		if body != "" {
			lastBody = body
		}
		log.Printf("Model %s failed: %v", model, err)
	}

	return "", &Error{
		Permanent: true,
		Attempted: c.candidates,
		Available: c.listModels(ctx),
		LastBody:  lastBody,
	}
}

// tryCandidate runs the bounded attempt loop for one model. Only
// server-hinted waits trigger another attempt; anything else abandons the
// candidate immediately.
func (c *Client) tryCandidate(ctx context.Context, model, prompt string) (text, lastBody string, err error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		status, body, header, reqErr := c.generate(ctx, model, prompt)
		if reqErr != nil {
			return "", lastBody, reqErr
		}

		switch {
		case status == http.StatusOK:
			text := parseGeneratedText(body)
			if text == "" {
				return "", lastBody, fmt.Errorf("empty summary from model %s", model)
			}
			return text, "", nil

		case notFound(status, body):
			return "", string(body), fmt.Errorf("model %s not available", model)

		case transient(status):
			lastBody = string(body)
			wait := retryHint(body, header)
			if wait <= 0 {
				return "", lastBody, fmt.Errorf("model %s returned %d with no retry hint", model, status)
			}
			log.Printf("Model %s rate limited; waiting %s (attempt %d/%d)", model, wait+c.margin, attempt, c.maxAttempts)
			c.sleep(wait + c.margin)

		default:
			return "", string(body), fmt.Errorf("model %s returned HTTP %d", model, status)
		}
	}
	return "", lastBody, fmt.Errorf("model %s still rate limited after %d attempts", model, c.maxAttempts)
}

func (c *Client) generate(ctx context.Context, model, prompt string) (int, []byte, http.Header, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":     c.temperature,
			"maxOutputTokens": c.maxTokens,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s", c.baseURL, c.apiVersion, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("calling model %s: %w", model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading model response: %w", err)
	}
	return resp.StatusCode, body, resp.Header, nil
}

// parseGeneratedText digs the text out of the candidates/content/parts
// nesting, concatenating multi-part responses.
func parseGeneratedText(body []byte) string {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

func notFound(status int, body []byte) bool {
	return status == http.StatusNotFound || bytes.Contains(body, []byte(`"NOT_FOUND"`))
}

func transient(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// retryHintRe matches the wait the API suggests inside error bodies, e.g.
// "Please retry in 2.35s".
var retryHintRe = regexp.MustCompile(`(?i)retry in ([0-9.]+)s`)

// retryHint extracts the server-suggested wait: the error-body hint first,
// then a transport-level Retry-After header. Zero means no hint.
func retryHint(body []byte, header http.Header) time.Duration {
	if m := retryHintRe.FindSubmatch(body); m != nil {
		if secs, err := strconv.ParseFloat(string(m[1]), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if header != nil {
		if after := header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}

// listModels enumerates the models available to the configured key, used
// only to enrich permanent-failure diagnostics. Best effort: any error
// yields nil.
func (c *Client) listModels(ctx context.Context) []string {
	url := fmt.Sprintf("%s/%s/models?key=%s", c.baseURL, c.apiVersion, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var listing struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil
	}
	var names []string
	for _, m := range listing.Models {
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names
}
