package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func successBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

// apiStub serves generateContent for a scripted sequence of responses per
// model, plus a models listing for diagnostics.
type apiStub struct {
	mu       sync.Mutex
	handlers map[string][]func(w http.ResponseWriter)
	calls    map[string]int
	models   []string
}

func (s *apiStub) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, "/models") {
		var names []string
		for _, m := range s.models {
			names = append(names, fmt.Sprintf(`{"name":"models/%s"}`, m))
		}
		fmt.Fprintf(w, `{"models":[%s]}`, strings.Join(names, ","))
		return
	}

	for model, queue := range s.handlers {
		if strings.Contains(r.URL.Path, "/models/"+model+":generateContent") {
			s.calls[model]++
			if len(queue) == 0 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			next := queue[0]
			s.handlers[model] = queue[1:]
			next(w)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"error":{"status":"NOT_FOUND"}}`)
}

func newStub() *apiStub {
	return &apiStub{
		handlers: map[string][]func(w http.ResponseWriter){},
		calls:    map[string]int{},
	}
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func newTestClient(t *testing.T, stub *apiStub, model string, slept *[]time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(srv.Close)

	return New(Options{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Model:       model,
		RetryMargin: 100 * time.Millisecond,
		Sleep: func(d time.Duration) {
			if slept != nil {
				*slept = append(*slept, d)
			}
		},
	})
}

func TestSummarizeSuccess(t *testing.T) {
	stub := newStub()
	stub.handlers["test-model"] = []func(w http.ResponseWriter){
		respond(http.StatusOK, successBody("  Background:\nThe case arose...  ")),
	}

	c := newTestClient(t, stub, "test-model", nil)
	got, err := c.Summarize(context.Background(), "opinion text")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "Background:\nThe case arose..." {
		t.Errorf("expected trimmed verbatim response, got %q", got)
	}
	if stub.calls["test-model"] != 1 {
		t.Errorf("expected 1 call, got %d", stub.calls["test-model"])
	}
}

func TestSummarizeFallsBackOnModelNotFound(t *testing.T) {
	stub := newStub()
	// No handler for "missing-model": the stub 404s unknown models.
	stub.handlers["gemini-2.5-flash-lite"] = []func(w http.ResponseWriter){
		respond(http.StatusOK, successBody("summary")),
	}

	c := newTestClient(t, stub, "missing-model", nil)
	got, err := c.Summarize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "summary" {
		t.Errorf("expected fallback candidate's summary, got %q", got)
	}
	if stub.calls["gemini-2.5-flash-lite"] != 1 {
		t.Errorf("fallback candidate not tried exactly once: %d", stub.calls["gemini-2.5-flash-lite"])
	}
}

func TestSummarizeHonorsRetryHint(t *testing.T) {
	stub := newStub()
	stub.handlers["test-model"] = []func(w http.ResponseWriter){
		respond(http.StatusTooManyRequests, `{"error":{"message":"Resource exhausted. Please retry in 2.0s."}}`),
		respond(http.StatusOK, successBody("after retry")),
	}

	var slept []time.Duration
	c := newTestClient(t, stub, "test-model", &slept)
	got, err := c.Summarize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "after retry" {
		t.Errorf("expected retried success, got %q", got)
	}
	if len(slept) != 1 {
		t.Fatalf("expected exactly one sleep, got %v", slept)
	}
	if slept[0] < 2*time.Second {
		t.Errorf("sleep %v shorter than server-suggested 2s", slept[0])
	}
	if stub.calls["test-model"] != 2 {
		t.Errorf("expected same candidate retried, got %d calls", stub.calls["test-model"])
	}
}

func TestSummarizeUsesRetryAfterHeader(t *testing.T) {
	stub := newStub()
	stub.handlers["test-model"] = []func(w http.ResponseWriter){
		func(w http.ResponseWriter) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"unavailable"}}`)
		},
		respond(http.StatusOK, successBody("ok")),
	}

	var slept []time.Duration
	c := newTestClient(t, stub, "test-model", &slept)
	if _, err := c.Summarize(context.Background(), "text"); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(slept) != 1 || slept[0] < 3*time.Second {
		t.Errorf("expected one sleep of at least 3s, got %v", slept)
	}
}

func TestSummarizeNoHintFailsCandidateImmediately(t *testing.T) {
	stub := newStub()
	stub.handlers["test-model"] = []func(w http.ResponseWriter){
		respond(http.StatusTooManyRequests, `{"error":{"message":"exhausted, no hint"}}`),
	}
	stub.handlers["gemini-2.5-flash-lite"] = []func(w http.ResponseWriter){
		respond(http.StatusOK, successBody("fallback")),
	}

	var slept []time.Duration
	c := newTestClient(t, stub, "test-model", &slept)
	got, err := c.Summarize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "fallback" {
		t.Errorf("expected fallback after hintless rate limit, got %q", got)
	}
	if len(slept) != 0 {
		t.Errorf("no backoff schedule should be invented, but slept %v", slept)
	}
	if stub.calls["test-model"] != 1 {
		t.Errorf("hintless failure should not retry the candidate: %d calls", stub.calls["test-model"])
	}
}

func TestSummarizeBoundsAttempts(t *testing.T) {
	stub := newStub()
	limited := respond(http.StatusTooManyRequests, `{"error":{"message":"retry in 0.001s"}}`)
	var queue []func(w http.ResponseWriter)
	for i := 0; i < 20; i++ {
		queue = append(queue, limited)
	}
	stub.handlers["test-model"] = queue

	srv := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(srv.Close)

	c := New(Options{
		APIKey:      "k",
		BaseURL:     srv.URL,
		Model:       "test-model",
		MaxAttempts: 3,
		Sleep:       func(time.Duration) {},
	})
	// Limit the chain to the single override candidate for a clean count.
	c.candidates = []string{"test-model"}

	_, err := c.Summarize(context.Background(), "text")
	if err == nil {
		t.Fatal("expected permanent failure")
	}
	if stub.calls["test-model"] != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", stub.calls["test-model"])
	}
}

func TestSummarizeExhaustionIsPermanent(t *testing.T) {
	stub := newStub()
	stub.models = []string{"gemini-2.5-flash-lite", "gemini-2.0-flash"}

	c := newTestClient(t, stub, "", nil)
	_, err := c.Summarize(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error when every candidate fails")
	}

	var sErr *Error
	if !errors.As(err, &sErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !sErr.Permanent {
		t.Error("exhaustion must be a permanent failure")
	}
	if len(sErr.Attempted) == 0 {
		t.Error("error should list attempted candidates")
	}
	if len(sErr.Available) != 2 {
		t.Errorf("error should carry the live model enumeration, got %v", sErr.Available)
	}
	for _, want := range []string{"gemini-2.5-flash-lite"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error text should mention %s: %s", want, err)
		}
	}
}

func TestSummarizeEmptyResponseMovesOn(t *testing.T) {
	stub := newStub()
	stub.handlers["test-model"] = []func(w http.ResponseWriter){
		respond(http.StatusOK, `{"candidates":[]}`),
	}
	stub.handlers["gemini-2.5-flash-lite"] = []func(w http.ResponseWriter){
		respond(http.StatusOK, successBody("real")),
	}

	c := newTestClient(t, stub, "test-model", nil)
	got, err := c.Summarize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "real" {
		t.Errorf("expected fallback past empty response, got %q", got)
	}
}

func TestBuildPromptEmbedsTextAndHeadings(t *testing.T) {
	p := BuildPrompt("THE OPINION TEXT")
	if !strings.HasSuffix(p, "THE OPINION TEXT") {
		t.Error("extracted text should close the prompt")
	}
	for _, h := range Headings {
		if !strings.Contains(p, h) {
			t.Errorf("prompt missing required heading %q", h)
		}
	}
}

func TestPlaceholderCarriesAllHeadings(t *testing.T) {
	p := Placeholder("quota exceeded")
	for _, h := range Headings {
		if !strings.Contains(p, h) {
			t.Errorf("placeholder missing heading %q", h)
		}
	}
	if !strings.Contains(p, "Error: quota exceeded") {
		t.Errorf("placeholder missing error line: %q", p)
	}
}
