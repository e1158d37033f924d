package listing

import (
	"context"
	"testing"
)

const listingPage = `<html><body>
<h2>Other Section</h2>
<h2>Most Recent Decisions</h2>
<dl>
  <dt><a href="/supremecourt/text/23-175">Sheetz v. County of El Dorado</a></dt>
  <dd>No. 23-175 decided date: April 12, 2024</dd>
  <dt><a href="/supremecourt/text/22-1078">Warner Chappell Music v. Nealy</a></dt>
  <dd>No. 22-1078 decided date: May 9, 2024</dd>
  <dt><span>no anchor here</span></dt>
  <dt><a href="https://example.org/absolute">Absolute Link Case</a></dt>
</dl>
</body></html>`

type fakeGetter struct {
	body []byte
	err  error
}

func (f *fakeGetter) Get(ctx context.Context, url string) ([]byte, error) {
	return f.body, f.err
}

func TestHTMLListerParsesCases(t *testing.T) {
	l := NewHTMLLister(&fakeGetter{body: []byte(listingPage)}, "https://example.edu/listing", "https://example.edu")

	cases, err := l.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(cases))
	}

	first := cases[0]
	if first.Title != "Sheetz v. County of El Dorado" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.URL != "https://example.edu/supremecourt/text/23-175" {
		t.Errorf("relative URL not resolved: %q", first.URL)
	}
	if first.Decided != "April 12, 2024" {
		t.Errorf("decided date not extracted: %q", first.Decided)
	}
	if first.Docket != "23-175" {
		t.Errorf("docket not extracted: %q", first.Docket)
	}
	if first.Meta == "" {
		t.Error("expected raw metadata to be kept")
	}

	if cases[2].URL != "https://example.org/absolute" {
		t.Errorf("absolute URL rewritten: %q", cases[2].URL)
	}
}

func TestHTMLListerHonorsMaxItems(t *testing.T) {
	l := NewHTMLLister(&fakeGetter{body: []byte(listingPage)}, "https://example.edu/listing", "https://example.edu")
	cases, err := l.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(cases))
	}
}

func TestHTMLListerMissingSectionIsEmpty(t *testing.T) {
	pages := []string{
		`<html><body><p>nothing here</p></body></html>`,
		`<html><body><h2>Most Recent Decisions</h2><p>no list follows</p></body></html>`,
		`not even html <<<`,
		``,
	}
	for _, page := range pages {
		l := NewHTMLLister(&fakeGetter{body: []byte(page)}, "https://example.edu/listing", "https://example.edu")
		cases, err := l.List(context.Background(), 10)
		if err != nil {
			t.Fatalf("List returned error for %q: %v", page, err)
		}
		if len(cases) != 0 {
			t.Errorf("expected empty result for %q, got %d cases", page, len(cases))
		}
	}
}

func TestHTMLListerMissingMetadataIsOptional(t *testing.T) {
	page := `<html><body><h2>Most Recent Decisions</h2><dl>
		<dt><a href="/x">Case Without Meta</a></dt>
	</dl></body></html>`
	l := NewHTMLLister(&fakeGetter{body: []byte(page)}, "https://example.edu/listing", "https://example.edu")
	cases, _ := l.List(context.Background(), 10)
	if len(cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(cases))
	}
	if cases[0].Decided != "" || cases[0].Docket != "" {
		t.Errorf("expected empty decided/docket, got %q / %q", cases[0].Decided, cases[0].Docket)
	}
}
