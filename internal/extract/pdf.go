package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// FullText resolves and extracts the PDF full text for an opinion. When
// the source did not advertise an enclosure, the opinion page is scanned
// for one. The resolved PDF URL is returned alongside the result so the
// feed item can link it.
func (e *Extractor) FullText(ctx context.Context, opinionURL, pdfURL string) (string, Result) {
	if pdfURL == "" && opinionURL != "" {
		page, err := e.client.Get(ctx, opinionURL)
		if err != nil {
			return "", Failure(err.Error())
		}
		pdfURL = FindPDFLink(page, opinionURL)
	}
	if pdfURL == "" {
		return "", Failure("no PDF link found")
	}

	data, err := e.client.Get(ctx, pdfURL)
	if err != nil {
		return pdfURL, Failure(err.Error())
	}

	text, err := PDFText(data)
	if err != nil {
		return pdfURL, Failure(err.Error())
	}

	text = Normalize(text)
	if !e.sufficient(text) {
		return pdfURL, Failure("extracted text too small (likely scanned PDF)")
	}
	return pdfURL, Result{Body: text}
}

// PDFText extracts plain text from PDF bytes. The reader library panics on
// some malformed files; that surfaces as an error here.
func PDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading PDF: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}
	return string(out), nil
}

// FindPDFLink returns the first PDF link on an opinion page, resolved
// against the page URL. Empty when the page offers none.
func FindPDFLink(page []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(strings.ToLower(href), ".pdf") {
			return true
		}
		found = href
		return false
	})
	if found == "" {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return found
	}
	ref, err := url.Parse(found)
	if err != nil {
		return found
	}
	return base.ResolveReference(ref).String()
}
