package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/feeds"

	"opinionfeed/internal/sanitize"
)

// WriteFile serializes the document as RSS 2.0 and replaces path
// atomically (temp file then rename), so a crash mid-write never leaves a
// corrupt document behind. Every text field passes through the XML
// sanitizer on the way out.
func WriteFile(path string, doc *Document) error {
	rss := &feeds.RssFeed{
		Title:       sanitize.XML(doc.Title),
		Link:        sanitize.XML(doc.Link),
		Description: sanitize.XML(doc.Description),
		Language:    doc.Language,
	}
	if !doc.LastBuild.IsZero() {
		rss.LastBuildDate = doc.LastBuild.UTC().Format(time.RFC1123Z)
	}

	for _, it := range doc.Items {
		item := &feeds.RssItem{
			Title:       sanitize.XML(it.Title),
			Link:        sanitize.XML(it.Link),
			Description: sanitize.XML(it.Description),
			Guid:        &feeds.RssGuid{Id: sanitize.XML(it.GUID), IsPermaLink: "false"},
			PubDate:     it.PubDate.UTC().Format(time.RFC1123Z),
		}
		if it.EnclosureURL != "" {
			item.Enclosure = &feeds.RssEnclosure{
				Url:    sanitize.XML(it.EnclosureURL),
				Type:   "application/pdf",
				Length: "0",
			}
		}
		rss.Items = append(rss.Items, item)
	}

	xml, err := feeds.ToXML(rss)
	if err != nil {
		return fmt.Errorf("serializing feed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".feed-*.xml")
	if err != nil {
		return fmt.Errorf("creating temp feed file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(xml + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing feed: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing feed: %w", err)
	}
	return nil
}
