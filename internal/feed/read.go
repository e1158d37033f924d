package feed

import (
	"os"

	"github.com/mmcdole/gofeed"
)

// ReadFile parses a previously published document back into memory. The
// second return is false when the file is absent or unparseable; callers
// treat that as "no document yet" rather than an error, matching the
// tolerant-parsing contract used everywhere else.
func ReadFile(path string) (*Document, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	parsed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		return nil, false
	}

	doc := &Document{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
	}
	if parsed.UpdatedParsed != nil {
		doc.LastBuild = parsed.UpdatedParsed.UTC()
	}

	for _, it := range parsed.Items {
		item := Item{
			GUID:        it.GUID,
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
		}
		if item.GUID == "" {
			item.GUID = it.Link
		}
		if it.PublishedParsed != nil {
			item.PubDate = it.PublishedParsed.UTC()
		}
		if len(it.Enclosures) > 0 {
			item.EnclosureURL = it.Enclosures[0].URL
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, true
}
