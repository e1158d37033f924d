// Package cache persists summaries between runs so each opinion is
// summarized at most once. The store is a single JSON document keyed by
// case URL, kept human-diffable so it can be committed next to the feeds.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one cached summary. Decided is the validity fingerprint: the
// decided date as reported by the upstream when the summary was produced.
type Entry struct {
	Decided   string `json:"decided"`
	Summary   string `json:"summary"`
	UpdatedAt string `json:"updated_at"`
}

// Valid reports whether the entry can be reused for an item whose upstream
// decided date is currently decided. A changed date signals a correction
// and forces re-derivation; nothing else invalidates an entry.
func (e Entry) Valid(decided string) bool {
	return e.Summary != "" && e.Decided == decided
}

// NewEntry builds an entry stamped at now.
func NewEntry(decided, summary string, now time.Time) Entry {
	return Entry{
		Decided:   decided,
		Summary:   summary,
		UpdatedAt: now.UTC().Format(time.RFC3339),
	}
}

// Store reads and writes the cache file.
type Store struct {
	path string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the cached entries. Fails soft: a missing, unreadable, or
// corrupt file yields an empty map, since losing the cache only costs
// re-work.
func (s *Store) Load() map[string]Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]Entry{}
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return map[string]Entry{}
	}
	return entries
}

// Save writes the full mapping atomically (temp file then rename), so a
// crash mid-write cannot corrupt a previously valid cache. Keys serialize
// in sorted order, keeping diffs stable across runs.
func (s *Store) Save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}
