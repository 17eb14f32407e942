// Package corpus loads and validates the FAQ corpus.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrEmpty is returned when no valid searchable strings survive validation.
	ErrEmpty = errors.New("corpus is empty after validation")
	// ErrMalformed is returned when the corpus file is not a JSON array.
	ErrMalformed = errors.New("corpus must be a non-empty JSON array")
)

// Resource is an attachment referenced by an entry (file, link, etc.).
type Resource struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Entry is one validated FAQ entry. Entries are immutable after load;
// an entry's identity is its position in the validated list.
type Entry struct {
	Query      string     `json:"query"`
	Response   string     `json:"response"`
	Resources  []Resource `json:"resources,omitempty"`
	Variations []string   `json:"variations,omitempty"`
}

// SearchableString is one unit of text submitted to the vector index,
// with a back-reference to its owning entry.
type SearchableString struct {
	Text       string
	EntryIndex int
}

// Corpus is the validated, immutable FAQ corpus. Searchables[i] corresponds
// to vector index row i; the order is the contract with the index.
type Corpus struct {
	Entries     []Entry
	Searchables []SearchableString
	Stats       LoadStats
}

// LoadStats describes a corpus load.
type LoadStats struct {
	TotalItems      int           `json:"total_items"`
	ValidEntries    int           `json:"valid_entries"`
	TotalVariations int           `json:"total_variations"`
	LoadTime        time.Duration `json:"load_time"`
}

// rawEntry mirrors the on-disk JSON shape before validation. Fields are
// pointers so missing and empty can be told apart.
type rawEntry struct {
	Query      *string    `json:"query"`
	Response   *string    `json:"response"`
	Resources  []Resource `json:"resources"`
	Variations []string   `json:"variations"`
}

// Load reads a JSON corpus from path, validates each entry independently
// (invalid entries are logged and dropped), and builds the searchable-string
// table. The load fails only when the file is unreadable, not a JSON array,
// or no valid entry remains.
func Load(path string, logger *zap.Logger) (*Corpus, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var raw []rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return nil, ErrMalformed
	}

	c := &Corpus{
		Entries:     make([]Entry, 0, len(raw)),
		Searchables: make([]SearchableString, 0, len(raw)),
	}

	for i, item := range raw {
		query, response, ok := validateEntry(item, i, logger)
		if !ok {
			continue
		}

		entryIndex := len(c.Entries)
		c.Entries = append(c.Entries, Entry{
			Query:      query,
			Response:   response,
			Resources:  item.Resources,
			Variations: item.Variations,
		})
		c.Searchables = append(c.Searchables, SearchableString{Text: query, EntryIndex: entryIndex})

		for _, v := range item.Variations {
			text := strings.TrimSpace(v)
			if text == "" {
				continue
			}
			c.Searchables = append(c.Searchables, SearchableString{Text: text, EntryIndex: entryIndex})
			c.Stats.TotalVariations++
		}
	}

	if len(c.Searchables) == 0 {
		return nil, ErrEmpty
	}

	c.Stats.TotalItems = len(raw)
	c.Stats.ValidEntries = len(c.Entries)
	c.Stats.LoadTime = time.Since(start)

	logger.Info("corpus loaded",
		zap.Int("entries", c.Stats.ValidEntries),
		zap.Int("searchable_strings", len(c.Searchables)),
		zap.Int("variations", c.Stats.TotalVariations),
		zap.Duration("load_time", c.Stats.LoadTime))

	return c, nil
}

// validateEntry checks a single raw entry. Returns the trimmed query and
// response, and false when the entry must be dropped.
func validateEntry(item rawEntry, index int, logger *zap.Logger) (string, string, bool) {
	if item.Query == nil {
		logger.Warn("corpus entry missing query, skipping", zap.Int("item", index))
		return "", "", false
	}
	query := strings.TrimSpace(*item.Query)
	if query == "" {
		logger.Warn("corpus entry has empty query, skipping", zap.Int("item", index))
		return "", "", false
	}
	if item.Response == nil {
		logger.Warn("corpus entry missing response, skipping", zap.Int("item", index))
		return "", "", false
	}
	return query, *item.Response, true
}

// Texts returns the searchable texts in row order, for batch embedding.
func (c *Corpus) Texts() []string {
	texts := make([]string, len(c.Searchables))
	for i, s := range c.Searchables {
		texts[i] = s.Text
	}
	return texts
}

// EntryFor maps a vector index row position to its owning entry index.
// Returns -1 and false when row is out of range.
func (c *Corpus) EntryFor(row int) (int, bool) {
	if row < 0 || row >= len(c.Searchables) {
		return -1, false
	}
	return c.Searchables[row].EntryIndex, true
}

// Size returns the number of searchable strings (vector index rows).
func (c *Corpus) Size() int {
	return len(c.Searchables)
}
