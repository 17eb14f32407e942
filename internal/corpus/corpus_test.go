package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faq.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidCorpus(t *testing.T) {
	path := writeCorpus(t, `[
		{"query": "How do I install the bot?", "response": "See the install guide.", "variations": ["installing the bot", "bot installation"]},
		{"query": "Where are the docs?", "response": "docs.example.com"}
	]`)

	c, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(c.Entries))
	}
	if c.Size() != 4 {
		t.Fatalf("searchables = %d, want 4", c.Size())
	}
	// Canonical query comes first, then variations in original order.
	if c.Searchables[0].Text != "How do I install the bot?" || c.Searchables[0].EntryIndex != 0 {
		t.Errorf("searchable 0 = %+v", c.Searchables[0])
	}
	if c.Searchables[1].Text != "installing the bot" || c.Searchables[1].EntryIndex != 0 {
		t.Errorf("searchable 1 = %+v", c.Searchables[1])
	}
	if c.Searchables[3].Text != "Where are the docs?" || c.Searchables[3].EntryIndex != 1 {
		t.Errorf("searchable 3 = %+v", c.Searchables[3])
	}
	if c.Stats.TotalVariations != 2 {
		t.Errorf("variations = %d, want 2", c.Stats.TotalVariations)
	}
}

func TestLoad_SkipsInvalidEntries(t *testing.T) {
	path := writeCorpus(t, `[
		{"query": "", "response": "dropped: empty query"},
		{"response": "dropped: no query"},
		{"query": "no response field"},
		{"query": "valid", "response": "kept", "variations": ["", "  ", "variant"]}
	]`)

	c, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(c.Entries))
	}
	// Blank variations are dropped, "variant" survives.
	if c.Size() != 2 {
		t.Fatalf("searchables = %d, want 2", c.Size())
	}
	if c.Entries[0].Query != "valid" {
		t.Errorf("entry query = %q", c.Entries[0].Query)
	}
	if c.Stats.TotalItems != 4 || c.Stats.ValidEntries != 1 {
		t.Errorf("stats = %+v", c.Stats)
	}
}

func TestLoad_AllEntriesInvalid(t *testing.T) {
	path := writeCorpus(t, `[{"query": ""}, {"response": "x"}]`)
	_, err := Load(path, zap.NewNop())
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestLoad_NotAnArray(t *testing.T) {
	path := writeCorpus(t, `{"query": "q", "response": "r"}`)
	_, err := Load(path, zap.NewNop())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestLoad_EmptyArray(t *testing.T) {
	path := writeCorpus(t, `[]`)
	_, err := Load(path, zap.NewNop())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEntryFor_Bounds(t *testing.T) {
	path := writeCorpus(t, `[{"query": "q", "response": "r", "variations": ["v"]}]`)
	c, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if idx, ok := c.EntryFor(1); !ok || idx != 0 {
		t.Errorf("EntryFor(1) = %d, %v", idx, ok)
	}
	if _, ok := c.EntryFor(-1); ok {
		t.Error("EntryFor(-1) should be out of range")
	}
	if _, ok := c.EntryFor(2); ok {
		t.Error("EntryFor(2) should be out of range")
	}
}
