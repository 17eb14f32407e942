package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/models"
)

func TestWriteAskResult_JSON(t *testing.T) {
	response := &models.AskResponse{
		Found: true,
		Match: &models.DetailedMatch{
			Match:    models.Match{Similarity: 0.92, EntryIndex: 3},
			Query:    "How do I install the bot?",
			Response: "Run the installer.",
			Resources: []corpus.Resource{
				{Name: "Guide", URL: "https://example.com/guide"},
			},
		},
		QueryTime: 42,
		Query:     "installation",
	}
	var buf bytes.Buffer
	if err := WriteAskResult(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteAskResult(json): %v", err)
	}
	var decoded models.AskResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !decoded.Found || decoded.Match == nil {
		t.Fatalf("decoded: %+v", decoded)
	}
	if decoded.Match.EntryIndex != 3 || decoded.Match.Response != "Run the installer." {
		t.Errorf("decoded match: %+v", decoded.Match)
	}
	if decoded.QueryTime != 42 {
		t.Errorf("query_time: got %d, want 42", decoded.QueryTime)
	}
}

func TestWriteAskResult_text(t *testing.T) {
	response := &models.AskResponse{
		Found: true,
		Match: &models.DetailedMatch{
			Match:    models.Match{Similarity: 0.8542, EntryIndex: 1},
			Query:    "Where are the docs?",
			Response: "See docs.example.com.",
			Resources: []corpus.Resource{
				{Name: "Docs", URL: "https://docs.example.com"},
			},
		},
		QueryTime: 10,
		Query:     "docs",
	}
	var buf bytes.Buffer
	if err := WriteAskResult(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteAskResult(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"entry 1", "0.8542", "10ms", "Q: Where are the docs?", "A: See docs.example.com.", "Docs: https://docs.example.com"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAskResult_text_noMatch(t *testing.T) {
	response := &models.AskResponse{
		Found:     false,
		QueryTime: 5,
		Query:     "unanswerable",
	}
	var buf bytes.Buffer
	if err := WriteAskResult(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteAskResult(text): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No match") || !strings.Contains(out, "unanswerable") {
		t.Errorf("text output: %s", out)
	}
}
