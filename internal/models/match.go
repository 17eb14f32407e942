// Package models defines core data structures for queries and match results.
package models

import "github.com/hyperjump/kotae/internal/corpus"

// AskQuery represents one match request.
type AskQuery struct {
	Query string `json:"query"`
	// K is how many nearest neighbors to consider; 0 means the configured default.
	K int `json:"k,omitempty"`
	// Threshold is the minimum similarity for a match; 0 means the configured default.
	Threshold float64 `json:"threshold,omitempty"`
}

// Match is a successful similarity match against a corpus entry.
type Match struct {
	Similarity float64 `json:"similarity"`
	EntryIndex int     `json:"entry_index"`
}

// DetailedMatch is a Match enriched with the matched entry's content.
type DetailedMatch struct {
	Match
	Query     string            `json:"query"`
	Response  string            `json:"response"`
	Resources []corpus.Resource `json:"resources,omitempty"`
}

// AskResponse is the HTTP response for a match request. Found is false both
// for no-match and for empty queries; errors are reported separately.
type AskResponse struct {
	Found     bool           `json:"found"`
	Match     *DetailedMatch `json:"match,omitempty"`
	QueryTime int64          `json:"query_time_ms"`
	Query     string         `json:"query"`
}
