// Package cli provides CLI utilities for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/kotae/internal/models"
)

// AskOutputFormat is the format for ask result output.
type AskOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText AskOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON AskOutputFormat = "json"
)

// WriteAskResult writes an ask result to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteAskResult(w io.Writer, response *models.AskResponse, format AskOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeAskResultText(w, response)
		return nil
	}
}

func writeAskResultText(w io.Writer, response *models.AskResponse) {
	if !response.Found || response.Match == nil {
		fmt.Fprintf(w, "\nNo match for %q (%dms)\n", response.Query, response.QueryTime)
		return
	}
	m := response.Match
	fmt.Fprintf(w, "\nMatched entry %d with similarity %.4f in %dms\n\n",
		m.EntryIndex, m.Similarity, response.QueryTime)
	fmt.Fprintf(w, "Q: %s\n", m.Query)
	fmt.Fprintf(w, "A: %s\n", m.Response)
	if len(m.Resources) > 0 {
		fmt.Fprintln(w, "\nResources:")
		for _, res := range m.Resources {
			fmt.Fprintf(w, "  - %s: %s\n", res.Name, res.URL)
		}
	}
}

// PrintAskResult prints an ask result to stdout in text format.
func PrintAskResult(response *models.AskResponse) {
	_ = WriteAskResult(os.Stdout, response, OutputText)
}
