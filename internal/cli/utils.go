// Package cli provides output formatting for the tayyib command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json" (case-insensitive).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("invalid output format %q (use text or json)", s)
}

// WriteAskResponse writes an ask response to w in the given format.
func WriteAskResponse(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n[%s] confidence %.2f, %dms\n\n", resp.RouteUsed, resp.Confidence, resp.LatencyMS)
	if resp.ClarifyingQuestion != nil {
		fmt.Fprintf(w, "%s\n", *resp.ClarifyingQuestion)
	}
	if resp.Answer.Direct != "" {
		fmt.Fprintf(w, "%s\n", resp.Answer.Direct)
	}
	writeList(w, "Steps", resp.Answer.Steps, true)
	writeList(w, "Common mistakes", resp.Answer.Mistakes, false)
	writeSources(w, resp.Sources)
	writeChips(w, resp.RefinementChips)
	if resp.ErrorCode != nil {
		fmt.Fprintf(w, "\nerror: %s\n", *resp.ErrorCode)
	}
	return nil
}

// WriteChatMeta writes the trailer of a streamed reply. In text mode the reply body has
// already been printed as it arrived.
func WriteChatMeta(w io.Writer, text string, meta *models.ChatMeta, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			Text string           `json:"text"`
			Meta *models.ChatMeta `json:"meta"`
		}{text, meta})
	}
	fmt.Fprintf(w, "\n\n[%s] confidence %.2f, %dms\n", meta.RouteUsed, meta.Confidence, meta.LatencyMS)
	writeSources(w, meta.Sources)
	writeChips(w, meta.RefinementChips)
	if meta.ErrorCode != nil {
		fmt.Fprintf(w, "\nerror: %s\n", *meta.ErrorCode)
	}
	return nil
}

// WriteRetrieveResponse writes raw retrieval hits.
func WriteRetrieveResponse(w io.Writer, resp *models.RetrieveResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d sources (confidence %.2f)\n\n", len(resp.Results), resp.Confidence)
	for i, s := range resp.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s | Score: %.4f | %s\n", i+1, s.Title, s.Score, s.Relevance)
		if s.URL != "" {
			fmt.Fprintf(w, "URL: %s\n", s.URL)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(s.Snippet, 200))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeList(w io.Writer, heading string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", heading)
	for i, it := range items {
		if numbered {
			fmt.Fprintf(w, "  %d. %s\n", i+1, it)
		} else {
			fmt.Fprintf(w, "  - %s\n", it)
		}
	}
}

func writeSources(w io.Writer, sources []models.SourceItem) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, s := range sources {
		line := fmt.Sprintf("  [%d] %s", i+1, s.Title)
		if s.PageLabel != nil {
			line += " (" + *s.PageLabel + ")"
		}
		if s.URL != "" {
			line += " " + s.URL
		}
		fmt.Fprintln(w, line)
	}
}

func writeChips(w io.Writer, chips []string) {
	if len(chips) == 0 {
		return
	}
	fmt.Fprintf(w, "\nTry: %s\n", strings.Join(chips, " | "))
}
