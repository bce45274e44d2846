package models

// Relevance is the coarse tier derived from vector distance.
type Relevance string

const (
	RelevanceHigh Relevance = "High"
	RelevanceMed  Relevance = "Med"
	RelevanceLow  Relevance = "Low"
)

// RetrievedSource is one similarity-search hit. Never persisted.
type RetrievedSource struct {
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Snippet   string    `json:"snippet"`
	Relevance Relevance `json:"relevance"`
	Score     float64   `json:"score"`
	Page      *int      `json:"page,omitempty"`
	PageLabel *string   `json:"page_label,omitempty"`
	PageStart *int      `json:"page_start,omitempty"`
	PageEnd   *int      `json:"page_end,omitempty"`
}

// SourceItem is the caller-facing view of a source.
type SourceItem struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Snippet   string    `json:"snippet"`
	Relevance Relevance `json:"relevance"`
	Page      *int      `json:"page,omitempty"`
	PageLabel *string   `json:"page_label,omitempty"`
	PageStart *int      `json:"page_start,omitempty"`
	PageEnd   *int      `json:"page_end,omitempty"`
}

// ToSourceItems converts retrieval hits to their caller-facing form. Never returns nil.
func ToSourceItems(sources []RetrievedSource) []SourceItem {
	items := make([]SourceItem, 0, len(sources))
	for _, s := range sources {
		items = append(items, SourceItem{
			Title:     s.Title,
			URL:       s.URL,
			Snippet:   s.Snippet,
			Relevance: s.Relevance,
			Page:      s.Page,
			PageLabel: s.PageLabel,
			PageStart: s.PageStart,
			PageEnd:   s.PageEnd,
		})
	}
	return items
}

// FilterByScore returns the sources scoring at least minScore, preserving order.
func FilterByScore(sources []RetrievedSource, minScore float64) []RetrievedSource {
	out := make([]RetrievedSource, 0, len(sources))
	for _, s := range sources {
		if s.Score >= minScore {
			out = append(out, s)
		}
	}
	return out
}
