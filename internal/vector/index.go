// Package vector provides the language-partitioned similarity indexes searched by the retriever.
package vector

import (
	"context"
	"strings"
)

// Index searches stored source passages by vector distance.
type Index interface {
	// Search returns up to k hits nearest to query, ascending by distance, restricted to lang
	// when lang is non-empty.
	Search(ctx context.Context, query []float32, k int, lang string) ([]*Hit, error)
	Size() int
	Close() error
}

// Record is the metadata stored alongside each vector.
type Record struct {
	SourceID  string  `json:"source_id"`
	Lang      string  `json:"lang"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Text      string  `json:"text"`
	Page      *int    `json:"page,omitempty"`
	PageLabel *string `json:"page_label,omitempty"`
	PageStart *int    `json:"page_start,omitempty"`
	PageEnd   *int    `json:"page_end,omitempty"`
}

// Hit is a single search result. Distance is Euclidean distance between unit vectors, in [0,2].
type Hit struct {
	Record
	Distance float64
}

func sameLang(a, b string) bool {
	return b == "" || strings.EqualFold(a, b)
}
