package offline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hyperjump/tayyib/internal/models"
	"gopkg.in/yaml.v3"
)

// variant is a stored phrasing with its precomputed normalized form.
type variant struct {
	text       string
	normalized string
}

type indexedEntry struct {
	entry    models.OfflineEntry
	variants []variant
	tags     []string
}

// Table is the immutable, per-language offline bank. Safe for concurrent use.
type Table struct {
	byLang map[models.Lang][]indexedEntry
	size   int
}

// NewTable indexes entries by language. Entries with an unknown language are skipped.
func NewTable(entries []models.OfflineEntry) *Table {
	t := &Table{byLang: make(map[models.Lang][]indexedEntry)}
	for _, e := range entries {
		if !e.Lang.Valid() {
			continue
		}
		ie := indexedEntry{entry: e}
		for _, v := range e.QuestionVariants {
			ie.variants = append(ie.variants, variant{text: v, normalized: Normalize(v)})
		}
		for _, tag := range e.Tags {
			if n := Normalize(tag); n != "" {
				ie.tags = append(ie.tags, n)
			}
		}
		t.byLang[e.Lang] = append(t.byLang[e.Lang], ie)
		t.size++
	}
	return t
}

// LoadTable reads an offline pack (a JSON or YAML list of entries) from path.
// A missing file yields an empty table.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read offline pack: %w", err)
	}
	var entries []models.OfflineEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse offline pack: %w", err)
	}
	return NewTable(entries), nil
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return t.size
}

func (t *Table) entries(lang models.Lang) []indexedEntry {
	if t == nil {
		return nil
	}
	return t.byLang[lang]
}
