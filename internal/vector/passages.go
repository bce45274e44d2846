package vector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Passage is one line of a passages JSONL file: the stored record plus an optional
// precomputed vector. Passages without a vector are embedded on ingestion.
type Passage struct {
	Record
	Vector []float32 `json:"vector,omitempty"`
}

// TextEmbedder embeds passage text during ingestion.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ReadPassages decodes one passage per non-blank line. Every passage needs a source_id and text.
func ReadPassages(r io.Reader) ([]Passage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []Passage
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var p Passage
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.SourceID == "" || strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("line %d: source_id and text are required", line)
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read passages: %w", err)
	}
	return out, nil
}

// LoadPassages reads a passages JSONL file.
func LoadPassages(path string) ([]Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open passages: %w", err)
	}
	defer f.Close()
	passages, err := ReadPassages(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return passages, nil
}

// Ingest embeds passages that carry no vector and stores them, replacing any records that
// share a source ID. Nothing is changed if any embedding fails.
func (m *MemoryIndex) Ingest(ctx context.Context, emb TextEmbedder, passages []Passage) (int, error) {
	records := make([]Record, 0, len(passages))
	vectors := make([][]float32, 0, len(passages))
	ids := make([]string, 0, len(passages))
	for _, p := range passages {
		vec := p.Vector
		if len(vec) == 0 {
			if emb == nil {
				return 0, fmt.Errorf("passage %s has no vector and no embedder is configured", p.SourceID)
			}
			var err error
			vec, err = emb.Embed(ctx, p.Text)
			if err != nil {
				return 0, fmt.Errorf("embed passage %s: %w", p.SourceID, err)
			}
		}
		if len(vec) != m.dimensions {
			return 0, fmt.Errorf("passage %s: vector dimension %d, index expects %d", p.SourceID, len(vec), m.dimensions)
		}
		records = append(records, p.Record)
		vectors = append(vectors, vec)
		ids = append(ids, p.SourceID)
	}
	if err := m.Remove(ctx, ids); err != nil {
		return 0, err
	}
	if err := m.Add(ctx, records, vectors); err != nil {
		return 0, err
	}
	return len(records), nil
}
