package offline

import (
	"fmt"
	"os"
	"sort"

	"github.com/hyperjump/tayyib/internal/models"
	"gopkg.in/yaml.v3"
)

// sourceManifest is the list of approved citation sources.
type sourceManifest struct {
	Sources []struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
		URL   string `yaml:"url"`
	} `yaml:"sources"`
}

// LoadSourceIDs reads the approved source ids from a sources manifest (YAML with a top-level
// "sources" list).
func LoadSourceIDs(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources manifest: %w", err)
	}
	var m sourceManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse sources manifest: %w", err)
	}
	ids := make(map[string]struct{}, len(m.Sources))
	for _, s := range m.Sources {
		if s.ID != "" {
			ids[s.ID] = struct{}{}
		}
	}
	return ids, nil
}

// Check reports every entry that could never be served: no phrasings, no answer, no approved
// sources, or sources missing from validIDs. A nil validIDs skips the manifest check.
func (t *Table) Check(validIDs map[string]struct{}) []string {
	var problems []string
	for _, lang := range models.Langs {
		for _, ie := range t.entries(lang) {
			e := ie.entry
			if len(ie.variants) == 0 {
				problems = append(problems, fmt.Sprintf("%s: no question variants", e.ID))
			}
			if e.Answer.Empty() {
				problems = append(problems, fmt.Sprintf("%s: empty answer", e.ID))
			}
			if len(e.SourceIDs) == 0 {
				problems = append(problems, fmt.Sprintf("%s: missing source_ids", e.ID))
				continue
			}
			if validIDs == nil {
				continue
			}
			var missing []string
			for _, id := range e.SourceIDs {
				if _, ok := validIDs[id]; !ok {
					missing = append(missing, id)
				}
			}
			if len(missing) > 0 {
				sort.Strings(missing)
				problems = append(problems, fmt.Sprintf("%s: invalid source_ids %v", e.ID, missing))
			}
		}
	}
	return problems
}
