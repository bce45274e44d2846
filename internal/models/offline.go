package models

// Answer is the structured answer shape shared by curated entries and generated replies.
type Answer struct {
	Direct   string   `json:"direct" yaml:"direct"`
	Steps    []string `json:"steps" yaml:"steps"`
	Mistakes []string `json:"mistakes" yaml:"mistakes"`
}

// Empty reports whether the answer carries no content at all.
func (a *Answer) Empty() bool {
	return a == nil || (a.Direct == "" && len(a.Steps) == 0 && len(a.Mistakes) == 0)
}

// OfflineEntry is a curated, editorially approved question/answer record.
type OfflineEntry struct {
	ID               string   `json:"id" yaml:"id"`
	Lang             Lang     `json:"lang" yaml:"lang"`
	QuestionVariants []string `json:"question_variants" yaml:"question_variants"`
	Tags             []string `json:"tags" yaml:"tags"`
	Answer           Answer   `json:"answer" yaml:"answer"`
	SourceIDs        []string `json:"source_ids" yaml:"source_ids"`
}

// AllowsSource reports whether the entry may cite the given source.
func (e *OfflineEntry) AllowsSource(id string) bool {
	for _, s := range e.SourceIDs {
		if s == id {
			return true
		}
	}
	return false
}
