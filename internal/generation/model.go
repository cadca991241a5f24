package generation

import (
	"fmt"

	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

const (
	minSections = 7
	maxSections = 10
	mcqOptions  = 4
)

// Section is one teaching unit of the generated notes. ChunkIDs records the
// evidence chunks the section was grounded on.
type Section struct {
	Title    string   `json:"title"`
	Bullets  []string `json:"bullets"`
	ChunkIDs []string `json:"chunk_ids,omitempty"`
}

type GlossaryEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type Misconception struct {
	Statement  string `json:"statement"`
	Correction string `json:"correction"`
}

// MCQ is a four-option multiple choice question. Answer indexes Options.
type MCQ struct {
	Stem        string   `json:"stem"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation"`
}

// Content is the full schema-validated output of a generation run.
type Content struct {
	Topic          string          `json:"topic"`
	Summary        string          `json:"summary"`
	KeyPoints      []string        `json:"key_points"`
	Sections       []Section       `json:"sections"`
	Glossary       []GlossaryEntry `json:"glossary"`
	Misconceptions []Misconception `json:"misconceptions"`
	MCQs           []MCQ           `json:"mcqs"`
}

// Validate enforces the output contract. Every violation is reported under
// ErrSchemaValidation so callers can decide between retry and failure.
func (c *Content) Validate() error {
	if c.Summary == "" {
		return errs.Wrapf(errs.ErrSchemaValidation, "content missing summary")
	}
	if n := len(c.Sections); n < minSections || n > maxSections {
		return errs.Wrapf(errs.ErrSchemaValidation, "content has %d sections, want %d to %d", n, minSections, maxSections)
	}
	for i, s := range c.Sections {
		if s.Title == "" {
			return errs.Wrapf(errs.ErrSchemaValidation, "section %d missing title", i)
		}
		if len(s.Bullets) == 0 {
			return errs.Wrapf(errs.ErrSchemaValidation, "section %q has no bullets", s.Title)
		}
	}
	if len(c.Glossary) == 0 {
		return errs.Wrapf(errs.ErrSchemaValidation, "content missing glossary")
	}
	for i, g := range c.Glossary {
		if g.Term == "" || g.Definition == "" {
			return errs.Wrapf(errs.ErrSchemaValidation, "glossary entry %d incomplete", i)
		}
	}
	for i, q := range c.MCQs {
		if err := validateMCQ(i, q); err != nil {
			return err
		}
	}
	return nil
}

func validateMCQ(i int, q MCQ) error {
	if q.Stem == "" {
		return errs.Wrapf(errs.ErrSchemaValidation, "mcq %d missing stem", i)
	}
	if len(q.Options) != mcqOptions {
		return errs.Wrapf(errs.ErrSchemaValidation, "mcq %d has %d options, want %d", i, len(q.Options), mcqOptions)
	}
	for j, opt := range q.Options {
		if opt == "" {
			return errs.Wrapf(errs.ErrSchemaValidation, "mcq %d option %d empty", i, j)
		}
	}
	if q.Answer < 0 || q.Answer >= mcqOptions {
		return fmt.Errorf("%w: mcq %d answer index %d out of range", errs.ErrSchemaValidation, i, q.Answer)
	}
	return nil
}
