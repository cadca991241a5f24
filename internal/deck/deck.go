package deck

import (
	"fmt"
	"strings"

	"github.com/mihir1816/teaching-content-generator/internal/generation"
)

// SlideKind labels a slide for renderers and tests.
type SlideKind string

const (
	KindTitle         SlideKind = "title"
	KindSummary       SlideKind = "summary"
	KindKeyPoints     SlideKind = "key_points"
	KindSection       SlideKind = "section"
	KindGlossary      SlideKind = "glossary"
	KindMisconception SlideKind = "misconception"
	KindQuestion      SlideKind = "question"
	KindAnswer        SlideKind = "answer"
)

// Slide is a title plus body lines. Assembly guarantees no slide exceeds
// the line budget; long material spills into continuation slides rather
// than being truncated.
type Slide struct {
	Kind     SlideKind `json:"kind"`
	Title    string    `json:"title"`
	Lines    []string  `json:"lines"`
	Notes    string    `json:"notes,omitempty"`
	Sequence int       `json:"sequence"`
}

// Deck is the assembled, ordered slide set.
type Deck struct {
	Title    string  `json:"title"`
	FileName string  `json:"file_name"`
	Slides   []Slide `json:"slides"`
}

// Meta carries presentation facts that are not part of the content itself.
type Meta struct {
	Topic    string
	Level    string
	Style    string
	Language string
}

const maxSlideLines = 12

// Assemble builds a deck from validated content. It is pure and
// deterministic: the same content and meta always produce the same deck.
// Slide order is fixed: title, summary, key points, sections (with
// continuations), glossary, misconceptions, then each MCQ as a question
// slide immediately followed by its answer slide.
func Assemble(content *generation.Content, meta Meta) *Deck {
	title := content.Topic
	if title == "" {
		title = meta.Topic
	}

	d := &Deck{
		Title:    title,
		FileName: fileName(title),
	}

	subtitle := []string{}
	if meta.Level != "" {
		subtitle = append(subtitle, "Level: "+meta.Level)
	}
	if meta.Style != "" {
		subtitle = append(subtitle, "Style: "+meta.Style)
	}
	d.add(Slide{Kind: KindTitle, Title: title, Lines: subtitle})

	d.add(Slide{Kind: KindSummary, Title: "Overview", Lines: wrapText(content.Summary)})

	if len(content.KeyPoints) > 0 {
		d.addSplit(KindKeyPoints, "Key Points", content.KeyPoints)
	}

	for _, s := range content.Sections {
		d.addSplit(KindSection, s.Title, s.Bullets)
	}

	if len(content.Glossary) > 0 {
		lines := make([]string, 0, len(content.Glossary))
		for _, g := range content.Glossary {
			lines = append(lines, g.Term+": "+g.Definition)
		}
		d.addSplit(KindGlossary, "Glossary", lines)
	}

	for _, m := range content.Misconceptions {
		d.add(Slide{
			Kind:  KindMisconception,
			Title: "Misconception",
			Lines: []string{"Claim: " + m.Statement, "Actually: " + m.Correction},
		})
	}

	for i, q := range content.MCQs {
		lines := make([]string, 0, len(q.Options)+1)
		lines = append(lines, q.Stem)
		for j, opt := range q.Options {
			lines = append(lines, fmt.Sprintf("%c) %s", 'A'+j, opt))
		}
		d.add(Slide{
			Kind:  KindQuestion,
			Title: fmt.Sprintf("Question %d", i+1),
			Lines: lines,
		})
		d.add(Slide{
			Kind:  KindAnswer,
			Title: fmt.Sprintf("Answer %d", i+1),
			Lines: []string{
				fmt.Sprintf("%c) %s", 'A'+q.Answer, q.Options[q.Answer]),
			},
			Notes: q.Explanation,
		})
	}

	return d
}

func (d *Deck) add(s Slide) {
	s.Sequence = len(d.Slides) + 1
	d.Slides = append(d.Slides, s)
}

// addSplit spills lines past the budget into continuation slides so nothing
// is silently dropped.
func (d *Deck) addSplit(kind SlideKind, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	part := 0
	for start := 0; start < len(lines); start += maxSlideLines {
		end := start + maxSlideLines
		if end > len(lines) {
			end = len(lines)
		}
		slideTitle := title
		if part > 0 {
			slideTitle = fmt.Sprintf("%s (cont. %d)", title, part+1)
		}
		d.add(Slide{Kind: kind, Title: slideTitle, Lines: lines[start:end]})
		part++
	}
}

// wrapText breaks prose into lines of roughly slide width.
func wrapText(text string) []string {
	const width = 80
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// fileName derives a safe download name from the deck title.
func fileName(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := false
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "deck"
	}
	return name + ".pptx.json"
}
