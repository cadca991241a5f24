package deck

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihir1816/teaching-content-generator/internal/generation"
)

func sampleContent() *generation.Content {
	c := &generation.Content{
		Topic:     "B-Trees",
		Summary:   "B-trees keep data sorted and balanced for block storage.",
		KeyPoints: []string{"High fanout", "Logarithmic height"},
		Glossary: []generation.GlossaryEntry{
			{Term: "fanout", Definition: "children per node"},
		},
		Misconceptions: []generation.Misconception{
			{Statement: "B-trees are binary", Correction: "Nodes hold many keys"},
		},
	}
	for i := 0; i < 7; i++ {
		c.Sections = append(c.Sections, generation.Section{
			Title:   fmt.Sprintf("Part %d", i+1),
			Bullets: []string{"one", "two"},
		})
	}
	for i := 0; i < 3; i++ {
		c.MCQs = append(c.MCQs, generation.MCQ{
			Stem:        fmt.Sprintf("Q%d?", i+1),
			Options:     []string{"w", "x", "y", "z"},
			Answer:      i,
			Explanation: "see notes",
		})
	}
	return c
}

func TestAssembleOrdering(t *testing.T) {
	d := Assemble(sampleContent(), Meta{Level: "intermediate", Style: "detailed"})

	require.NotEmpty(t, d.Slides)
	assert.Equal(t, KindTitle, d.Slides[0].Kind)
	assert.Equal(t, KindSummary, d.Slides[1].Kind)
	assert.Equal(t, KindKeyPoints, d.Slides[2].Kind)

	// Sequence numbers are contiguous from 1.
	for i, s := range d.Slides {
		assert.Equal(t, i+1, s.Sequence)
	}

	// Kinds appear in fixed order.
	order := map[SlideKind]int{
		KindTitle: 0, KindSummary: 1, KindKeyPoints: 2, KindSection: 3,
		KindGlossary: 4, KindMisconception: 5, KindQuestion: 6, KindAnswer: 6,
	}
	last := -1
	for _, s := range d.Slides {
		rank := order[s.Kind]
		assert.GreaterOrEqual(t, rank, last, "slide kind %s out of order", s.Kind)
		if rank > last {
			last = rank
		}
	}
}

func TestAssembleQuestionAnswerAdjacency(t *testing.T) {
	d := Assemble(sampleContent(), Meta{})

	for i, s := range d.Slides {
		if s.Kind != KindQuestion {
			continue
		}
		require.Less(t, i+1, len(d.Slides), "question slide cannot be last")
		next := d.Slides[i+1]
		assert.Equal(t, KindAnswer, next.Kind, "answer must directly follow its question")
	}

	// Answer slide names the correct option letter.
	var answers []Slide
	for _, s := range d.Slides {
		if s.Kind == KindAnswer {
			answers = append(answers, s)
		}
	}
	require.Len(t, answers, 3)
	assert.Equal(t, "A) w", answers[0].Lines[0])
	assert.Equal(t, "B) x", answers[1].Lines[0])
	assert.Equal(t, "C) y", answers[2].Lines[0])
}

func TestAssembleSplitsLongSections(t *testing.T) {
	c := sampleContent()
	var bullets []string
	for i := 0; i < 30; i++ {
		bullets = append(bullets, fmt.Sprintf("bullet %d", i+1))
	}
	c.Sections[0].Bullets = bullets

	d := Assemble(c, Meta{})

	var parts []Slide
	for _, s := range d.Slides {
		if s.Kind == KindSection && (s.Title == "Part 1" || s.Title == "Part 1 (cont. 2)" || s.Title == "Part 1 (cont. 3)") {
			parts = append(parts, s)
		}
	}
	require.Len(t, parts, 3)

	var total int
	for _, p := range parts {
		assert.LessOrEqual(t, len(p.Lines), maxSlideLines)
		total += len(p.Lines)
	}
	assert.Equal(t, 30, total, "continuation slides must preserve every line")
}

func TestAssembleDeterministic(t *testing.T) {
	a := Assemble(sampleContent(), Meta{Level: "beginner"})
	b := Assemble(sampleContent(), Meta{Level: "beginner"})
	assert.Equal(t, a, b)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "b-trees.pptx.json", fileName("B-Trees"))
	assert.Equal(t, "goroutine-scheduling-101.pptx.json", fileName("  Goroutine Scheduling: 101! "))
	assert.Equal(t, "deck.pptx.json", fileName("???"))
}

func TestAssembleFallsBackToMetaTopic(t *testing.T) {
	c := sampleContent()
	c.Topic = ""
	d := Assemble(c, Meta{Topic: "Fallback Topic"})
	assert.Equal(t, "Fallback Topic", d.Title)
	assert.Equal(t, "Fallback Topic", d.Slides[0].Title)
}
