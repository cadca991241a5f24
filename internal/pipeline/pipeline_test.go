package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihir1816/teaching-content-generator/internal/chunking"
	"github.com/mihir1816/teaching-content-generator/internal/generation"
	"github.com/mihir1816/teaching-content-generator/internal/ingestion"
	"github.com/mihir1816/teaching-content-generator/internal/llm"
	"github.com/mihir1816/teaching-content-generator/internal/plan"
	"github.com/mihir1816/teaching-content-generator/internal/querygen"
	"github.com/mihir1816/teaching-content-generator/internal/retrieval"
	"github.com/mihir1816/teaching-content-generator/internal/source"
	"github.com/mihir1816/teaching-content-generator/internal/storage/sqlite"
	"github.com/mihir1816/teaching-content-generator/internal/vector/memory"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

// routingCompleter dispatches on the system prompt so one fake serves the
// planner, query generator, and content generator.
type routingCompleter struct {
	planJSON    string
	queriesJSON string
	contentJSON string
}

func (r *routingCompleter) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	switch {
	case strings.Contains(req.SystemPrompt, "Curriculum Planner"):
		return &llm.CompletionResponse{Content: r.planJSON}, nil
	case strings.Contains(req.SystemPrompt, "retrieval queries"):
		return &llm.CompletionResponse{Content: r.queriesJSON}, nil
	case strings.Contains(req.SystemPrompt, "Classroom Coach"):
		return &llm.CompletionResponse{Content: r.contentJSON}, nil
	}
	return nil, fmt.Errorf("unexpected system prompt")
}

// hashEmbedder gives every distinct text a distinct direction so cosine
// ranking in the memory index is stable.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		var a, b float32
		for j, r := range t {
			a += float32(r) * float32(j%7+1)
			b += float32(r)
		}
		out[i] = []float32{a, b, float32(len(t))}
	}
	return out, nil
}

func planJSON() string {
	return `{"topic": "Goroutine Scheduling", "objectives": ["understand the scheduler"],
	  "subtopics": [{"title": "The M:N model", "learning_outcomes": ["explain M:N"], "suggested_examples": ["GOMAXPROCS demo"]}]}`
}

func queriesJSON() string {
	return `{"queries": [
	  {"intent": "conceptual", "query": "what is a goroutine"},
	  {"intent": "conceptual", "query": "goroutine stack growth"},
	  {"intent": "conceptual", "query": "what does gomaxprocs control"},
	  {"intent": "procedural", "query": "how does work stealing operate"},
	  {"intent": "procedural", "query": "how are goroutines parked"},
	  {"intent": "procedural", "query": "how does channel send block"},
	  {"intent": "comparison", "query": "goroutines versus os threads"},
	  {"intent": "comparison", "query": "buffered versus unbuffered channels"}
	]}`
}

func contentJSON(t *testing.T) string {
	t.Helper()
	c := generation.Content{
		Topic:     "Goroutine Scheduling",
		Summary:   "The runtime multiplexes goroutines onto OS threads.",
		KeyPoints: []string{"M:N scheduling", "Work stealing"},
		Glossary:  []generation.GlossaryEntry{{Term: "P", Definition: "a scheduling context"}},
	}
	for i := 0; i < 7; i++ {
		c.Sections = append(c.Sections, generation.Section{
			Title:   fmt.Sprintf("Section %d", i+1),
			Bullets: []string{"one bullet"},
		})
	}
	for i := 0; i < 8; i++ {
		c.MCQs = append(c.MCQs, generation.MCQ{
			Stem:        fmt.Sprintf("Q%d?", i+1),
			Options:     []string{"a", "b", "c", "d"},
			Answer:      1,
			Explanation: "why",
		})
	}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return string(raw)
}

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()

	store, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { store.Close() })

	completer := &routingCompleter{
		planJSON:    planJSON(),
		queriesJSON: queriesJSON(),
		contentJSON: contentJSON(t),
	}

	idx := memory.NewIndex()
	emb := hashEmbedder{}
	splitter := chunking.NewSplitter(chunking.Config{
		TargetTokens:  6,
		OverlapTokens: 2,
		MinTokens:     4,
		MaxTokens:     8,
	}, chunking.WordCounter{})

	return New(
		store,
		ingestion.NewIngestor(splitter, emb, idx, nil),
		plan.NewGenerator(completer),
		querygen.NewGenerator(completer, 8),
		retrieval.NewRetriever(emb, idx, retrieval.Config{}),
		generation.NewGenerator(completer, generation.Config{}),
	)
}

func sourceText() string {
	parts := make([]string, 12)
	for i := range parts {
		parts[i] = fmt.Sprintf("paragraph %d about goroutines and scheduling", i)
	}
	return strings.Join(parts, "\n\n")
}

func TestEndToEndWorkflow(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	s, err := p.CreateSession(SessionRequest{
		Topic: "Goroutine Scheduling",
		Level: plan.LevelIntermediate,
		Style: plan.StyleDetailed,
	})
	require.NoError(t, err)

	res, err := p.Ingest(ctx, s.ID, source.FromFile("sched.txt", "en", sourceText()))
	require.NoError(t, err)
	assert.Greater(t, res.ChunkCount, 1)

	draft, err := p.GeneratePlan(ctx, s.ID, "focus on the runtime")
	require.NoError(t, err)
	assert.Equal(t, plan.StatusUnderReview, draft.Status)

	// Content generation must refuse an unapproved plan.
	_, err = p.GenerateContent(ctx, s.ID)
	assert.ErrorIs(t, err, errs.ErrPlanState)

	revised, err := p.RegeneratePlan(ctx, s.ID, "add more on preemption")
	require.NoError(t, err)
	assert.NotEqual(t, draft.Version, revised.Version)

	approved, err := p.ApprovePlan(s.ID)
	require.NoError(t, err)
	assert.Equal(t, revised.Version, approved.Version)
	assert.True(t, approved.Approved())

	result, err := p.GenerateContent(ctx, s.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ContentID)
	assert.Len(t, result.Content.Sections, 7)
	assert.NotEmpty(t, result.Deck.Slides)
	assert.Equal(t, revised.Version, mustPlanVersion(t, p, result.ContentID))

	// The persisted deck round-trips.
	d, err := p.GetDeck(result.ContentID)
	require.NoError(t, err)
	assert.Equal(t, result.Deck.Title, d.Title)
	assert.Len(t, d.Slides, len(result.Deck.Slides))
}

func mustPlanVersion(t *testing.T, p *Pipeline, contentID string) string {
	t.Helper()
	record, err := p.store.GetContent(contentID)
	require.NoError(t, err)
	return record.PlanVersion
}

func TestApprovedPlanCannotBeRevised(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	s, err := p.CreateSession(SessionRequest{Topic: "T", Level: plan.LevelBeginner, Style: plan.StyleConcise})
	require.NoError(t, err)

	_, err = p.GeneratePlan(ctx, s.ID, "")
	require.NoError(t, err)
	_, err = p.ApprovePlan(s.ID)
	require.NoError(t, err)

	_, err = p.RegeneratePlan(ctx, s.ID, "too late")
	assert.ErrorIs(t, err, errs.ErrPlanState)

	// A second approval is rejected too.
	_, err = p.ApprovePlan(s.ID)
	assert.ErrorIs(t, err, errs.ErrPlanState)
}

func TestGenerateContentRequiresIngestedSource(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	s, err := p.CreateSession(SessionRequest{Topic: "T", Level: plan.LevelBeginner, Style: plan.StyleConcise})
	require.NoError(t, err)
	_, err = p.GeneratePlan(ctx, s.ID, "")
	require.NoError(t, err)
	_, err = p.ApprovePlan(s.ID)
	require.NoError(t, err)

	_, err = p.GenerateContent(ctx, s.ID)
	assert.ErrorIs(t, err, errs.ErrEmptyEvidence)
}

func TestSessionsAreIsolated(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	s1, err := p.CreateSession(SessionRequest{Topic: "A", Level: plan.LevelBeginner, Style: plan.StyleConcise})
	require.NoError(t, err)
	s2, err := p.CreateSession(SessionRequest{Topic: "B", Level: plan.LevelAdvanced, Style: plan.StyleExamPrep})
	require.NoError(t, err)

	_, err = p.GeneratePlan(ctx, s1.ID, "")
	require.NoError(t, err)

	// s2 has no plan of its own.
	_, err = p.CurrentPlan(s2.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// Approving s1 leaves s2 untouched.
	_, err = p.ApprovePlan(s1.ID)
	require.NoError(t, err)
	_, err = p.ApprovePlan(s2.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateSessionValidation(t *testing.T) {
	p := newPipeline(t)

	_, err := p.CreateSession(SessionRequest{Level: plan.LevelBeginner, Style: plan.StyleConcise})
	assert.Error(t, err)

	_, err = p.CreateSession(SessionRequest{Topic: "T", Level: "expert", Style: plan.StyleConcise})
	assert.Error(t, err)

	_, err = p.CreateSession(SessionRequest{Topic: "T", Level: plan.LevelBeginner, Style: "bullet"})
	assert.Error(t, err)

	_, err = p.CreateSession(SessionRequest{Topic: "T", Level: plan.LevelBeginner, Style: plan.StyleConcise, Depth: 9})
	assert.Error(t, err)
}
