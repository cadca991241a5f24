package querygen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihir1816/teaching-content-generator/internal/llm"
	"github.com/mihir1816/teaching-content-generator/internal/plan"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

type scriptedCompleter struct {
	responses []string
	calls     int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.calls >= len(s.responses) {
		s.calls++
		return &llm.CompletionResponse{Content: s.responses[len(s.responses)-1]}, nil
	}
	resp := &llm.CompletionResponse{Content: s.responses[s.calls]}
	s.calls++
	return resp, nil
}

func approvedPlan(t *testing.T) *plan.Plan {
	t.Helper()
	p := &plan.Plan{
		Version:   "v1",
		Topic:     "Goroutine Scheduling",
		Level:     plan.LevelIntermediate,
		Style:     plan.StyleDetailed,
		Status:    plan.StatusUnderReview,
		Subtopics: []plan.Subtopic{{Title: "The M:N scheduler"}},
		CreatedAt: time.Now(),
	}
	require.NoError(t, p.Approve())
	return p
}

const eightQueries = `{"queries": [
  {"intent": "conceptual", "query": "what is a goroutine"},
  {"intent": "conceptual", "query": "goroutine stack growth"},
  {"intent": "conceptual", "query": "what does GOMAXPROCS control"},
  {"intent": "procedural", "query": "how does the go scheduler steal work"},
  {"intent": "procedural", "query": "how are goroutines parked and resumed"},
  {"intent": "procedural", "query": "how does channel send block a goroutine"},
  {"intent": "comparison", "query": "goroutines versus os threads"},
  {"intent": "comparison", "query": "buffered versus unbuffered channels"}
]}`

func TestDeriveProducesFullQuerySet(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{eightQueries}}
	gen := NewGenerator(completer, 8)

	queries, err := gen.Derive(context.Background(), approvedPlan(t))
	require.NoError(t, err)

	assert.Len(t, queries, 8)
	assert.Equal(t, 1, completer.calls)
	assert.GreaterOrEqual(t, intentSpread(queries), 3)
}

func TestDeriveRejectsUnapprovedPlan(t *testing.T) {
	gen := NewGenerator(&scriptedCompleter{responses: []string{eightQueries}}, 8)

	p := &plan.Plan{Version: "v1", Topic: "x", Status: plan.StatusUnderReview}
	_, err := gen.Derive(context.Background(), p)
	assert.ErrorIs(t, err, errs.ErrPlanState)
}

func TestDeriveRetriesOnDuplicates(t *testing.T) {
	dupes := `{"queries": [
	  {"intent": "conceptual", "query": "What is a goroutine"},
	  {"intent": "conceptual", "query": "what is a goroutine"},
	  {"intent": "procedural", "query": "how does the scheduler work"}
	]}`
	completer := &scriptedCompleter{responses: []string{dupes, eightQueries}}
	gen := NewGenerator(completer, 8)

	queries, err := gen.Derive(context.Background(), approvedPlan(t))
	require.NoError(t, err)

	assert.Equal(t, 2, completer.calls)
	assert.Len(t, queries, 8)
}

func TestDeriveAcceptsSmallerSetAfterRetry(t *testing.T) {
	dupes := `{"queries": [
	  {"intent": "conceptual", "query": "what is a goroutine"},
	  {"intent": "conceptual", "query": "  what   is a GOROUTINE "},
	  {"intent": "procedural", "query": "how does the scheduler work"},
	  {"intent": "comparison", "query": "goroutines versus threads"}
	]}`
	completer := &scriptedCompleter{responses: []string{dupes, dupes}}
	gen := NewGenerator(completer, 8)

	queries, err := gen.Derive(context.Background(), approvedPlan(t))
	require.NoError(t, err)

	assert.Equal(t, 2, completer.calls)
	assert.Len(t, queries, 3)
	seen := map[string]bool{}
	for _, q := range queries {
		assert.False(t, seen[q.Text], "duplicate survived dedup: %q", q.Text)
		seen[q.Text] = true
	}
}

func TestDeriveFailsWhenOutputNeverParses(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"not json", "still not json"}}
	gen := NewGenerator(completer, 8)

	_, err := gen.Derive(context.Background(), approvedPlan(t))
	assert.ErrorIs(t, err, errs.ErrSchemaValidation)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "what is a goroutine", Normalize(`  "What   is a Goroutine" `))
	assert.Equal(t, "", Normalize("   "))
}

func TestParseQueriesTrimsLongQueries(t *testing.T) {
	raw := `{"queries": [{"intent": "conceptual", "query": "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen"}]}`
	queries, err := parseQueries(raw)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen", queries[0].Text)
}
