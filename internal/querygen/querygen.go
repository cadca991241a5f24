package querygen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/llm"
	"github.com/mihir1816/teaching-content-generator/internal/plan"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// Intent categorizes what a retrieval query is fishing for. Spreading
// queries across intents keeps the fused evidence from collapsing onto one
// angle of the topic.
type Intent string

const (
	IntentConceptual Intent = "conceptual"
	IntentProcedural Intent = "procedural"
	IntentComparison Intent = "comparison"
)

// Query is one short retrieval query derived from an approved plan.
type Query struct {
	Text   string `json:"query"`
	Intent Intent `json:"intent"`
}

const systemPrompt = `You are an expert assistant that prepares retrieval queries for a teaching content pipeline.

Given an approved content plan, produce short, diverse search queries (at most 15 words each)
that would best retrieve relevant source chunks for retrieval-augmented generation.

Mix intents:
- "conceptual": key concept phrases and "what is ..." questions
- "procedural": "how does ... work" and step-by-step questions
- "comparison": comparison or example-based questions

Each query must stand alone and be natural English.

Output JSON ONLY with this schema:
{"queries": [{"intent": "conceptual", "query": "string"}]}`

// Generator derives a fixed-size set of retrieval queries from a plan.
type Generator struct {
	completer llm.Completer
	count     int
}

func NewGenerator(completer llm.Completer, count int) *Generator {
	if count < 3 {
		count = 8
	}
	if count > 12 {
		count = 12
	}
	return &Generator{completer: completer, count: count}
}

// Derive produces the query set for an approved plan. Duplicates (after
// normalization) trigger one full regeneration; if duplicates persist the
// smaller deduplicated set is accepted rather than failing the run.
func (g *Generator) Derive(ctx context.Context, p *plan.Plan) ([]Query, error) {
	if p == nil || !p.Approved() {
		return nil, errs.Wrapf(errs.ErrPlanState, "queries require an approved plan")
	}

	prompt := buildPrompt(p, g.count)

	var queries []Query
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := g.complete(ctx, prompt)
		if err != nil {
			return nil, err
		}

		parsed, err := parseQueries(raw)
		if err != nil {
			logger.Warn("Query output failed parsing",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		queries = dedupe(parsed)
		if len(queries) > g.count {
			queries = queries[:g.count]
		}
		if len(queries) == len(parsed) && len(queries) >= g.count && intentSpread(queries) >= 3 {
			return queries, nil
		}
		logger.Debug("Query set below target, regenerating once",
			zap.Int("attempt", attempt+1),
			zap.Int("distinct", len(queries)),
			zap.Int("target", g.count),
		)
	}

	// Accept the deduplicated set from the final attempt.
	if len(queries) == 0 {
		return nil, errs.Wrapf(errs.ErrSchemaValidation, "query generation produced no usable queries")
	}
	return queries, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.7,
		MaxTokens:    800,
	})
	if err != nil {
		return "", fmt.Errorf("query generation failed: %w", err)
	}
	return resp.Content, nil
}

func buildPrompt(p *plan.Plan, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce exactly %d queries spanning all three intents.\n\nCONTENT PLAN:\nTopic: %s\nLevel: %s\n", count, p.Topic, p.Level)
	if len(p.Objectives) > 0 {
		b.WriteString("Objectives:\n")
		for _, o := range p.Objectives {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if len(p.Subtopics) > 0 {
		b.WriteString("Subtopics:\n")
		for _, s := range p.Subtopics {
			fmt.Fprintf(&b, "- %s\n", s.Title)
		}
	}
	return b.String()
}

type queryPayload struct {
	Queries []Query `json:"queries"`
}

func parseQueries(raw string) ([]Query, error) {
	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var payload queryPayload
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return nil, fmt.Errorf("query JSON malformed: %w", err)
	}

	out := make([]Query, 0, len(payload.Queries))
	for _, q := range payload.Queries {
		text := Normalize(q.Text)
		if text == "" {
			continue
		}
		// Trim overlong queries to the word budget instead of dropping them.
		words := strings.Fields(text)
		if len(words) > 15 {
			text = strings.Join(words[:15], " ")
		}
		intent := q.Intent
		switch intent {
		case IntentConceptual, IntentProcedural, IntentComparison:
		default:
			intent = IntentConceptual
		}
		out = append(out, Query{Text: text, Intent: intent})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no queries in model output")
	}
	return out, nil
}

func dedupe(queries []Query) []Query {
	seen := make(map[string]bool, len(queries))
	out := make([]Query, 0, len(queries))
	for _, q := range queries {
		if seen[q.Text] {
			continue
		}
		seen[q.Text] = true
		out = append(out, q)
	}
	return out
}

func intentSpread(queries []Query) int {
	intents := map[Intent]bool{}
	for _, q := range queries {
		intents[q.Intent] = true
	}
	return len(intents)
}

// Normalize lowercases and collapses whitespace so duplicate detection is
// not fooled by casing or spacing.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Trim(text, `"'`)
	return strings.Join(strings.Fields(text), " ")
}
