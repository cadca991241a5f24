package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/llm"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

const systemPrompt = `You are "Curriculum Planner", an expert pedagogy designer.
Create practical, classroom-ready content plans that are clear, structured, and tailored to the audience level.

Principles:
- Be precise, teacher-friendly, and realistic about scope and time.
- Use only the information provided by the teacher (topic + optional description).
- If something is unclear or unspecified, choose sensible defaults rather than asking follow-ups.
- Output MUST be valid JSON matching the requested schema, no extra text.`

const planSchema = `Return JSON ONLY with this schema:
{
  "topic": "string",
  "objectives": ["string", "..."],
  "subtopics": [
    {
      "title": "string",
      "learning_outcomes": ["string", "..."],
      "suggested_examples": ["string", "..."]
    }
  ]
}`

// Request carries what a teacher provides when asking for a plan.
type Request struct {
	Topic       string
	Description string
	Level       string
	Style       string
	Language    string
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if !ValidLevel(r.Level) {
		return fmt.Errorf("unknown level %q", r.Level)
	}
	if !ValidStyle(r.Style) {
		return fmt.Errorf("unknown style %q", r.Style)
	}
	return nil
}

// Generator drafts plans and regenerates them from feedback. Both paths go
// through the same prompt: feedback is appended as an extra instruction, so
// there is one generation contract instead of diverging create and edit
// flows.
type Generator struct {
	completer llm.Completer
}

func NewGenerator(completer llm.Completer) *Generator {
	return &Generator{completer: completer}
}

// Generate drafts a new plan in the under-review state.
func (g *Generator) Generate(ctx context.Context, req Request) (*Plan, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return g.generate(ctx, req, "")
}

// Regenerate drafts a brand-new plan version from the previous plan's
// request parameters plus the reviewer's feedback. The previous plan is
// never modified: on failure the caller keeps it, on success it is replaced
// wholesale.
func (g *Generator) Regenerate(ctx context.Context, prev *Plan, feedback string) (*Plan, error) {
	if prev == nil {
		return nil, fmt.Errorf("no plan to regenerate")
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("feedback is required")
	}

	req := Request{
		Topic:       prev.Topic,
		Description: prev.PlannerNotes,
		Level:       prev.Level,
		Style:       prev.Style,
		Language:    prev.Language,
	}
	next, err := g.generate(ctx, req, feedback)
	if err != nil {
		return nil, err
	}

	logger.Info("Plan regenerated",
		zap.String("previous_version", prev.Version),
		zap.String("new_version", next.Version),
	)
	return next, nil
}

func (g *Generator) generate(ctx context.Context, req Request, feedback string) (*Plan, error) {
	language := req.Language
	if language == "" {
		language = "en"
	}

	prompt := buildPrompt(req, language, feedback)

	// One retry on malformed output before the failure surfaces.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := g.completer.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			UserPrompt:   prompt,
			Temperature:  0.4,
			MaxTokens:    2048,
		})
		if err != nil {
			return nil, fmt.Errorf("plan generation failed: %w", err)
		}

		p, err := parsePlan(resp.Content, req, language)
		if err != nil {
			lastErr = err
			logger.Warn("Plan output failed validation",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		return p, nil
	}

	return nil, errs.Wrap(errs.ErrSchemaValidation, lastErr)
}

func buildPrompt(req Request, language, feedback string) string {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = "none"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "LEVEL: %s\nSTYLE: %s\nLANGUAGE: %s\n\nTOPIC:\n%s\n\nTEACHER NOTES (optional):\n%s\n\n",
		req.Level, req.Style, language, req.Topic, desc)
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("- Create a coherent content plan that covers the topic above.\n")
	b.WriteString("- Include 6-10 subtopics.\n")
	b.WriteString("- Each subtopic must have: title, learning outcomes (2-4 items), and 1-3 suggested examples.\n")
	b.WriteString("- No citations, no references.\n")
	if feedback != "" {
		fmt.Fprintf(&b, "\nREVIEWER FEEDBACK (apply to this revision):\n%s\n", feedback)
	}
	b.WriteString("\n")
	b.WriteString(planSchema)
	return b.String()
}

type planPayload struct {
	Topic      string     `json:"topic"`
	Objectives []string   `json:"objectives"`
	Subtopics  []Subtopic `json:"subtopics"`
}

func parsePlan(raw string, req Request, language string) (*Plan, error) {
	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return nil, fmt.Errorf("plan JSON malformed: %w", err)
	}

	if payload.Topic == "" {
		payload.Topic = req.Topic
	}
	if len(payload.Subtopics) == 0 {
		return nil, fmt.Errorf("plan has no subtopics")
	}
	if len(payload.Subtopics) > 12 {
		return nil, fmt.Errorf("plan has %d subtopics, expected at most 12", len(payload.Subtopics))
	}
	for i, s := range payload.Subtopics {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("subtopic %d has no title", i)
		}
	}
	if len(payload.Objectives) == 0 {
		return nil, fmt.Errorf("plan has no objectives")
	}

	return &Plan{
		Version:      uuid.New().String(),
		Topic:        payload.Topic,
		Level:        req.Level,
		Style:        req.Style,
		Language:     language,
		Objectives:   payload.Objectives,
		Subtopics:    payload.Subtopics,
		PlannerNotes: req.Description,
		Status:       StatusUnderReview,
		CreatedAt:    time.Now(),
	}, nil
}
