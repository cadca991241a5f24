package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/llm"
	"github.com/mihir1816/teaching-content-generator/internal/metrics"
	"github.com/mihir1816/teaching-content-generator/internal/plan"
	"github.com/mihir1816/teaching-content-generator/internal/retrieval"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

const systemPrompt = `You are a Classroom Coach: an expert teacher who turns source material into
clear, accurate study notes.

STRICT RULES:
- Use ONLY the supplied evidence snippets. Never invent facts.
- If the evidence does not cover a requested subtopic, say so inside that
  section instead of fabricating content.
- Every section must cite the chunk ids of the snippets it drew from.
- Reply with JSON ONLY, matching the schema exactly. No markdown fences,
  no commentary.`

const contentSchema = `{
  "topic": "string",
  "summary": "string (3-5 sentences)",
  "key_points": ["string"],
  "sections": [{"title": "string", "bullets": ["string"], "chunk_ids": ["string"]}],
  "glossary": [{"term": "string", "definition": "string"}],
  "misconceptions": [{"statement": "string", "correction": "string"}],
  "mcqs": [{"stem": "string", "options": ["exactly 4 strings"], "answer": 0, "explanation": "string"}]
}`

// contextCharBudget caps the packed evidence. Snippets are dropped from the
// tail until the budget fits, but at least one snippet always survives.
const contextCharBudget = 6000

// Config steers a generation run.
type Config struct {
	// MCQCount is how many questions to request. Zero means the default.
	MCQCount int
}

const defaultMCQCount = 8

// Generator produces schema-validated teaching content from an approved
// plan and a fused evidence set.
type Generator struct {
	completer llm.Completer
	cfg       Config
}

func NewGenerator(completer llm.Completer, cfg Config) *Generator {
	if cfg.MCQCount <= 0 {
		cfg.MCQCount = defaultMCQCount
	}
	return &Generator{completer: completer, cfg: cfg}
}

// Generate runs one content pass. A malformed or schema-violating reply is
// retried once with the validation error echoed back to the model; a second
// failure surfaces ErrSchemaValidation.
func (g *Generator) Generate(ctx context.Context, p *plan.Plan, evidence *retrieval.EvidenceSet) (*Content, error) {
	if p == nil || !p.Approved() {
		return nil, errs.Wrapf(errs.ErrPlanState, "content generation requires an approved plan")
	}
	if evidence == nil || len(evidence.Snippets) == 0 {
		return nil, errs.Wrapf(errs.ErrEmptyEvidence, "no evidence to generate from")
	}

	packed := packContext(evidence.Snippets, contextCharBudget)
	basePrompt := g.buildPrompt(p, packed)

	prompt := basePrompt
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := g.completer.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			UserPrompt:   prompt,
			Temperature:  0.4,
			MaxTokens:    4000,
		})
		if err != nil {
			return nil, fmt.Errorf("content generation failed: %w", err)
		}

		content, err := parseContent(resp.Content, p.Topic)
		if err != nil {
			lastErr = err
			if attempt == 0 {
				metrics.GenerationRetries.Inc()
			}
			logger.Warn("Content output failed validation",
				zap.Int("attempt", attempt+1),
				zap.String("plan_version", p.Version),
				zap.Error(err),
			)
			prompt = basePrompt + "\n\nYour previous reply was rejected: " + err.Error() +
				"\nProduce a corrected JSON document that satisfies the schema."
			continue
		}

		logger.Info("Content generated",
			zap.String("plan_version", p.Version),
			zap.Int("sections", len(content.Sections)),
			zap.Int("mcqs", len(content.MCQs)),
			zap.Int("snippets_used", len(packed)),
		)
		return content, nil
	}

	if errors.Is(lastErr, errs.ErrSchemaValidation) {
		return nil, lastErr
	}
	return nil, errs.Wrap(errs.ErrSchemaValidation, lastErr)
}

func (g *Generator) buildPrompt(p *plan.Plan, snippets []retrieval.Snippet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create study notes for the plan below.\n\nTopic: %s\nLevel: %s\nStyle: %s\n", p.Topic, p.Level, p.Style)
	if p.Language != "" && p.Language != "en" {
		fmt.Fprintf(&b, "Write all content in language %q.\n", p.Language)
	}
	if len(p.Objectives) > 0 {
		b.WriteString("Objectives:\n")
		for _, o := range p.Objectives {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if len(p.Subtopics) > 0 {
		b.WriteString("Subtopics to cover:\n")
		for _, s := range p.Subtopics {
			fmt.Fprintf(&b, "- %s\n", s.Title)
		}
	}

	fmt.Fprintf(&b, "\nRequirements:\n- Between %d and %d sections.\n- Exactly %d multiple choice questions, each with exactly 4 options and the answer as a 0-based index.\n- A glossary of the key terms.\n- Common misconceptions with corrections where the evidence supports them.\n",
		minSections, maxSections, g.cfg.MCQCount)

	b.WriteString("\nEVIDENCE SNIPPETS:\n")
	for _, s := range snippets {
		fmt.Fprintf(&b, "[chunk %s]\n%s\n\n", s.ChunkID, s.Text)
	}

	b.WriteString("OUTPUT SCHEMA:\n")
	b.WriteString(contentSchema)
	return b.String()
}

// packContext keeps snippets in fused order and drops from the tail once
// the character budget is exceeded. The first snippet is always kept even
// when it alone blows the budget.
func packContext(snippets []retrieval.Snippet, budget int) []retrieval.Snippet {
	if len(snippets) == 0 {
		return nil
	}
	out := []retrieval.Snippet{snippets[0]}
	used := len(snippets[0].Text)
	for _, s := range snippets[1:] {
		if used+len(s.Text) > budget {
			break
		}
		out = append(out, s)
		used += len(s.Text)
	}
	return out
}

func parseContent(raw, topic string) (*Content, error) {
	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var content Content
	if err := json.Unmarshal([]byte(doc), &content); err != nil {
		return nil, fmt.Errorf("content JSON malformed: %w", err)
	}
	if content.Topic == "" {
		content.Topic = topic
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return &content, nil
}
