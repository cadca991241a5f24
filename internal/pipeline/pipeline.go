package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/deck"
	"github.com/mihir1816/teaching-content-generator/internal/generation"
	"github.com/mihir1816/teaching-content-generator/internal/ingestion"
	"github.com/mihir1816/teaching-content-generator/internal/metrics"
	"github.com/mihir1816/teaching-content-generator/internal/plan"
	"github.com/mihir1816/teaching-content-generator/internal/querygen"
	"github.com/mihir1816/teaching-content-generator/internal/retrieval"
	"github.com/mihir1816/teaching-content-generator/internal/source"
	"github.com/mihir1816/teaching-content-generator/internal/storage/models"
	"github.com/mihir1816/teaching-content-generator/internal/storage/sqlite"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// Pipeline wires the full workflow: ingest sources, draft and approve a
// plan, derive queries, retrieve evidence, generate content, assemble the
// deck. All state is keyed by session id and persisted, so concurrent
// sessions never observe each other.
type Pipeline struct {
	store      *sqlite.Client
	ingestor   *ingestion.Ingestor
	planner    *plan.Generator
	queryGen   *querygen.Generator
	retriever  *retrieval.Retriever
	contentGen *generation.Generator
}

func New(
	store *sqlite.Client,
	ingestor *ingestion.Ingestor,
	planner *plan.Generator,
	queryGen *querygen.Generator,
	retriever *retrieval.Retriever,
	contentGen *generation.Generator,
) *Pipeline {
	return &Pipeline{
		store:      store,
		ingestor:   ingestor,
		planner:    planner,
		queryGen:   queryGen,
		retriever:  retriever,
		contentGen: contentGen,
	}
}

// SessionRequest opens a new workflow.
type SessionRequest struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Style       string `json:"style"`
	Language    string `json:"language"`
	// Depth, when 1..5, overrides the style's evidence budget.
	Depth int `json:"depth"`
}

// CreateSession persists a new session and returns its id.
func (p *Pipeline) CreateSession(req SessionRequest) (*models.Session, error) {
	if req.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if !plan.ValidLevel(req.Level) {
		return nil, fmt.Errorf("unknown level %q", req.Level)
	}
	if !plan.ValidStyle(req.Style) {
		return nil, fmt.Errorf("unknown style %q", req.Style)
	}
	if req.Depth != 0 && (req.Depth < 1 || req.Depth > 5) {
		return nil, fmt.Errorf("depth must be between 1 and 5")
	}

	now := time.Now()
	s := &models.Session{
		ID:        uuid.New().String(),
		Topic:     req.Topic,
		Level:     req.Level,
		Style:     req.Style,
		Language:  req.Language,
		Depth:     req.Depth,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.store.UpsertSession(s); err != nil {
		return nil, err
	}

	logger.Info("Session created",
		zap.String("session_id", s.ID),
		zap.String("topic", s.Topic),
		zap.String("style", s.Style),
	)
	return s, nil
}

// Ingest runs the ingestion stage for a session and records the namespace
// subsequent retrieval is scoped to.
func (p *Pipeline) Ingest(ctx context.Context, sessionID string, doc source.Document) (*ingestion.Result, error) {
	s, err := p.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := p.ingestor.Ingest(ctx, doc)
	if err != nil {
		return nil, err
	}
	metrics.PipelineDuration.WithLabelValues("ingest").Observe(time.Since(start).Seconds())
	metrics.ChunksIngested.Add(float64(res.ChunkCount))
	metrics.DocumentsIngested.WithLabelValues(string(doc.Kind)).Inc()

	s.Namespace = res.Namespace
	s.UpdatedAt = time.Now()
	if err := p.store.UpsertSession(s); err != nil {
		return nil, err
	}

	record := &models.IngestRecord{
		Namespace:  res.Namespace,
		SessionID:  sessionID,
		Kind:       string(doc.Kind),
		SourceKey:  doc.Key,
		Title:      doc.Title,
		Language:   doc.Language,
		ChunkCount: res.ChunkCount,
		TokenCount: res.TokenCount,
		CreatedAt:  time.Now(),
	}
	if err := p.store.UpsertIngest(record); err != nil {
		return nil, err
	}

	return res, nil
}

// GeneratePlan drafts the first plan version for a session.
func (p *Pipeline) GeneratePlan(ctx context.Context, sessionID, description string) (*plan.Plan, error) {
	s, err := p.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	draft, err := p.planner.Generate(ctx, plan.Request{
		Topic:       s.Topic,
		Description: description,
		Level:       s.Level,
		Style:       s.Style,
		Language:    s.Language,
	})
	if err != nil {
		return nil, err
	}

	if err := p.savePlan(sessionID, draft, ""); err != nil {
		return nil, err
	}
	return draft, nil
}

// RegeneratePlan produces a brand-new plan version from reviewer feedback.
// The previous version stays untouched in the history; only a successful
// regeneration becomes the session's current plan.
func (p *Pipeline) RegeneratePlan(ctx context.Context, sessionID, feedback string) (*plan.Plan, error) {
	current, err := p.currentPlan(sessionID)
	if err != nil {
		return nil, err
	}
	if current.Approved() {
		return nil, errs.Wrapf(errs.ErrPlanState, "approved plan cannot be revised")
	}

	next, err := p.planner.Regenerate(ctx, current, feedback)
	if err != nil {
		return nil, err
	}
	metrics.PlanRegenerations.Inc()

	if err := p.savePlan(sessionID, next, feedback); err != nil {
		return nil, err
	}
	return next, nil
}

// ApprovePlan moves the session's current plan into the approved state.
func (p *Pipeline) ApprovePlan(sessionID string) (*plan.Plan, error) {
	current, err := p.currentPlan(sessionID)
	if err != nil {
		return nil, err
	}
	if err := current.Approve(); err != nil {
		return nil, err
	}
	if err := p.store.UpdatePlanStatus(current.Version, string(current.Status)); err != nil {
		return nil, err
	}

	logger.Info("Plan approved",
		zap.String("session_id", sessionID),
		zap.String("version", current.Version),
	)
	return current, nil
}

// CurrentPlan returns the session's latest plan version.
func (p *Pipeline) CurrentPlan(sessionID string) (*plan.Plan, error) {
	return p.currentPlan(sessionID)
}

// ContentResult bundles everything a generation run produces.
type ContentResult struct {
	ContentID string              `json:"content_id"`
	Content   *generation.Content `json:"content"`
	Deck      *deck.Deck          `json:"deck"`
}

// GenerateContent runs the retrieval and generation stages against the
// session's approved plan and ingested namespace, then assembles and
// persists the deck.
func (p *Pipeline) GenerateContent(ctx context.Context, sessionID string) (*ContentResult, error) {
	s, err := p.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Namespace == "" {
		return nil, errs.Wrapf(errs.ErrEmptyEvidence, "session %s has no ingested source", sessionID)
	}

	current, err := p.currentPlan(sessionID)
	if err != nil {
		return nil, err
	}
	if !current.Approved() {
		return nil, errs.Wrapf(errs.ErrPlanState, "plan %s is not approved", current.Version)
	}

	start := time.Now()
	queries, err := p.queryGen.Derive(ctx, current)
	if err != nil {
		return nil, err
	}
	metrics.PipelineDuration.WithLabelValues("querygen").Observe(time.Since(start).Seconds())

	start = time.Now()
	evidence, err := p.retriever.Retrieve(ctx, s.Namespace, queries, retrieval.Options{
		Style: current.Style,
		Depth: s.Depth,
	})
	if err != nil {
		return nil, err
	}
	metrics.PipelineDuration.WithLabelValues("retrieval").Observe(time.Since(start).Seconds())
	metrics.RetrievalResultsCount.Observe(float64(len(evidence.Snippets)))

	start = time.Now()
	content, err := p.contentGen.Generate(ctx, current, evidence)
	if err != nil {
		return nil, err
	}
	metrics.PipelineDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())

	d := deck.Assemble(content, deck.Meta{
		Topic:    s.Topic,
		Level:    s.Level,
		Style:    s.Style,
		Language: s.Language,
	})
	metrics.DecksAssembled.Inc()

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize content: %w", err)
	}
	deckJSON, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize deck: %w", err)
	}

	record := &models.ContentRecord{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		PlanVersion:  current.Version,
		Payload:      string(contentJSON),
		DeckPayload:  string(deckJSON),
		DeckFileName: d.FileName,
		CreatedAt:    time.Now(),
	}
	if err := p.store.InsertContent(record); err != nil {
		return nil, err
	}

	logger.Info("Content pipeline complete",
		zap.String("session_id", sessionID),
		zap.String("content_id", record.ID),
		zap.Int("slides", len(d.Slides)),
	)

	return &ContentResult{
		ContentID: record.ID,
		Content:   content,
		Deck:      d,
	}, nil
}

// GetDeck loads a previously assembled deck.
func (p *Pipeline) GetDeck(contentID string) (*deck.Deck, error) {
	record, err := p.store.GetContent(contentID)
	if err != nil {
		return nil, err
	}

	var d deck.Deck
	if err := json.Unmarshal([]byte(record.DeckPayload), &d); err != nil {
		return nil, fmt.Errorf("failed to deserialize deck: %w", err)
	}
	return &d, nil
}

func (p *Pipeline) savePlan(sessionID string, draft *plan.Plan, feedback string) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to serialize plan: %w", err)
	}
	return p.store.InsertPlan(&models.PlanRecord{
		Version:   draft.Version,
		SessionID: sessionID,
		Status:    string(draft.Status),
		Feedback:  feedback,
		Payload:   string(payload),
		CreatedAt: draft.CreatedAt,
	})
}

func (p *Pipeline) currentPlan(sessionID string) (*plan.Plan, error) {
	history, err := p.store.GetPlanHistory(sessionID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, errs.Wrapf(errs.ErrNotFound, "session %s has no plan", sessionID)
	}

	var current plan.Plan
	if err := json.Unmarshal([]byte(history[0].Payload), &current); err != nil {
		return nil, fmt.Errorf("failed to deserialize plan: %w", err)
	}
	// Status lives on the record; the payload snapshot may predate approval.
	current.Status = plan.Status(history[0].Status)
	return &current, nil
}
