package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihir1816/teaching-content-generator/internal/storage/models"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, c.InitSchema())
	t.Cleanup(func() { c.Close() })
	return c
}

func testSession(id string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:        id,
		Topic:     "Goroutines",
		Level:     "beginner",
		Style:     "concise",
		Language:  "en",
		Namespace: "file:abc",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.UpsertSession(testSession("s1")))

	got, err := c.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "Goroutines", got.Topic)
	assert.Equal(t, "file:abc", got.Namespace)

	// Upsert updates in place.
	s := testSession("s1")
	s.Style = "detailed"
	require.NoError(t, c.UpsertSession(s))
	got, err = c.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "detailed", got.Style)
}

func TestGetSessionNotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetSession("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPlanVersionsAndStatus(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.UpsertSession(testSession("s1")))

	first := &models.PlanRecord{
		Version:   "v1",
		SessionID: "s1",
		Status:    "under_review",
		Payload:   `{"topic":"Goroutines"}`,
		CreatedAt: time.Now(),
	}
	require.NoError(t, c.InsertPlan(first))

	second := &models.PlanRecord{
		Version:   "v2",
		SessionID: "s1",
		Status:    "under_review",
		Feedback:  "more depth on channels",
		Payload:   `{"topic":"Goroutines and Channels"}`,
		CreatedAt: time.Now().Add(time.Second),
	}
	require.NoError(t, c.InsertPlan(second))

	require.NoError(t, c.UpdatePlanStatus("v2", "approved"))

	got, err := c.GetPlan("v2")
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Status)
	assert.Equal(t, "more depth on channels", got.Feedback)

	history, err := c.GetPlanHistory("s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v2", history[0].Version, "history is newest first")

	assert.ErrorIs(t, c.UpdatePlanStatus("ghost", "approved"), errs.ErrNotFound)
}

func TestIngestUpsert(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.UpsertSession(testSession("s1")))

	r := &models.IngestRecord{
		Namespace:  "file:abc",
		SessionID:  "s1",
		Kind:       "file",
		SourceKey:  "abc",
		Title:      "notes.txt",
		Language:   "en",
		ChunkCount: 4,
		TokenCount: 3200,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, c.UpsertIngest(r))

	// Re-ingestion rewrites counts without a duplicate row.
	r.ChunkCount = 5
	require.NoError(t, c.UpsertIngest(r))
}

func TestContentRoundTrip(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.UpsertSession(testSession("s1")))
	require.NoError(t, c.InsertPlan(&models.PlanRecord{
		Version: "v1", SessionID: "s1", Status: "approved", Payload: "{}", CreatedAt: time.Now(),
	}))

	rec := &models.ContentRecord{
		ID:           "c1",
		SessionID:    "s1",
		PlanVersion:  "v1",
		Payload:      `{"summary":"x"}`,
		DeckPayload:  `{"title":"x"}`,
		DeckFileName: "goroutines.pptx.json",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, c.InsertContent(rec))

	got, err := c.GetContent("c1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.PlanVersion)
	assert.Equal(t, "goroutines.pptx.json", got.DeckFileName)

	_, err = c.GetContent("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
