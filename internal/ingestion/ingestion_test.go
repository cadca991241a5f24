package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihir1816/teaching-content-generator/internal/chunking"
	"github.com/mihir1816/teaching-content-generator/internal/source"
	"github.com/mihir1816/teaching-content-generator/internal/vector/memory"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type upperTranslator struct{ calls int }

func (u *upperTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	u.calls++
	return strings.ToUpper(text), nil
}

func newIngestor(idx *memory.Index) (*Ingestor, *stubEmbedder) {
	splitter := chunking.NewSplitter(chunking.Config{
		TargetTokens:  6,
		OverlapTokens: 2,
		MinTokens:     4,
		MaxTokens:     8,
	}, chunking.WordCounter{})
	emb := &stubEmbedder{}
	return NewIngestor(splitter, emb, idx, nil), emb
}

func longText() string {
	parts := make([]string, 12)
	for i := range parts {
		parts[i] = "alpha beta"
	}
	return strings.Join(parts, "\n\n")
}

func TestIngestStoresChunksUnderNamespace(t *testing.T) {
	idx := memory.NewIndex()
	in, emb := newIngestor(idx)

	doc := source.FromFile("notes.txt", "en", longText())
	res, err := in.Ingest(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, doc.Namespace(), res.Namespace)
	assert.Greater(t, res.ChunkCount, 1)
	assert.Equal(t, res.ChunkCount, idx.Count(doc.Namespace()))
	assert.Equal(t, 1, emb.calls)
	assert.False(t, res.Translated)
}

func TestIngestIdempotent(t *testing.T) {
	idx := memory.NewIndex()
	in, _ := newIngestor(idx)

	doc := source.FromFile("notes.txt", "en", longText())
	first, err := in.Ingest(context.Background(), doc)
	require.NoError(t, err)
	second, err := in.Ingest(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	assert.Equal(t, first.ChunkCount, idx.Count(doc.Namespace()), "re-ingestion must not duplicate chunks")
}

func TestIngestTranslatesForeignDocuments(t *testing.T) {
	idx := memory.NewIndex()
	splitter := chunking.NewSplitter(chunking.Config{TargetTokens: 6, OverlapTokens: 2, MinTokens: 4, MaxTokens: 8}, chunking.WordCounter{})
	tr := &upperTranslator{}
	in := NewIngestor(splitter, &stubEmbedder{}, idx, tr)

	doc := source.FromVideo("abc123", "Title", "de", "ein kurzer text ueber etwas interessantes")
	res, err := in.Ingest(context.Background(), doc)
	require.NoError(t, err)

	assert.True(t, res.Translated)
	assert.Equal(t, 1, tr.calls)
}

func TestIngestSkipsTranslationForWorkingLanguage(t *testing.T) {
	idx := memory.NewIndex()
	splitter := chunking.NewSplitter(chunking.Config{TargetTokens: 6, OverlapTokens: 2, MinTokens: 4, MaxTokens: 8}, chunking.WordCounter{})
	tr := &upperTranslator{}
	in := NewIngestor(splitter, &stubEmbedder{}, idx, tr)

	doc := source.FromFile("a.txt", "en", longText())
	res, err := in.Ingest(context.Background(), doc)
	require.NoError(t, err)

	assert.False(t, res.Translated)
	assert.Zero(t, tr.calls)
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	in, _ := newIngestor(memory.NewIndex())

	_, err := in.Ingest(context.Background(), source.Document{Kind: source.KindFile, Key: "x"})
	assert.ErrorIs(t, err, errs.ErrExtraction)

	_, err = in.Ingest(context.Background(), source.Document{Kind: "feed", Key: "x", Text: "hello"})
	assert.ErrorIs(t, err, errs.ErrExtraction)
}

func TestExtractArticleText(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
	<nav>menu</nav>
	<article><h1>B-Trees</h1><p>First paragraph.</p><p>Second paragraph.</p></article>
	<footer>legal</footer></body></html>`

	text, err := ExtractArticleText(html)
	require.NoError(t, err)

	assert.Contains(t, text, "B-Trees")
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.NotContains(t, text, "menu")
	assert.NotContains(t, text, "legal")
	assert.Contains(t, text, "\n\n", "block elements should become paragraph breaks")
}

func TestExtractArticleTextEmptyPage(t *testing.T) {
	_, err := ExtractArticleText(`<html><body><script>x()</script></body></html>`)
	assert.ErrorIs(t, err, errs.ErrExtraction)
}
