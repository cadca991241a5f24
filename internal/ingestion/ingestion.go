package ingestion

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/chunking"
	"github.com/mihir1816/teaching-content-generator/internal/embedding"
	"github.com/mihir1816/teaching-content-generator/internal/source"
	"github.com/mihir1816/teaching-content-generator/internal/vector"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// WorkingLanguage is the language the generation stages operate in.
// Documents in other languages are translated before chunking.
const WorkingLanguage = "en"

// Result summarizes one ingestion run.
type Result struct {
	Namespace  string `json:"namespace"`
	ChunkCount int    `json:"chunk_count"`
	TokenCount int    `json:"token_count"`
	Translated bool   `json:"translated"`
}

// Ingestor runs the extract, translate, chunk, embed, upsert pipeline for
// one document. Re-ingesting the same document is idempotent: chunk ids are
// content-derived and the index upserts on them.
type Ingestor struct {
	splitter   *chunking.Splitter
	embedder   embedding.Embedder
	index      vector.Index
	translator Translator
}

func NewIngestor(splitter *chunking.Splitter, embedder embedding.Embedder, index vector.Index, translator Translator) *Ingestor {
	if translator == nil {
		translator = NoopTranslator{}
	}
	return &Ingestor{
		splitter:   splitter,
		embedder:   embedder,
		index:      index,
		translator: translator,
	}
}

func (in *Ingestor) Ingest(ctx context.Context, doc source.Document) (*Result, error) {
	if !doc.Kind.Valid() {
		return nil, errs.Wrapf(errs.ErrExtraction, "unknown source kind %q", doc.Kind)
	}
	if doc.Text == "" {
		return nil, errs.Wrapf(errs.ErrExtraction, "document %s has no text", doc.Namespace())
	}

	text := doc.Text
	translated := false
	if doc.Language != "" && doc.Language != WorkingLanguage {
		out, err := in.translator.Translate(ctx, text, doc.Language, WorkingLanguage)
		if err != nil {
			return nil, errs.Wrap(errs.ErrExtraction, err)
		}
		text = out
		translated = true
	}

	namespace := doc.Namespace()
	chunks := in.splitter.Split(text, doc.Key)
	if len(chunks) == 0 {
		return nil, errs.Wrapf(errs.ErrExtraction, "document %s produced no chunks", namespace)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := in.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]vector.Record, len(chunks))
	tokens := 0
	for i, c := range chunks {
		tokens += c.TokenCount
		records[i] = vector.Record{
			ChunkID: c.ID,
			Vector:  vectors[i],
			Metadata: map[string]string{
				"text":       c.Text,
				"source_key": c.SourceKey,
				"sequence":   strconv.Itoa(c.Sequence),
			},
		}
	}

	if err := in.index.Upsert(ctx, namespace, records); err != nil {
		return nil, err
	}

	logger.Info("Document ingested",
		zap.String("namespace", namespace),
		zap.Int("chunks", len(chunks)),
		zap.Int("tokens", tokens),
		zap.Bool("translated", translated),
	)

	return &Result{
		Namespace:  namespace,
		ChunkCount: len(chunks),
		TokenCount: tokens,
		Translated: translated,
	}, nil
}
