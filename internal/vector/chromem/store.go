package chromem

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	chromemgo "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/vector"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// Store is an embedded vector index on chromem-go for single-node and
// offline deployments. Each namespace maps to its own collection, which
// gives namespace isolation for free.
type Store struct {
	db *chromemgo.DB
}

// NewStore opens a persistent store at path, or an in-memory one when path
// is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return &Store{db: chromemgo.NewDB()}, nil
	}
	db, err := chromemgo.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem store: %w", err)
	}
	logger.Info("Chromem store opened", zap.String("path", path))
	return &Store{db: db}, nil
}

func (s *Store) Upsert(ctx context.Context, namespace string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	coll, err := s.collection(namespace)
	if err != nil {
		return err
	}

	docs := make([]chromemgo.Document, 0, len(records))
	for _, r := range records {
		meta := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		docs = append(docs, chromemgo.Document{
			ID:        r.ChunkID,
			Content:   r.Metadata["text"],
			Metadata:  meta,
			Embedding: r.Vector,
		})
	}

	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to add documents: %w", err))
	}
	return nil
}

func (s *Store) Query(ctx context.Context, namespace string, queryVec []float32, topK int) ([]vector.Match, error) {
	coll, err := s.collection(namespace)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size.
	count := coll.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := coll.QueryEmbedding(ctx, queryVec, topK, nil, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to query collection: %w", err))
	}

	matches := make([]vector.Match, 0, len(results))
	for _, res := range results {
		matches = append(matches, vector.Match{
			ChunkID:  res.ID,
			Score:    res.Similarity,
			Metadata: res.Metadata,
		})
	}
	return matches, nil
}

func (s *Store) collection(namespace string) (*chromemgo.Collection, error) {
	coll, err := s.db.GetOrCreateCollection(collectionName(namespace), nil, noEmbed)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to open collection: %w", err))
	}
	return coll, nil
}

// noEmbed guards against accidental embedding calls from inside the store;
// all vectors are computed upstream and passed in.
func noEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("store received unembedded text")
}

func collectionName(namespace string) string {
	return strings.NewReplacer(":", "-", "/", "-").Replace(namespace)
}
