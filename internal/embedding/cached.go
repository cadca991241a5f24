package embedding

import (
	"context"
	"crypto/md5"
	"fmt"

	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/metrics"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// VectorCache is the lookup contract the cached embedder needs; the redis
// embedding cache satisfies it.
type VectorCache interface {
	Get(ctx context.Context, textHash string) ([]float32, bool, error)
	Set(ctx context.Context, textHash string, embedding []float32) error
}

// CachedEmbedder serves embeddings from a cache and delegates misses to the
// inner embedder. Cache faults degrade to plain embedding, never to errors.
type CachedEmbedder struct {
	inner Embedder
	cache VectorCache
}

func NewCachedEmbedder(inner Embedder, cache VectorCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		vec, ok, err := e.cache.Get(ctx, textHash(text))
		if err != nil {
			logger.Warn("Embedding cache lookup failed", zap.Error(err))
			ok = false
		}
		if ok {
			vectors[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	metrics.CacheHits.WithLabelValues("embedding").Add(float64(len(texts) - len(missTexts)))
	metrics.CacheMisses.WithLabelValues("embedding").Add(float64(len(missTexts)))

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := e.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vec := range fresh {
		vectors[missIdx[j]] = vec
		if err := e.cache.Set(ctx, textHash(missTexts[j]), vec); err != nil {
			logger.Warn("Embedding cache store failed", zap.Error(err))
		}
	}

	logger.Debug("Embeddings served",
		zap.Int("total", len(texts)),
		zap.Int("cache_hits", len(texts)-len(missTexts)),
	)
	return vectors, nil
}

func textHash(text string) string {
	sum := md5.Sum([]byte(text))
	return fmt.Sprintf("%x", sum)
}
