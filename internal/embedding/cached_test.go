package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	calls [][]string
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type mapCache struct {
	data map[string][]float32
}

func (m *mapCache) Get(ctx context.Context, h string) ([]float32, bool, error) {
	v, ok := m.data[h]
	return v, ok, nil
}

func (m *mapCache) Set(ctx context.Context, h string, v []float32) error {
	m.data[h] = v
	return nil
}

func TestCachedEmbedderServesHitsWithoutDelegating(t *testing.T) {
	inner := &stubEmbedder{}
	cache := &mapCache{data: map[string][]float32{}}
	e := NewCachedEmbedder(inner, cache)
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Len(t, inner.calls, 1)

	second, err := e.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached vectors must match fresh ones")
	assert.Len(t, inner.calls, 1, "full cache hit must not touch the backend")
}

func TestCachedEmbedderPreservesOrderOnPartialHit(t *testing.T) {
	inner := &stubEmbedder{}
	cache := &mapCache{data: map[string][]float32{}}
	e := NewCachedEmbedder(inner, cache)
	ctx := context.Background()

	_, err := e.Embed(ctx, []string{"alpha"})
	require.NoError(t, err)

	out, err := e.Embed(ctx, []string{"beta", "alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	// Misses went to the backend together, hits filled from cache in place.
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"beta", "gamma"}, inner.calls[1])
	assert.Equal(t, []float32{4, 1}, out[0])
	assert.Equal(t, []float32{5, 1}, out[1])
	assert.Equal(t, []float32{5, 1}, out[2])
}
