package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/mihir1816/teaching-content-generator/internal/vector"
)

// Index is a process-local vector store using brute-force cosine
// similarity. It backs local runs and tests; the Milvus index is the
// production counterpart. Safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]entry
}

type entry struct {
	vector   []float32
	metadata map[string]string
}

func NewIndex() *Index {
	return &Index{namespaces: make(map[string]map[string]entry)}
}

func (i *Index) Upsert(ctx context.Context, namespace string, records []vector.Record) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	ns, ok := i.namespaces[namespace]
	if !ok {
		ns = make(map[string]entry)
		i.namespaces[namespace] = ns
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		meta := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		ns[r.ChunkID] = entry{vector: vec, metadata: meta}
	}
	return nil
}

func (i *Index) Query(ctx context.Context, namespace string, queryVec []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	ns := i.namespaces[namespace]
	matches := make([]vector.Match, 0, len(ns))
	for id, e := range ns {
		matches = append(matches, vector.Match{
			ChunkID:  id,
			Score:    cosine(queryVec, e.vector),
			Metadata: e.metadata,
		})
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].ChunkID < matches[b].ChunkID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count reports how many vectors a namespace holds.
func (i *Index) Count(namespace string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.namespaces[namespace])
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
