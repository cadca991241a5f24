package embedding

import "context"

// Embedder maps texts to fixed-dimension dense vectors, preserving input
// order. Implementations must be deterministic: embedding the same text
// twice yields the same vector, which is what keeps retrieval reproducible
// and the cache safe.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
