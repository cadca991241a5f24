package vector

import "context"

// Record is one embedded chunk to upsert under a namespace.
type Record struct {
	ChunkID  string
	Vector   []float32
	Metadata map[string]string
}

// Match is one ranked similarity search result.
type Match struct {
	ChunkID  string
	Score    float32
	Metadata map[string]string
}

// Index is a namespaced vector store. Upsert is idempotent on
// (namespace, chunk id); Query is scoped to one namespace and returns
// results ranked by descending cosine similarity. Querying an empty
// namespace returns an empty list, not an error.
type Index interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}
