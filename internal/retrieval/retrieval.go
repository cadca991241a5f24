package retrieval

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mihir1816/teaching-content-generator/internal/embedding"
	"github.com/mihir1816/teaching-content-generator/internal/querygen"
	"github.com/mihir1816/teaching-content-generator/internal/vector"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// Snippet is one fused evidence chunk, ready for context packing.
type Snippet struct {
	ChunkID   string
	Text      string
	SourceKey string
	Score     float64
}

// EvidenceSet is the fused, budgeted result of a multi-query retrieval run.
type EvidenceSet struct {
	Namespace string
	Snippets  []Snippet
}

// Config tunes the retrieval pass. Zero values fall back to defaults.
type Config struct {
	// PerQueryK is how many matches each individual query pulls.
	PerQueryK int
	// RRFK is the K constant in reciprocal rank fusion.
	RRFK int
	// Concurrency bounds parallel per-query searches.
	Concurrency int
	// StyleBudgets maps a plan style to the number of fused chunks kept.
	StyleBudgets map[string]int
	// DepthBudgets maps a depth override (1..5) to a chunk budget.
	DepthBudgets map[int]int
}

func (c Config) withDefaults() Config {
	if c.PerQueryK <= 0 {
		c.PerQueryK = 5
	}
	if c.RRFK <= 0 {
		c.RRFK = 60
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.StyleBudgets == nil {
		c.StyleBudgets = map[string]int{
			"concise":   3,
			"detailed":  8,
			"exam-prep": 5,
		}
	}
	if c.DepthBudgets == nil {
		c.DepthBudgets = map[int]int{1: 3, 2: 5, 3: 8, 4: 12, 5: 15}
	}
	return c
}

// Retriever runs the query set against a namespace and fuses the per-query
// rankings into one evidence set.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
	cfg      Config
}

func NewRetriever(embedder embedding.Embedder, index vector.Index, cfg Config) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		cfg:      cfg.withDefaults(),
	}
}

// Options steer a single retrieval run.
type Options struct {
	// Style selects the chunk budget. Ignored when Depth is set.
	Style string
	// Depth, when 1..5, overrides the style budget.
	Depth int
}

type queryRanking struct {
	// ranked chunk ids, best first
	ids  []string
	meta map[string]vector.Match
}

// Retrieve embeds every query, searches the namespace, fuses the rankings
// with reciprocal rank fusion, and trims to the budget for the run.
func (r *Retriever) Retrieve(ctx context.Context, namespace string, queries []querygen.Query, opts Options) (*EvidenceSet, error) {
	if len(queries) == 0 {
		return nil, errs.Wrapf(errs.ErrEmptyEvidence, "no retrieval queries")
	}

	rankings := make([]queryRanking, len(queries))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			vecs, err := r.embedder.Embed(gctx, []string{q.Text})
			if err != nil {
				return err
			}
			matches, err := r.index.Query(gctx, namespace, vecs[0], r.cfg.PerQueryK)
			if err != nil {
				return err
			}

			ranking := queryRanking{
				ids:  make([]string, 0, len(matches)),
				meta: make(map[string]vector.Match, len(matches)),
			}
			for _, m := range matches {
				ranking.ids = append(ranking.ids, m.ChunkID)
				ranking.meta[m.ChunkID] = m
			}
			mu.Lock()
			rankings[i] = ranking
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(rankings, r.cfg.RRFK)
	if len(fused) == 0 {
		return nil, errs.Wrapf(errs.ErrEmptyEvidence, "namespace %q returned no matches", namespace)
	}

	budget := r.budget(opts)
	if len(fused) > budget {
		fused = fused[:budget]
	}

	snippets := make([]Snippet, 0, len(fused))
	for _, f := range fused {
		match := lookupMatch(rankings, f.chunkID)
		snippets = append(snippets, Snippet{
			ChunkID:   f.chunkID,
			Text:      match.Metadata["text"],
			SourceKey: match.Metadata["source_key"],
			Score:     f.score,
		})
	}

	logger.Debug("Retrieval complete",
		zap.String("namespace", namespace),
		zap.Int("queries", len(queries)),
		zap.Int("fused", len(snippets)),
		zap.Int("budget", budget),
	)

	return &EvidenceSet{Namespace: namespace, Snippets: snippets}, nil
}

func (r *Retriever) budget(opts Options) int {
	if opts.Depth >= 1 && opts.Depth <= 5 {
		if b, ok := r.cfg.DepthBudgets[opts.Depth]; ok {
			return b
		}
	}
	if b, ok := r.cfg.StyleBudgets[opts.Style]; ok {
		return b
	}
	return r.cfg.StyleBudgets["detailed"]
}

type fusedChunk struct {
	chunkID  string
	score    float64
	bestRank int
}

// fuse merges per-query rankings with reciprocal rank fusion: each chunk
// scores the sum of 1/(k+rank) over the lists it appears in, rank counted
// from 1. Ties break toward the better single-list rank, then the smaller
// chunk id, so the fused order is stable across runs.
func fuse(rankings []queryRanking, k int) []fusedChunk {
	scores := make(map[string]*fusedChunk)
	for _, ranking := range rankings {
		for pos, id := range ranking.ids {
			rank := pos + 1
			fc, ok := scores[id]
			if !ok {
				fc = &fusedChunk{chunkID: id, bestRank: rank}
				scores[id] = fc
			}
			fc.score += 1.0 / float64(k+rank)
			if rank < fc.bestRank {
				fc.bestRank = rank
			}
		}
	}

	out := make([]fusedChunk, 0, len(scores))
	for _, fc := range scores {
		out = append(out, *fc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].bestRank != out[j].bestRank {
			return out[i].bestRank < out[j].bestRank
		}
		return out[i].chunkID < out[j].chunkID
	})
	return out
}

func lookupMatch(rankings []queryRanking, chunkID string) vector.Match {
	for _, ranking := range rankings {
		if m, ok := ranking.meta[chunkID]; ok {
			return m
		}
	}
	return vector.Match{ChunkID: chunkID}
}
