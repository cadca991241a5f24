package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mihir1816/teaching-content-generator/pkg/circuitbreaker"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
	"github.com/mihir1816/teaching-content-generator/pkg/retry"
)

// OpenAIEmbedder embeds texts through the OpenAI embeddings API in bounded
// batches. Batches run concurrently up to a limit and land in their input
// positions, so output order never depends on completion order.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	batchSize   int
	concurrency int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAIEmbedder(apiKey, model string, batchSize, concurrency int) *OpenAIEmbedder {
	if batchSize <= 0 {
		batchSize = 64
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	cb := circuitbreaker.NewCircuitBreaker("embedding", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.1,
		RetryableErrors: []error{errs.ErrEmbedding},
		Logger:          logger.GetLogger(),
	}

	logger.Info("Embedder initialized",
		zap.String("model", model),
		zap.Int("batch_size", batchSize),
	)

	return &OpenAIEmbedder{
		client:      openai.NewClient(apiKey),
		model:       model,
		batchSize:   batchSize,
		concurrency: concurrency,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		start := start
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		g.Go(func() error {
			return e.cb.Execute(gctx, func() error {
				return retry.Do(gctx, e.retryConfig, func() error {
					resp, err := e.client.CreateEmbeddings(
						gctx,
						openai.EmbeddingRequest{
							Input: batch,
							Model: openai.EmbeddingModel(e.model),
						},
					)
					if err != nil {
						return errs.Wrap(errs.ErrEmbedding, err)
					}
					if len(resp.Data) != len(batch) {
						return errs.Wrapf(errs.ErrEmbedding,
							"embedding count mismatch: got %d, expected %d", len(resp.Data), len(batch))
					}

					for i, data := range resp.Data {
						vec := make([]float32, len(data.Embedding))
						copy(vec, data.Embedding)
						vectors[start+i] = vec
					}
					return nil
				})
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch embedding failed: %w", err)
	}

	logger.Debug("Embeddings generated", zap.Int("count", len(vectors)))
	return vectors, nil
}
