package vector

import (
	"context"
	"time"

	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
	"github.com/mihir1816/teaching-content-generator/pkg/retry"
)

// RetryingIndex wraps an Index with bounded exponential backoff on
// transient index faults. Only errors carrying the index kind are retried;
// anything else surfaces immediately.
type RetryingIndex struct {
	inner Index
	cfg   retry.Config
}

func WithRetry(inner Index) *RetryingIndex {
	return &RetryingIndex{
		inner: inner,
		cfg: retry.Config{
			MaxAttempts:     3,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        3 * time.Second,
			Multiplier:      2.0,
			JitterFraction:  0.1,
			RetryableErrors: []error{errs.ErrIndex},
			Logger:          logger.GetLogger(),
		},
	}
}

func (r *RetryingIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	return retry.Do(ctx, r.cfg, func() error {
		return r.inner.Upsert(ctx, namespace, records)
	})
}

func (r *RetryingIndex) Query(ctx context.Context, namespace string, vec []float32, topK int) ([]Match, error) {
	return retry.DoWithResult(ctx, r.cfg, func() ([]Match, error) {
		return r.inner.Query(ctx, namespace, vec, topK)
	})
}
