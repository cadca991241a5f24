package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds for pipeline failures. Every stage wraps its failures in
// exactly one of these so callers can tell a transient backend fault from a
// malformed generation or an empty retrieval, and react accordingly.
var (
	// ErrExtraction marks upstream text extraction failures. Not retried here.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding marks transient embedding backend faults. Retryable.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex marks transient vector index faults. Retryable.
	ErrIndex = errors.New("vector index failed")

	// ErrSchemaValidation marks LLM output that failed schema parsing after
	// the retry budget was spent. Previous valid state is never discarded.
	ErrSchemaValidation = errors.New("generated output failed schema validation")

	// ErrEmptyEvidence marks a retrieval that returned zero chunks. Surfaced
	// distinctly so callers prompt for different input instead of retrying.
	ErrEmptyEvidence = errors.New("no evidence retrieved")

	// ErrPlanState marks an operation attempted against a plan in the wrong
	// approval state (e.g. running the pipeline on an unapproved plan).
	ErrPlanState = errors.New("invalid plan state")

	// ErrNotFound marks a missing session, plan, or stored result.
	ErrNotFound = errors.New("not found")
)

// Wrap attaches a sentinel kind to err, keeping both visible to errors.Is.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Wrapf attaches a sentinel kind with a formatted message.
func Wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether err is one of the transient kinds that retry
// with backoff is allowed to re-attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbedding) || errors.Is(err, ErrIndex)
}
