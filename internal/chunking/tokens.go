package chunking

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text in the same units the chunk size budget is
// expressed in. Implementations must be deterministic.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts BPE tokens with a tiktoken encoding. This matches
// the token model embedding and generation backends bill against.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// WordCounter approximates tokens by whitespace-delimited words. Used when
// the BPE tables are unavailable and throughout the tests, where exact BPE
// boundaries would make assertions opaque.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
