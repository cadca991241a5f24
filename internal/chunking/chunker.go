package chunking

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Chunk is a bounded segment of source text with a deterministic identity.
// The ID is a hash of (source key, sequence, text), so re-chunking identical
// input yields byte-identical chunks and ingestion stays idempotent.
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
	SourceKey  string `json:"source_key"`
	Sequence   int    `json:"sequence"`
}

// Config bounds chunk sizes in tokens. Target is what the splitter aims
// for, Overlap is carried from the tail of each chunk into the next, and
// Min/Max are hard bounds the output respects.
type Config struct {
	TargetTokens  int
	OverlapTokens int
	MinTokens     int
	MaxTokens     int
}

func DefaultConfig() Config {
	return Config{
		TargetTokens:  800,
		OverlapTokens: 160,
		MinTokens:     600,
		MaxTokens:     1000,
	}
}

// Splitter turns normalized source text into overlapping token-bounded
// chunks, splitting on a paragraph, then sentence, then word hierarchy so a
// boundary never lands inside a token unit.
type Splitter struct {
	cfg     Config
	counter TokenCounter
}

func NewSplitter(cfg Config, counter TokenCounter) *Splitter {
	if cfg.TargetTokens <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.OverlapTokens >= cfg.TargetTokens {
		cfg.OverlapTokens = cfg.TargetTokens / 5
	}
	return &Splitter{cfg: cfg, counter: counter}
}

type unit struct {
	text   string
	tokens int
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// Split chunks text for the given source key. Empty input yields no chunks;
// input below the minimum chunk size yields exactly one unpadded chunk.
func (s *Splitter) Split(text, sourceKey string) []Chunk {
	normalized := normalizeParagraphs(text)
	if len(normalized) == 0 {
		return nil
	}

	units := s.buildUnits(normalized)
	if len(units) == 0 {
		return nil
	}

	var chunks []Chunk
	var cur []unit
	curTokens := 0

	flush := func() {
		if curTokens == 0 {
			return
		}
		chunks = append(chunks, s.makeChunk(cur, curTokens, sourceKey, len(chunks)))
		cur, curTokens = s.overlapTail(cur)
	}

	for _, u := range units {
		switch {
		case curTokens+u.tokens <= s.cfg.TargetTokens:
			// still inside the target budget
		case curTokens >= s.cfg.MinTokens:
			flush()
		case curTokens+u.tokens > s.cfg.MaxTokens:
			// undersized chunk, but the alternative breaches the hard max
			flush()
		}
		cur = append(cur, u)
		curTokens += u.tokens
	}
	if curTokens > 0 {
		chunks = append(chunks, s.makeChunk(cur, curTokens, sourceKey, len(chunks)))
	}

	return chunks
}

func (s *Splitter) makeChunk(units []unit, tokens int, sourceKey string, seq int) Chunk {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.text
	}
	text := strings.Join(parts, " ")
	return Chunk{
		ID:         ChunkID(sourceKey, seq, text),
		Text:       text,
		TokenCount: tokens,
		SourceKey:  sourceKey,
		Sequence:   seq,
	}
}

// overlapTail returns the trailing units carried into the next chunk,
// bounded by the configured overlap budget.
func (s *Splitter) overlapTail(units []unit) ([]unit, int) {
	if s.cfg.OverlapTokens <= 0 {
		return nil, 0
	}
	total := 0
	start := len(units)
	for i := len(units) - 1; i >= 0; i-- {
		if total+units[i].tokens > s.cfg.OverlapTokens {
			break
		}
		total += units[i].tokens
		start = i
	}
	tail := make([]unit, len(units)-start)
	copy(tail, units[start:])
	return tail, total
}

// buildUnits walks the boundary hierarchy: paragraphs that fit the target
// budget stay whole, oversized paragraphs break into sentences, and
// oversized sentences break into word windows.
func (s *Splitter) buildUnits(paragraphs []string) []unit {
	var units []unit
	for _, para := range paragraphs {
		t := s.counter.Count(para)
		if t == 0 {
			continue
		}
		if t <= s.cfg.TargetTokens {
			units = append(units, unit{text: para, tokens: t})
			continue
		}
		for _, sent := range splitSentences(para) {
			st := s.counter.Count(sent)
			if st == 0 {
				continue
			}
			if st <= s.cfg.TargetTokens {
				units = append(units, unit{text: sent, tokens: st})
				continue
			}
			units = append(units, s.wordWindows(sent)...)
		}
	}
	return units
}

func (s *Splitter) wordWindows(text string) []unit {
	words := strings.Fields(text)
	var units []unit
	var cur []string
	curTokens := 0
	for _, w := range words {
		wt := s.counter.Count(w)
		if curTokens+wt > s.cfg.TargetTokens && len(cur) > 0 {
			units = append(units, unit{text: strings.Join(cur, " "), tokens: curTokens})
			cur, curTokens = nil, 0
		}
		cur = append(cur, w)
		curTokens += wt
	}
	if len(cur) > 0 {
		units = append(units, unit{text: strings.Join(cur, " "), tokens: curTokens})
	}
	return units
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(whitespaceRun.ReplaceAllString(para, " "))
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

var sentenceFallback = regexp.MustCompile(`[^.!?]+[.!?]?`)

// splitSentences segments a paragraph into sentences, preferring prose's
// trained segmenter and falling back to punctuation splitting.
func splitSentences(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err == nil {
		sents := doc.Sentences()
		out := make([]string, 0, len(sents))
		for _, sent := range sents {
			if t := strings.TrimSpace(sent.Text); t != "" {
				out = append(out, t)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	var out []string
	for _, m := range sentenceFallback.FindAllString(text, -1) {
		if t := strings.TrimSpace(m); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ChunkID derives the deterministic chunk identifier.
func ChunkID(sourceKey string, sequence int, text string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%s", sourceKey, sequence, text)))
	return fmt.Sprintf("%x", sum)
}
