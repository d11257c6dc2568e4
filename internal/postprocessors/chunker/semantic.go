package chunker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/scoring"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure Semantic implements the interface.
var _ driven.Chunker = (*Semantic)(nil)

// Defaults for the semantic strategy.
const (
	DefaultBufferSize           = 1
	DefaultBreakpointPercentile = 95.0
	DefaultMaxChunkChars        = 2000
)

// SemanticConfig configures breakpoint detection.
type SemanticConfig struct {
	// BufferSize is how many neighbouring sentences on each side are
	// embedded together with a sentence.
	BufferSize int

	// BreakpointPercentile selects the distance above which a cut is made.
	BreakpointPercentile float64

	// MaxChunkChars bounds every chunk; longer chunks are hard-split.
	MaxChunkChars int
}

func (c *SemanticConfig) defaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.BreakpointPercentile <= 0 || c.BreakpointPercentile > 100 {
		c.BreakpointPercentile = DefaultBreakpointPercentile
	}
	if c.MaxChunkChars <= 0 {
		c.MaxChunkChars = DefaultMaxChunkChars
	}
}

// Semantic cuts documents where adjacent sentence groups drift apart in
// embedding space.
type Semantic struct {
	embedder driven.EmbeddingService
	cfg      SemanticConfig
}

// NewSemantic creates a semantic chunker backed by embedder.
func NewSemantic(embedder driven.EmbeddingService, cfg SemanticConfig) *Semantic {
	cfg.defaults()
	return &Semantic{embedder: embedder, cfg: cfg}
}

// Name returns the strategy name.
func (s *Semantic) Name() string {
	return "semantic"
}

// MaxChunkChars returns the configured chunk bound.
func (s *Semantic) MaxChunkChars() int {
	return s.cfg.MaxChunkChars
}

// Split returns semantically coherent chunk texts in document order.
func (s *Semantic) Split(ctx context.Context, doc *domain.Document) ([]string, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	sentences := splitSentences(doc.Content)
	if len(sentences) < 2 {
		return s.bound(sentences), nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, groupSentences(sentences, s.cfg.BufferSize))
	if err != nil {
		return nil, fmt.Errorf("embed sentence groups: %w", err)
	}
	if len(vectors) != len(sentences) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d sentence groups",
			domain.ErrUpstream, len(vectors), len(sentences))
	}

	distances := make([]float64, len(vectors)-1)
	for i := range distances {
		sim, err := scoring.Cosine(vectors[i], vectors[i+1])
		if err != nil {
			return nil, err
		}
		distances[i] = 1 - sim
	}
	threshold := percentile(distances, s.cfg.BreakpointPercentile)

	var groups []string
	start := 0
	for i, d := range distances {
		if d > threshold {
			groups = append(groups, strings.Join(sentences[start:i+1], ""))
			start = i + 1
		}
	}
	groups = append(groups, strings.Join(sentences[start:], ""))

	logger.Debug("semantic: doc %s: %d sentences, %d breakpoints (threshold %.4f)",
		doc.ID, len(sentences), len(groups)-1, threshold)

	return s.bound(groups), nil
}

func (s *Semantic) bound(groups []string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, splitToLimit(g, s.cfg.MaxChunkChars)...)
	}
	return out
}

// groupSentences joins each sentence with buffer neighbours on both sides.
func groupSentences(sentences []string, buffer int) []string {
	groups := make([]string, len(sentences))
	for i := range sentences {
		lo := max(0, i-buffer)
		hi := min(len(sentences), i+buffer+1)
		groups[i] = strings.TrimSpace(strings.Join(sentences[lo:hi], ""))
	}
	return groups
}

// percentile returns the p-th percentile of values with linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
