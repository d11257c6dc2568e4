// Package embedder provides the pipeline stage that attaches embeddings to chunks.
package embedder

import (
	"context"
	"fmt"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor embeds every chunk's content in one batch call.
type Processor struct {
	embedder driven.EmbeddingService
}

// New creates an embedding stage.
func New(embedder driven.EmbeddingService) *Processor {
	return &Processor{embedder: embedder}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "embedder"
}

// Process sets Embedding on each chunk and tags it with the model name.
// Either every chunk gets a vector of the service's dimension or an error
// is returned.
func (p *Processor) Process(ctx context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrUpstream, len(vectors), len(chunks))
	}

	dims := p.embedder.Dimensions()
	model := p.embedder.ModelName()
	out := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		if dims > 0 && len(vectors[i]) != dims {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, len(vectors[i]), dims)
		}
		out[i] = chunks[i]
		out[i].Embedding = vectors[i]
		out[i].Metadata = domain.CloneMetadata(chunks[i].Metadata)
		out[i].Metadata[domain.MetaEmbeddingModel] = model
	}
	return out, nil
}
