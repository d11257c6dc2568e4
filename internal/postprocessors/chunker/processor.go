package chunker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// chunkNamespace seeds deterministic chunk identities.
var chunkNamespace = uuid.MustParse("8f0c5d7e-2b1a-4c6e-9d3f-5a7b9c1e2d40")

// ChunkID returns the identity of the chunk at index in a tenant's document.
// The same inputs always produce the same ID.
func ChunkID(tenant, documentID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s/%s#%d", tenant, documentID, index))).String()
}

// Processor turns chunk texts into domain chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunker driven.Chunker
}

// New creates a chunking processor around a strategy.
func New(chunker driven.Chunker) *Processor {
	return &Processor{chunker: chunker}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Every chunk inherits the document metadata plus its document id and index.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	texts, err := p.chunker.Split(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		meta := domain.CloneMetadata(doc.Metadata)
		meta[domain.MetaDocumentID] = doc.ID
		meta[domain.MetaChunkIndex] = i

		chunks = append(chunks, domain.Chunk{
			ID:         ChunkID(doc.Tenant, doc.ID, i),
			DocumentID: doc.ID,
			Tenant:     doc.Tenant,
			Content:    text,
			Position:   i,
			Metadata:   meta,
		})
	}
	return chunks, nil
}
