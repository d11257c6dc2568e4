package driven

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// Chunker splits a document into ordered chunk texts.
// An empty document yields no texts and no error.
type Chunker interface {
	// Name returns the strategy name for logging.
	Name() string

	// Split returns the chunk texts in document order.
	Split(ctx context.Context, doc *domain.Document) ([]string, error)
}

// PostProcessor processes document content to produce chunks.
// PostProcessors are chained in a pipeline (chunking, then identity stamping).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A processor that creates chunks receives nil and returns new chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// CodeParser finds top-level syntactic units (functions, types, classes)
// in source code for one or more languages.
type CodeParser interface {
	// Languages returns the language names this parser accepts.
	Languages() []string

	// Parse returns the spans of top-level units in source order.
	// Unparseable source fails with domain.ErrParserFailed.
	Parse(ctx context.Context, language string, src []byte) ([]domain.Span, error)
}
