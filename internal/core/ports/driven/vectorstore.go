package driven

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// VectorStore persists chunks and serves the three retrieval paths.
// Every read takes a domain.Filter and must reject filters without a tenant
// (domain.ErrMissingTenant) and never return rows of another tenant.
type VectorStore interface {
	// UpsertDocument atomically replaces every chunk of the document.
	// Either all chunks are written or none are.
	UpsertDocument(ctx context.Context, doc domain.Document, checksum string, chunks []domain.Chunk) error

	// DocumentChecksum returns the checksum recorded for a document.
	// Returns domain.ErrNotFound if the document was never ingested.
	DocumentChecksum(ctx context.Context, tenant, docID string) (string, error)

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, tenant, docID string) error

	// SimilaritySearch ranks chunks by descending cosine similarity.
	SimilaritySearch(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]domain.RetrievedItem, error)

	// KeywordSearch ranks chunks by lexical relevance.
	KeywordSearch(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.RetrievedItem, error)

	// FilteredFetch returns chunks matching the filter exactly.
	// A zero Order keeps insertion order; limit <= 0 means no limit.
	FilteredFetch(ctx context.Context, filter domain.Filter, order domain.Order, limit int) ([]domain.Chunk, error)

	// Count returns the number of chunk rows matching the filter.
	Count(ctx context.Context, filter domain.Filter) (int, error)

	// Close releases the underlying connection or pool.
	Close() error
}
