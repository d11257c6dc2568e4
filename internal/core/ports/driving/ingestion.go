package driving

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// IngestionService writes documents into the vector store.
type IngestionService interface {
	// Ingest chunks, embeds and upserts one document atomically.
	Ingest(ctx context.Context, doc domain.Document) error

	// IngestBatch ingests documents independently; one failure does not stop the rest.
	IngestBatch(ctx context.Context, docs []domain.Document) *domain.IngestReport

	// IngestFile extracts documents from an uploaded file and ingests them.
	IngestFile(ctx context.Context, file domain.FileUpload) (*domain.IngestReport, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, tenant, docID string) error
}
