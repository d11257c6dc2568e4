package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// DefaultIngestConcurrency bounds the documents of one batch processed at once.
const DefaultIngestConcurrency = 4

// IngestionService chunks, embeds and stores documents.
// Each document is written with a single UpsertDocument call, so a failure
// at any stage leaves the previously stored version untouched.
type IngestionService struct {
	store       driven.VectorStore
	pipeline    driven.PostProcessorPipeline
	normalisers driven.NormaliserRegistry
	model       string
	concurrency int
	now         func() time.Time
}

// NewIngestionService creates a new ingestion service.
// The normaliser registry is optional; without it IngestFile reports
// domain.ErrNotImplemented.
func NewIngestionService(
	store driven.VectorStore,
	pipeline driven.PostProcessorPipeline,
	normalisers driven.NormaliserRegistry,
) *IngestionService {
	return &IngestionService{
		store:       store,
		pipeline:    pipeline,
		normalisers: normalisers,
		concurrency: DefaultIngestConcurrency,
		now:         time.Now,
	}
}

// SetConcurrency changes how many batch documents are ingested in parallel.
func (s *IngestionService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// SetEmbeddingModel records the model the pipeline embeds with. It is part
// of every checksum, so switching models re-embeds unchanged documents.
func (s *IngestionService) SetEmbeddingModel(name string) {
	s.model = name
}

// Ingest chunks, embeds and upserts one document.
func (s *IngestionService) Ingest(ctx context.Context, doc domain.Document) error {
	_, err := s.ingest(ctx, doc)
	return err
}

// ingest reports whether the document was written; an unchanged document
// is skipped without calling the pipeline.
func (s *IngestionService) ingest(ctx context.Context, doc domain.Document) (bool, error) {
	if err := doc.Validate(); err != nil {
		return false, err
	}

	doc, err := prepareDocument(doc)
	if err != nil {
		return false, err
	}

	sum, err := checksum(&doc, s.model)
	if err != nil {
		return false, fmt.Errorf("%w: document %s: %w", domain.ErrIngestion, doc.ID, err)
	}

	existing, err := s.store.DocumentChecksum(ctx, doc.Tenant, doc.ID)
	switch {
	case err == nil && existing == sum:
		logger.Debug("ingest: doc %s/%s unchanged, skipping", doc.Tenant, doc.ID)
		return false, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("%w: document %s: %w: %w", domain.ErrIngestion, doc.ID, domain.ErrUpstream, err)
	}

	chunks, err := s.pipeline.Process(ctx, &doc)
	if err != nil {
		return false, fmt.Errorf("%w: document %s: %w", domain.ErrIngestion, doc.ID, err)
	}

	doc.CreatedAt = s.now()
	for i := range chunks {
		chunks[i].CreatedAt = doc.CreatedAt
	}

	if err := s.store.UpsertDocument(ctx, doc, sum, chunks); err != nil {
		return false, fmt.Errorf("%w: document %s: %w: %w", domain.ErrIngestion, doc.ID, domain.ErrUpstream, err)
	}

	logger.Debug("ingest: doc %s/%s stored as %d chunks", doc.Tenant, doc.ID, len(chunks))
	return true, nil
}

// IngestBatch ingests documents independently with bounded parallelism.
// Documents sharing an id race; the store keeps the last write.
func (s *IngestionService) IngestBatch(ctx context.Context, docs []domain.Document) *domain.IngestReport {
	logger.Section("Ingestion")
	logger.Debug("Documents: %d, concurrency: %d", len(docs), s.concurrency)

	report := domain.NewIngestReport()
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range docs {
		doc := docs[i]
		g.Go(func() error {
			written, err := s.ingest(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logger.Error("ingest: doc %s failed: %v", doc.ID, err)
				report.Failed[doc.ID] = err
			case written:
				report.Ingested = append(report.Ingested, doc.ID)
			default:
				report.Unchanged = append(report.Unchanged, doc.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Ingested %d, unchanged %d, failed %d",
		len(report.Ingested), len(report.Unchanged), len(report.Failed))
	return report
}

// IngestFile extracts documents from an uploaded file and ingests them.
// Extraction errors are returned directly; per-document failures are
// recorded in the report.
func (s *IngestionService) IngestFile(ctx context.Context, file domain.FileUpload) (*domain.IngestReport, error) {
	if s.normalisers == nil {
		return nil, fmt.Errorf("file ingestion: %w", domain.ErrNotImplemented)
	}
	if strings.TrimSpace(file.Tenant) == "" {
		return nil, fmt.Errorf("%w: file %s: %w", domain.ErrValidation, file.Name, domain.ErrMissingTenant)
	}

	docs, err := s.normalisers.Normalise(ctx, &file)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", file.Name, err)
	}
	logger.Debug("ingest: file %s produced %d documents", file.Name, len(docs))

	return s.IngestBatch(ctx, docs), nil
}

// Delete removes a document and its chunks.
func (s *IngestionService) Delete(ctx context.Context, tenant, docID string) error {
	if strings.TrimSpace(tenant) == "" {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrMissingTenant)
	}
	if strings.TrimSpace(docID) == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrValidation)
	}
	if err := s.store.DeleteDocument(ctx, tenant, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// prepareDocument copies metadata, records the chat id and content hash,
// and normalises the date so recency filters compare like with like.
func prepareDocument(doc domain.Document) (domain.Document, error) {
	doc.Metadata = domain.CloneMetadata(doc.Metadata)
	doc.Metadata[domain.MetaContentHash] = domain.ContentHash(doc.Content)
	if doc.ChatID != "" {
		doc.Metadata[domain.MetaChatID] = doc.ChatID
	}
	if raw, ok := doc.Metadata[domain.MetaDate]; ok && raw != nil {
		date, err := domain.NormaliseDate(raw)
		if err != nil {
			return doc, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		doc.Metadata[domain.MetaDate] = date
	}
	return doc, nil
}

// checksum fingerprints content, metadata and the embedding model.
// json.Marshal sorts map keys, so equal metadata always hashes the same.
func checksum(doc *domain.Document, model string) (string, error) {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(doc.Content))
	h.Write([]byte{0})
	h.Write(meta)
	h.Write([]byte{0})
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil)), nil
}
