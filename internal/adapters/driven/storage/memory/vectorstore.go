package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/scoring"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type docKey struct {
	tenant string
	id     string
}

type storedDocument struct {
	checksum string
	chunks   []domain.Chunk
	seq      uint64
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Similarity and keyword ranking are computed in Go over the filtered set.
type VectorStore struct {
	mu   sync.RWMutex
	docs map[docKey]*storedDocument
	seq  uint64
	now  func() time.Time
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		docs: make(map[docKey]*storedDocument),
		now:  time.Now,
	}
}

// UpsertDocument replaces all chunks of the document under one lock.
func (s *VectorStore) UpsertDocument(_ context.Context, doc domain.Document, checksum string, chunks []domain.Chunk) error {
	if doc.Tenant == "" {
		return domain.ErrMissingTenant
	}
	stored := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		if chunks[i].Tenant != doc.Tenant || chunks[i].DocumentID != doc.ID {
			return fmt.Errorf("%w: chunk %s does not belong to document %s", domain.ErrValidation, chunks[i].ID, doc.ID)
		}
		c := chunks[i]
		c.Metadata = domain.CloneMetadata(c.Metadata)
		c.Embedding = append([]float32(nil), c.Embedding...)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.now()
		}
		stored[i] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.docs[docKey{doc.Tenant, doc.ID}] = &storedDocument{
		checksum: checksum,
		chunks:   stored,
		seq:      s.seq,
	}
	return nil
}

// DocumentChecksum returns the checksum recorded for a document.
func (s *VectorStore) DocumentChecksum(_ context.Context, tenant, docID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[docKey{tenant, docID}]
	if !ok {
		return "", domain.ErrNotFound
	}
	return d.checksum, nil
}

// DeleteDocument removes a document and all its chunks.
func (s *VectorStore) DeleteDocument(_ context.Context, tenant, docID string) error {
	if tenant == "" {
		return domain.ErrMissingTenant
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{tenant, docID}
	if _, ok := s.docs[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs, key)
	return nil
}

// SimilaritySearch ranks matching chunks by cosine similarity.
func (s *VectorStore) SimilaritySearch(_ context.Context, vector []float32, filter domain.Filter, topK int) ([]domain.RetrievedItem, error) {
	chunks, err := s.match(filter)
	if err != nil {
		return nil, err
	}
	return scoring.RankBySimilarity(vector, chunks, topK)
}

// KeywordSearch ranks matching chunks with BM25.
func (s *VectorStore) KeywordSearch(_ context.Context, query string, filter domain.Filter, topK int) ([]domain.RetrievedItem, error) {
	chunks, err := s.match(filter)
	if err != nil {
		return nil, err
	}
	return scoring.RankByKeywords(query, chunks, topK), nil
}

// FilteredFetch returns matching chunks in the requested order.
func (s *VectorStore) FilteredFetch(_ context.Context, filter domain.Filter, order domain.Order, limit int) ([]domain.Chunk, error) {
	chunks, err := s.match(filter)
	if err != nil {
		return nil, err
	}
	if order.Field != "" {
		sort.SliceStable(chunks, func(i, j int) bool {
			a, b := fieldValue(&chunks[i], order.Field), fieldValue(&chunks[j], order.Field)
			if order.Desc {
				return a > b
			}
			return a < b
		})
	}
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// Count returns the number of matching chunks.
func (s *VectorStore) Count(_ context.Context, filter domain.Filter) (int, error) {
	chunks, err := s.match(filter)
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

// match returns copies of every chunk passing the filter, in insertion order.
func (s *VectorStore) match(filter domain.Filter) ([]domain.Chunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := make([]*storedDocument, 0, len(s.docs))
	for key, d := range s.docs {
		if key.tenant == filter.Tenant {
			docs = append(docs, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].seq < docs[j].seq })

	var out []domain.Chunk
	for _, d := range docs {
		for i := range d.chunks {
			if filter.Matches(&d.chunks[i]) {
				c := d.chunks[i]
				c.Metadata = domain.CloneMetadata(c.Metadata)
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// fieldValue renders a filter field of a chunk for ordering.
// Missing metadata sorts as the empty string.
func fieldValue(c *domain.Chunk, field string) string {
	switch field {
	case domain.FieldContent:
		return c.Content
	case domain.FieldTenant:
		return c.Tenant
	}
	key, _ := domain.MetaKey(field)
	if v, ok := c.Metadata[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
