// Package storetest holds behaviour tests shared by every VectorStore adapter.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Dimensions is the vector size used by the fixtures.
const Dimensions = 3

// Factory returns an empty store. The store is closed by the caller.
type Factory func(t *testing.T) driven.VectorStore

// Document builds a document with one chunk per text. Chunk i gets a unit
// vector along axis i%Dimensions and the given date.
func Document(tenant, id, chatID string, date time.Time, texts ...string) (domain.Document, []domain.Chunk) {
	doc := domain.Document{
		ID:      id,
		Tenant:  tenant,
		ChatID:  chatID,
		Content: fmt.Sprint(texts),
		Metadata: map[string]any{
			domain.MetaChatID: chatID,
			domain.MetaDate:   domain.FormatDate(date),
		},
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		vec := make([]float32, Dimensions)
		vec[i%Dimensions] = 1
		meta := domain.CloneMetadata(doc.Metadata)
		meta[domain.MetaDocumentID] = id
		meta[domain.MetaChunkIndex] = i
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s/%s#%d", tenant, id, i),
			DocumentID: id,
			Tenant:     tenant,
			Content:    text,
			Position:   i,
			Embedding:  vec,
			Metadata:   meta,
		}
	}
	return doc, chunks
}

func upsert(t *testing.T, s driven.VectorStore, doc domain.Document, checksum string, chunks []domain.Chunk) {
	t.Helper()
	require.NoError(t, s.UpsertDocument(context.Background(), doc, checksum, chunks))
}

// Run executes the shared VectorStore behaviour tests.
func Run(t *testing.T, newStore Factory) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("upsert replaces all chunks", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		doc, chunks := Document("acme", "d1", "c1", base, "one", "two", "three")
		upsert(t, s, doc, "sum-1", chunks)

		n, err := s.Count(ctx, domain.NewFilter("acme"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		doc, chunks = Document("acme", "d1", "c1", base, "only")
		upsert(t, s, doc, "sum-2", chunks)

		n, err = s.Count(ctx, domain.NewFilter("acme"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		sum, err := s.DocumentChecksum(ctx, "acme", "d1")
		require.NoError(t, err)
		assert.Equal(t, "sum-2", sum)
	})

	t.Run("checksum of unknown document", func(t *testing.T) {
		s := newStore(t)
		_, err := s.DocumentChecksum(context.Background(), "acme", "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("reads require a tenant", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		empty := domain.Filter{}

		_, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, empty, 5)
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
		_, err = s.KeywordSearch(ctx, "x", empty, 5)
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
		_, err = s.FilteredFetch(ctx, empty, domain.Order{}, 5)
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
		_, err = s.Count(ctx, empty)
		assert.ErrorIs(t, err, domain.ErrMissingTenant)
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		doc, chunks := Document("acme", "d1", "c1", base, "shared words deploy")
		upsert(t, s, doc, "a", chunks)
		doc, chunks = Document("globex", "d1", "c1", base, "shared words deploy")
		upsert(t, s, doc, "b", chunks)

		items, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, domain.NewFilter("acme"), 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "acme", items[0].Chunk.Tenant)

		items, err = s.KeywordSearch(ctx, "deploy", domain.NewFilter("globex"), 10)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "globex", items[0].Chunk.Tenant)

		fetched, err := s.FilteredFetch(ctx, domain.NewFilter("initech"), domain.Order{}, 0)
		require.NoError(t, err)
		assert.Empty(t, fetched)
	})

	t.Run("similarity ranks by cosine", func(t *testing.T) {
		s := newStore(t)
		doc, chunks := Document("acme", "d1", "c1", base, "x axis", "y axis", "z axis")
		upsert(t, s, doc, "a", chunks)

		items, err := s.SimilaritySearch(context.Background(), []float32{0.1, 0.9, 0.2}, domain.NewFilter("acme"), 2)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "y axis", items[0].Chunk.Content)
		assert.Equal(t, "z axis", items[1].Chunk.Content)
		assert.Equal(t, domain.SourceEmbedding, items[0].Source)
		require.NotNil(t, items[0].Score)
		assert.Greater(t, *items[0].Score, *items[1].Score)
	})

	t.Run("keyword search matches terms", func(t *testing.T) {
		s := newStore(t)
		doc, chunks := Document("acme", "d1", "c1", base,
			"the release train leaves on monday",
			"lunch is at noon",
			"release notes for the monday release")
		upsert(t, s, doc, "a", chunks)

		items, err := s.KeywordSearch(context.Background(), "release", domain.NewFilter("acme"), 10)
		require.NoError(t, err)
		require.Len(t, items, 2)
		for _, it := range items {
			assert.Contains(t, it.Chunk.Content, "release")
			assert.Equal(t, domain.SourceKeyword, it.Source)
		}
	})

	t.Run("filtered fetch orders by date with limit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := range 5 {
			doc, chunks := Document("acme", fmt.Sprintf("m%d", i), "c1", base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("msg %d", i))
			upsert(t, s, doc, "x", chunks)
		}
		doc, chunks := Document("acme", "other", "c2", base.Add(time.Hour), "other chat")
		upsert(t, s, doc, "x", chunks)

		filter := domain.NewFilter("acme").Where(domain.MetaField(domain.MetaChatID), domain.OpEq, "c1")
		got, err := s.FilteredFetch(ctx, filter, domain.ByDateDesc, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "msg 4", got[0].Content)
		assert.Equal(t, "msg 3", got[1].Content)
		assert.Equal(t, "msg 2", got[2].Content)
	})

	t.Run("newer than is strict", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc, chunks := Document("acme", "old", "c1", base, "at boundary")
		upsert(t, s, doc, "x", chunks)
		doc, chunks = Document("acme", "new", "c1", base.Add(time.Second), "after boundary")
		upsert(t, s, doc, "x", chunks)

		got, err := s.FilteredFetch(ctx, domain.NewFilter("acme").NewerThan(base), domain.Order{}, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "after boundary", got[0].Content)
	})

	t.Run("operators and missing keys", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc, chunks := Document("acme", "d1", "c1", base, "hello there")
		upsert(t, s, doc, "x", chunks)

		f := domain.NewFilter("acme")
		tests := []struct {
			name   string
			filter domain.Filter
			want   int
		}{
			{"content equals", f.Where(domain.FieldContent, domain.OpEq, "hello there"), 1},
			{"content not equals", f.Where(domain.FieldContent, domain.OpNotEq, "hello there"), 0},
			{"chat not equals", f.Where(domain.MetaField(domain.MetaChatID), domain.OpNotEq, "c2"), 1},
			{"date before", f.Where(domain.MetaField(domain.MetaDate), domain.OpLt, domain.FormatDate(base.Add(time.Hour))), 1},
			{"missing key equals", f.Where(domain.MetaField("absent"), domain.OpEq, "x"), 0},
			{"missing key not equals", f.Where(domain.MetaField("absent"), domain.OpNotEq, "x"), 0},
		}
		for _, tt := range tests {
			n, err := s.Count(ctx, tt.filter)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, n, tt.name)
		}
	})

	t.Run("scalar metadata compares as text", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc, chunks := Document("acme", "pinned", "c1", base, "pinned note")
		chunks[0].Metadata["pinned"] = true
		chunks[0].Metadata["votes"] = 3
		upsert(t, s, doc, "x", chunks)
		doc, chunks = Document("acme", "plain", "c1", base, "plain note")
		chunks[0].Metadata["pinned"] = false
		upsert(t, s, doc, "x", chunks)

		f := domain.NewFilter("acme")
		tests := []struct {
			name   string
			filter domain.Filter
			want   int
		}{
			{"bool true", f.Where(domain.MetaField("pinned"), domain.OpEq, "true"), 1},
			{"bool false", f.Where(domain.MetaField("pinned"), domain.OpEq, "false"), 1},
			{"bool not true", f.Where(domain.MetaField("pinned"), domain.OpNotEq, "true"), 1},
			{"bool as digit", f.Where(domain.MetaField("pinned"), domain.OpEq, "1"), 0},
			{"integer", f.Where(domain.MetaField("votes"), domain.OpEq, "3"), 1},
		}
		for _, tt := range tests {
			n, err := s.Count(ctx, tt.filter)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, n, tt.name)
		}
	})

	t.Run("delete document", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc, chunks := Document("acme", "d1", "c1", base, "a", "b")
		upsert(t, s, doc, "x", chunks)

		require.NoError(t, s.DeleteDocument(ctx, "acme", "d1"))
		n, err := s.Count(ctx, domain.NewFilter("acme"))
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = s.DocumentChecksum(ctx, "acme", "d1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.DeleteDocument(ctx, "acme", "d1"), domain.ErrNotFound)
	})

	t.Run("metadata round trips", func(t *testing.T) {
		s := newStore(t)
		doc, chunks := Document("acme", "d1", "c1", base, "a")
		upsert(t, s, doc, "x", chunks)

		got, err := s.FilteredFetch(context.Background(), domain.NewFilter("acme"), domain.Order{}, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "c1", got[0].Metadata[domain.MetaChatID])
		assert.Equal(t, "d1", got[0].Metadata[domain.MetaDocumentID])
		assert.Equal(t, "d1", got[0].DocumentID)
		assert.Equal(t, 0, got[0].Position)
	})
}
