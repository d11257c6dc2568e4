package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

func TestVectorStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.VectorStore {
		s := NewVectorStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestVectorStore_RejectsForeignChunks(t *testing.T) {
	s := NewVectorStore()
	doc, chunks := storetest.Document("acme", "d1", "c1", time.Now(), "a")
	chunks[0].Tenant = "globex"

	err := s.UpsertDocument(context.Background(), doc, "x", chunks)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.DocumentChecksum(context.Background(), "acme", "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorStore_ReturnsCopies(t *testing.T) {
	s := NewVectorStore()
	ctx := context.Background()
	doc, chunks := storetest.Document("acme", "d1", "c1", time.Now(), "a")
	assert.NoError(t, s.UpsertDocument(ctx, doc, "x", chunks))

	got, err := s.FilteredFetch(ctx, domain.NewFilter("acme"), domain.Order{}, 0)
	assert.NoError(t, err)
	got[0].Metadata["chat_id"] = "mutated"

	again, err := s.FilteredFetch(ctx, domain.NewFilter("acme"), domain.Order{}, 0)
	assert.NoError(t, err)
	assert.Equal(t, "c1", again[0].Metadata["chat_id"])
}
