package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// testDSN returns the database used for integration tests, skipping when unset.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("COWORKER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("COWORKER_TEST_PG_DSN not set")
	}
	return dsn
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := New(ctx, Config{DSN: testDSN(t), Dimensions: storetest.Dimensions})
	require.NoError(t, err)
	_, err = store.pool.Exec(ctx, "TRUNCATE documents CASCADE")
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	testDSN(t)
	storetest.Run(t, func(t *testing.T) driven.VectorStore {
		return setupTestStore(t)
	})
}

func TestStore_DimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.SimilaritySearch(ctx, []float32{1, 2}, domain.NewFilter("acme"), 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	doc, chunks := storetest.Document("acme", "d1", "c1", time.Now(), "x")
	chunks[0].Embedding = []float32{1}
	err = store.UpsertDocument(ctx, doc, "sum", chunks)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = store.DocumentChecksum(ctx, "acme", "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)

	_, err = New(context.Background(), Config{DSN: "postgres://localhost/db"})
	require.Error(t, err)
}

func TestQueryBuilder(t *testing.T) {
	q := newQuery()
	f := domain.NewFilter("acme").
		Where(domain.MetaField(domain.MetaChatID), domain.OpNotEq, "c1").
		Where(domain.FieldContent, domain.OpEq, "hi")

	where, err := q.where(f)
	require.NoError(t, err)
	assert.Equal(t, "c.tenant = $1 AND (c.metadata ->> $2::text) <> $3 AND c.content = $4", where)
	assert.Equal(t, []any{"acme", "chat_id", "c1", "hi"}, q.args)
	assert.Equal(t, " LIMIT $5", q.limit(10))
	assert.Empty(t, q.limit(0))

	_, err = newQuery().where(domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrMissingTenant)
}
