// Package postgres provides a PostgreSQL + pgvector implementation of
// driven.VectorStore.
//
// Similarity search uses the pgvector cosine distance operator (<=>) over an
// HNSW index. Keyword search ranks a generated tsvector column with ts_rank.
// Metadata lives in a JSONB column and filters compare metadata->>key as text.
//
// The connection string usually comes from DOCUMENT_DATABASE_URL.
package postgres
