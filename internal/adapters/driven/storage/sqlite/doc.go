// Package sqlite provides a SQLite implementation of driven.VectorStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Chunk text is indexed by an FTS5 table ranked with bm25; embeddings are stored
// as little-endian float32 blobs and ranked by cosine similarity in Go.
//
// # Data Location
//
// By default, the database is stored at ~/.coworker/data/coworker.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
