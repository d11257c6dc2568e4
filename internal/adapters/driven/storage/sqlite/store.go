package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/scoring"
	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.coworker/data/coworker.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".coworker", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "coworker.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// UpsertDocument replaces the document row and all its chunks in one transaction.
func (s *Store) UpsertDocument(ctx context.Context, doc domain.Document, checksum string, chunks []domain.Chunk) error {
	if doc.Tenant == "" {
		return domain.ErrMissingTenant
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (tenant, id, chat_id, checksum, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant, id) DO UPDATE SET
			chat_id = excluded.chat_id,
			checksum = excluded.checksum,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.Tenant, doc.ID, doc.ChatID, checksum, string(metadataJSON), now, now)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE tenant = ? AND document_id = ?", doc.Tenant, doc.ID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (tenant, id, document_id, content, position, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if chunk.Tenant != doc.Tenant || chunk.DocumentID != doc.ID {
			return fmt.Errorf("%w: chunk %s does not belong to document %s",
				domain.ErrValidation, chunk.ID, doc.ID)
		}
		chunkMeta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx, chunk.Tenant, chunk.ID, chunk.DocumentID, chunk.Content,
			chunk.Position, float32SliceToBytes(chunk.Embedding), string(chunkMeta), createdAt.UTC()); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DocumentChecksum returns the checksum recorded for a document.
func (s *Store) DocumentChecksum(ctx context.Context, tenant, docID string) (string, error) {
	var checksum string
	err := s.db.QueryRowContext(ctx,
		"SELECT checksum FROM documents WHERE tenant = ? AND id = ?", tenant, docID).Scan(&checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying checksum: %w", err)
	}
	return checksum, nil
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, tenant, docID string) error {
	if tenant == "" {
		return domain.ErrMissingTenant
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE tenant = ? AND id = ?", tenant, docID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SimilaritySearch loads matching embeddings and ranks them by cosine similarity.
func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, filter domain.Filter, topK int) ([]domain.RetrievedItem, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}
	chunks, err := s.queryChunks(ctx, chunkColumns+" FROM chunks c WHERE "+where+" AND c.embedding IS NOT NULL", args...)
	if err != nil {
		return nil, err
	}
	return scoring.RankBySimilarity(vector, chunks, topK)
}

// KeywordSearch ranks matching chunks with FTS5 bm25.
func (s *Store) KeywordSearch(ctx context.Context, query string, filter domain.Filter, topK int) ([]domain.RetrievedItem, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = -1 // SQLite treats a negative LIMIT as unlimited
	}

	q := chunkColumns + `, -bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ? AND ` + where + `
		ORDER BY score DESC
		LIMIT ?`
	args = append([]any{match}, args...)
	args = append(args, topK)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var items []domain.RetrievedItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		var score float64
		chunk, err := scanChunk(rows, &score)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.RetrievedItem{
			Chunk:  *chunk,
			Score:  domain.ScoreOf(score),
			Source: domain.SourceKeyword,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword results: %w", err)
	}
	return items, nil
}

// FilteredFetch returns chunks matching the filter in the requested order.
func (s *Store) FilteredFetch(ctx context.Context, filter domain.Filter, order domain.Order, limit int) ([]domain.Chunk, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return nil, err
	}

	orderBy := "c.rowid"
	if order.Field != "" {
		expr, exprArgs, err := fieldExpr(order.Field)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		orderBy = expr + " " + dir + ", c.rowid"
		args = append(args, exprArgs...)
	}
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	return s.queryChunks(ctx, chunkColumns+" FROM chunks c WHERE "+where+" ORDER BY "+orderBy+" LIMIT ?", args...)
}

// Count returns the number of chunks matching the filter.
func (s *Store) Count(ctx context.Context, filter domain.Filter) (int, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks c WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func (s *Store) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ==================== Filter Translation ====================

const chunkColumns = "SELECT c.tenant, c.id, c.document_id, c.content, c.position, c.embedding, c.metadata, c.created_at"

var sqlOperators = map[domain.Operator]string{
	domain.OpEq:    "=",
	domain.OpNotEq: "!=",
	domain.OpGt:    ">",
	domain.OpLt:    "<",
}

// whereClause renders a filter as SQL over the chunks table aliased c.
// The tenant term always comes first.
func whereClause(filter domain.Filter) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	parts := []string{"c.tenant = ?"}
	args := []any{filter.Tenant}
	for _, cond := range filter.Conditions {
		expr, exprArgs, err := fieldExpr(cond.Field)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, expr+" "+sqlOperators[cond.Op]+" ?")
		args = append(args, exprArgs...)
		args = append(args, cond.Value)
	}
	return strings.Join(parts, " AND "), args, nil
}

// fieldExpr maps a filter field to a text-valued SQL expression.
// Missing metadata keys evaluate to NULL and so never match.
func fieldExpr(field string) (string, []any, error) {
	switch field {
	case domain.FieldContent:
		return "c.content", nil, nil
	case domain.FieldTenant:
		return "c.tenant", nil, nil
	}
	key, ok := domain.MetaKey(field)
	if !ok || strings.ContainsAny(key, `"\`) {
		return "", nil, fmt.Errorf("%w: unsupported filter field %q", domain.ErrValidation, field)
	}
	// JSON booleans render as true/false, not SQLite's 1/0.
	path := `$."` + key + `"`
	return "CASE json_type(c.metadata, ?) WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' " +
		"ELSE CAST(json_extract(c.metadata, ?) AS TEXT) END", []any{path, path}, nil
}

// ftsQuery turns free text into an FTS5 OR query of quoted terms,
// so user punctuation can never be parsed as query syntax.
func ftsQuery(text string) string {
	terms := scoring.Terms(text)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanChunk scans a chunk row selected with chunkColumns plus any extra columns.
func scanChunk(rows *sql.Rows, extra ...any) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON string

	dest := []any{&chunk.Tenant, &chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Position, &embeddingBlob, &metadataJSON, &chunk.CreatedAt}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
