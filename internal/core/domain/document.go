package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

// Well-known metadata keys.
const (
	// MetaChatID groups chat messages into one conversation.
	MetaChatID = "chat_id"

	// MetaDate is the message or document timestamp, stored in DateLayout.
	MetaDate = "date"

	// MetaLanguage is the programming language of code documents.
	MetaLanguage = "language"

	// MetaFileName is the original file name for uploaded files.
	MetaFileName = "file_name"

	// MetaSource names the channel a document arrived from (telegram, file, api).
	MetaSource = "source"

	// MetaMIMEType is the uploaded file's MIME type without parameters.
	MetaMIMEType = "mime_type"

	// MetaContentKind is the extractor variant that produced the text.
	MetaContentKind = "format"

	// MetaDocumentID is stamped onto every chunk's metadata.
	MetaDocumentID = "_document_id"

	// MetaChunkIndex is stamped onto every chunk's metadata.
	MetaChunkIndex = "_chunk_index"

	// MetaContentHash fingerprints the whole trimmed document text, so every
	// chunk of a message can be matched against the message as a unit.
	MetaContentHash = "_content_hash"

	// MetaEmbeddingModel names the model that produced the chunk's vector.
	MetaEmbeddingModel = "_embedding_model"

	// PrivateMetaPrefix marks metadata keys that never reach model input.
	PrivateMetaPrefix = "_"
)

// DateLayout is the canonical timestamp layout for MetaDate values.
// The fraction is fixed width, so values sort lexicographically in
// chronological order down to the nanosecond.
const DateLayout = "2006-01-02T15:04:05.000000000Z"

// Document is an ingestion input owned by exactly one tenant.
// It is immutable once chunked; re-ingesting the same ID replaces it.
type Document struct {
	// ID is the caller-chosen identifier, unique within a tenant.
	ID string

	// Tenant is the partition key (company id).
	Tenant string

	// ChatID optionally links the document to a conversation.
	ChatID string

	// Content is the raw text to chunk.
	Content string

	// Metadata contains arbitrary key-value pairs inherited by every chunk.
	Metadata map[string]any

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Validate checks the fields required before any pipeline stage runs.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: document id is required", ErrValidation)
	}
	if strings.TrimSpace(d.Tenant) == "" {
		return fmt.Errorf("%w: document %s: %w", ErrValidation, d.ID, ErrMissingTenant)
	}
	return nil
}

// Language returns the code language recorded in metadata, if any.
func (d *Document) Language() string {
	if d.Metadata == nil {
		return ""
	}
	lang, _ := d.Metadata[MetaLanguage].(string)
	return lang
}

// Chunk is a bounded span of a document's text.
// Its ID is derived deterministically from the document ID and Position.
type Chunk struct {
	// ID is the deterministic chunk identity.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Tenant is copied from the parent document.
	Tenant string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// Metadata is the parent document's metadata plus chunk-specific keys.
	Metadata map[string]any

	// CreatedAt is when the chunk row was written.
	CreatedAt time.Time
}

// Date returns the MetaDate value of the chunk, or an empty string.
func (c *Chunk) Date() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetaDate].(string)
	return s
}

// IsPrivateKey reports whether a metadata key must be hidden from model input.
func IsPrivateKey(key string) bool {
	return strings.HasPrefix(key, PrivateMetaPrefix)
}

// FormatDate renders a timestamp in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NormaliseDate converts a MetaDate value into DateLayout.
// Accepted inputs are time.Time, RFC3339 strings (with or without fractional
// seconds or zone) and unix seconds.
func NormaliseDate(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return FormatDate(t), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return FormatDate(parsed), nil
			}
		}
		return "", fmt.Errorf("%w: unparseable date %q", ErrValidation, t)
	case int64:
		return FormatDate(time.Unix(t, 0)), nil
	case int:
		return FormatDate(time.Unix(int64(t), 0)), nil
	case float64:
		sec, frac := math.Modf(t)
		return FormatDate(time.Unix(int64(sec), int64(frac*1e9))), nil
	default:
		return "", fmt.Errorf("%w: unsupported date type %T", ErrValidation, v)
	}
}

// ContentHash fingerprints text for MetaContentHash. Surrounding
// whitespace is ignored.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Model returns the embedding model recorded on the chunk, or an empty string.
func (c *Chunk) Model() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetaEmbeddingModel].(string)
	return s
}

// CloneMetadata returns a shallow copy of m that is safe to extend.
func CloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Span is a half-open byte range [Start, End) of a document's content.
type Span struct {
	Start int
	End   int
}
