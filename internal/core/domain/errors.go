package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrValidation indicates a malformed request or unsupported content.
	// It is raised before any pipeline stage runs.
	ErrValidation = errors.New("validation failed")

	// ErrMissingTenant indicates a document, query or filter without a tenant.
	ErrMissingTenant = errors.New("tenant is required")

	// ErrUnsupportedType indicates a file type no extractor handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUpstream indicates the embedder, generator or store failed.
	// No internal retry is attempted.
	ErrUpstream = errors.New("upstream service error")

	// ErrSchemaValidation indicates structured output failed to parse or validate.
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrIngestion indicates a document could not be ingested.
	// Nothing from the document was persisted.
	ErrIngestion = errors.New("ingestion failed")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotImplemented indicates functionality is not available in this build.
	ErrNotImplemented = errors.New("not implemented")

	// ErrParserFailed indicates a language-aware parser could not handle a document.
	// Code chunking falls back to the generic strategy on this error only.
	ErrParserFailed = errors.New("parser failed")

	// ErrDimensionMismatch indicates vectors of different sizes were compared.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
