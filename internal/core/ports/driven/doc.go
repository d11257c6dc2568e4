// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - VectorStore: Chunk persistence with similarity, keyword and filtered access
//   - EmbeddingService: Generates 1536-d vectors for chunks and queries
//   - LLMService: Generation calls used by synthesis
//   - Chunker: Splits documents into bounded texts
//   - NormaliserRegistry: Routes uploaded files to a text extractor
//   - ConfigStore, PromptStore: Configuration and prompt templates
//
// # Optional Interfaces
//
// These can be nil - the feature that needs them is disabled:
//
//   - Reranker: Reorders the embedding-retrieved subset
//   - Transcriber: Converts audio uploads to text
//   - CalendarClient: Applies generated calendar actions
//   - DiffSource: Fetches pull request diffs
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
