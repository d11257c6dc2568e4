// Package domain defines the core business entities for CoWorker.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A tenant-owned text with metadata, the unit of ingestion
//   - Chunk: A bounded span of a document, the unit of embedding and retrieval
//   - Filter: A tenant-scoped conjunction of metadata conditions
//   - RetrievedItem: A chunk returned by one retrieval source
//   - AssembledContext: Formatted blocks handed to synthesis
//   - RequestState: Lifecycle of a query request
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
