package mcp

import (
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions and suggests replies.
	Query driving.QueryService

	// Ingestion stores documents. The ingest tool is omitted when nil.
	Ingestion driving.IngestionService

	// Diff summarises unified diffs. The summarize_diff tool is omitted when nil.
	Diff driving.DiffService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
