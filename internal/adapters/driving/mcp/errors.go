// Package mcp provides an MCP (Model Context Protocol) server adapter for CoWorker.
// It lets AI assistants ask tenant-scoped questions, request reply
// suggestions, ingest text and summarise diffs.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
