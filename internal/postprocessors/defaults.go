package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/postprocessors/chunker"
	"github.com/custodia-labs/coworker/internal/postprocessors/embedder"
)

// Deps are the services the built-in processors need.
type Deps struct {
	Embedder driven.EmbeddingService

	// CodeParsers enable the code-aware strategy. Without any, every
	// document is chunked semantically.
	CodeParsers []driven.CodeParser
}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry, deps Deps) {
	r.Register("chunker", func(cfg map[string]any) (driven.PostProcessor, error) {
		return buildChunker(deps, cfg)
	})
	r.Register("embedder", func(map[string]any) (driven.PostProcessor, error) {
		if deps.Embedder == nil {
			return nil, domain.ErrEmbeddingUnavailable
		}
		return embedder.New(deps.Embedder), nil
	})
}

// DefaultStages returns the ingestion stages for the given chunker settings.
func DefaultStages(s domain.ChunkerSettings) []Stage {
	return []Stage{
		{Name: "chunker", Config: map[string]any{
			"buffer_size":           s.BufferSize,
			"breakpoint_percentile": s.BreakpointPercentile,
			"max_chunk_chars":       s.MaxChunkChars,
		}},
		{Name: "embedder"},
	}
}

// buildChunker creates the routed chunker processor from generic config.
// Supported config keys:
//   - buffer_size (int): neighbouring sentences embedded together (default: 1)
//   - breakpoint_percentile (float): distance percentile for cuts (default: 95)
//   - max_chunk_chars (int): chunk size bound (default: 2000)
func buildChunker(deps Deps, cfg map[string]any) (driven.PostProcessor, error) {
	if deps.Embedder == nil {
		return nil, fmt.Errorf("semantic chunker: %w", domain.ErrEmbeddingUnavailable)
	}

	semantic := chunker.NewSemantic(deps.Embedder, chunker.SemanticConfig{
		BufferSize:           getIntFromConfig(cfg, "buffer_size"),
		BreakpointPercentile: getFloatFromConfig(cfg, "breakpoint_percentile"),
		MaxChunkChars:        getIntFromConfig(cfg, "max_chunk_chars"),
	})

	var code *chunker.Code
	if len(deps.CodeParsers) > 0 {
		code = chunker.NewCode(semantic.MaxChunkChars(), deps.CodeParsers...)
	}

	return chunker.New(chunker.NewRouter(semantic, code)), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getFloatFromConfig is getIntFromConfig for fractional settings.
func getFloatFromConfig(cfg map[string]any, key string) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
