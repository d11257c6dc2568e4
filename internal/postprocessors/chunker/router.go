package chunker

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure Router implements the interface.
var _ driven.Chunker = (*Router)(nil)

// Router sends code documents to the code strategy and everything else to
// the generic one.
type Router struct {
	code    *Code
	generic driven.Chunker
}

// NewRouter creates a router. A nil code chunker routes everything to generic.
func NewRouter(generic driven.Chunker, code *Code) *Router {
	return &Router{code: code, generic: generic}
}

// Name returns the strategy name.
func (r *Router) Name() string {
	return "router"
}

// Split chunks doc with the code strategy when its language is supported.
// If the code parser reports failure (domain.ErrParserFailed or
// domain.ErrNotImplemented) the generic strategy runs once instead.
// Any other error is returned unchanged.
func (r *Router) Split(ctx context.Context, doc *domain.Document) ([]string, error) {
	lang := doc.Language()
	if r.code == nil || lang == "" || !r.code.Supports(lang) {
		return r.generic.Split(ctx, doc)
	}

	texts, err := r.code.Split(ctx, doc)
	if err == nil {
		return texts, nil
	}
	if !errors.Is(err, domain.ErrParserFailed) && !errors.Is(err, domain.ErrNotImplemented) {
		return nil, err
	}

	logger.Warn("chunker: %s parser failed for doc %s, falling back to %s: %v",
		strings.ToLower(lang), doc.ID, r.generic.Name(), err)
	return r.generic.Split(ctx, doc)
}
