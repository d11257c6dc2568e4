package driven

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// Reranker reorders items by cross-encoder relevance to a query.
// Implementations are stateless per call and have no side effects.
type Reranker interface {
	// Rerank returns items by descending relevance, truncated to topK when topK > 0.
	Rerank(ctx context.Context, query string, items []domain.RetrievedItem, topK int) ([]domain.RetrievedItem, error)
}
