package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService queries the vector store through three independent
// sources. Every filter it builds is scoped to the request tenant.
type RetrievalService struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	settings domain.RetrievalSettings
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	settings domain.RetrievalSettings,
) *RetrievalService {
	return &RetrievalService{
		store:    store,
		embedder: embedder,
		settings: settings,
	}
}

// Retrieve issues the embedding, keyword and context sub-queries
// concurrently and waits for all three. The first failure cancels the
// others and fails the call; there is no partial result.
func (s *RetrievalService) Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error) {
	if err := validateRetrieval(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrValidation)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Retrieval")
	logger.Debug("Tenant: %s, chat: %q, since: %v", req.Tenant, req.ChatID, req.Since)

	filter := domain.NewFilter(req.Tenant)
	result := &domain.RetrievalResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector, err := s.embedder.Embed(gctx, req.Query)
		if err != nil {
			return fmt.Errorf("%s source: embed query: %w", domain.SourceEmbedding, upstream(err))
		}
		items, err := s.store.SimilaritySearch(gctx, vector, s.similarityFilter(filter), s.settings.EmbeddingTopK)
		if err != nil {
			return fmt.Errorf("%s source: %w", domain.SourceEmbedding, upstream(err))
		}
		result.Embedding = aboveSimilarity(items, req.MinSimilarity)
		return nil
	})
	g.Go(func() error {
		items, err := s.store.KeywordSearch(gctx, req.Query, filter, s.settings.KeywordTopK)
		if err != nil {
			return fmt.Errorf("%s source: %w", domain.SourceKeyword, upstream(err))
		}
		result.Keyword = items
		return nil
	})
	g.Go(func() error {
		items, err := s.contextItems(gctx, req)
		if err != nil {
			return fmt.Errorf("%s source: %w", domain.SourceContext, err)
		}
		result.Context = items
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("Retrieval failed: %v", err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	logger.Debug("Retrieved: embedding=%d keyword=%d context=%d",
		len(result.Embedding), len(result.Keyword), len(result.Context))
	return result, nil
}

// Context runs only the context fetch.
func (s *RetrievalService) Context(ctx context.Context, req domain.RetrievalRequest) ([]domain.RetrievedItem, error) {
	if err := validateRetrieval(req); err != nil {
		return nil, err
	}
	return s.contextItems(ctx, req)
}

// ChatHistory returns the newest limit messages of a chat, oldest first.
// A message stored as several chunks counts once. Without a chat id the
// window is empty.
func (s *RetrievalService) ChatHistory(
	ctx context.Context, tenant, chatID string, limit int,
) (domain.ChatHistoryWindow, error) {
	if strings.TrimSpace(tenant) == "" {
		return domain.ChatHistoryWindow{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrMissingTenant)
	}
	if chatID == "" {
		return domain.ChatHistoryWindow{}, nil
	}

	filter := domain.NewFilter(tenant).Where(domain.MetaField(domain.MetaChatID), domain.OpEq, chatID)

	// Fetch chunks until one more message than needed has started, so the
	// oldest message kept is complete.
	fetch := 0
	if limit > 0 {
		fetch = limit * historyChunksPerMessage
	}
	for {
		chunks, err := s.store.FilteredFetch(ctx, filter, domain.ByDateDesc, fetch)
		if err != nil {
			return domain.ChatHistoryWindow{}, fmt.Errorf("chat history: %w", upstream(err))
		}
		if fetch <= 0 || len(chunks) < fetch || domain.CountMessages(chunks) > limit {
			return domain.NewChatHistoryWindow(chunks, limit), nil
		}
		fetch *= 2
	}
}

// historyChunksPerMessage sizes the first history fetch.
const historyChunksPerMessage = 4

// ContextFilter builds the filter of the context fetch: the tenant, the
// chat when given, items strictly newer than Since, and optionally not the
// chunks of a message whose text is the query itself.
func ContextFilter(req domain.RetrievalRequest) domain.Filter {
	filter := domain.NewFilter(req.Tenant)
	if req.ChatID != "" {
		filter = filter.Where(domain.MetaField(domain.MetaChatID), domain.OpEq, req.ChatID)
	}
	if !req.Since.IsZero() {
		filter = filter.NewerThan(req.Since)
	}
	if req.ExcludeQueryText && strings.TrimSpace(req.Query) != "" {
		filter = filter.Where(domain.MetaField(domain.MetaContentHash), domain.OpNotEq, domain.ContentHash(req.Query))
	}
	return filter
}

// similarityFilter restricts vector search to chunks embedded by the
// current model; vectors of different models are not comparable.
func (s *RetrievalService) similarityFilter(filter domain.Filter) domain.Filter {
	if model := s.embedder.ModelName(); model != "" {
		return filter.Where(domain.MetaField(domain.MetaEmbeddingModel), domain.OpEq, model)
	}
	return filter
}

// aboveSimilarity drops items scoring below floor. A zero floor keeps all.
func aboveSimilarity(items []domain.RetrievedItem, floor float64) []domain.RetrievedItem {
	if floor <= 0 {
		return items
	}
	kept := items[:0]
	for _, item := range items {
		if item.Score != nil && *item.Score >= floor {
			kept = append(kept, item)
		}
	}
	return kept
}

func (s *RetrievalService) contextItems(ctx context.Context, req domain.RetrievalRequest) ([]domain.RetrievedItem, error) {
	chunks, err := s.store.FilteredFetch(ctx, ContextFilter(req), domain.ByDateDesc, s.settings.ContextLimit)
	if err != nil {
		return nil, upstream(err)
	}
	items := make([]domain.RetrievedItem, len(chunks))
	for i := range chunks {
		items[i] = domain.RetrievedItem{Chunk: chunks[i], Source: domain.SourceContext}
	}
	return items, nil
}

func validateRetrieval(req domain.RetrievalRequest) error {
	if strings.TrimSpace(req.Tenant) == "" {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrMissingTenant)
	}
	return nil
}
