package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// NoAnswerToken is the reply the query prompt asks for when the context
// does not contain the answer.
const NoAnswerToken = "NO_ANSWER"

// QueryService answers questions and proposes chat replies.
// Each request walks the states Pending, Retrieving, Reranking (when a
// reranker is configured), AssemblingContext and Synthesizing, and ends
// in Answered, NoAnswer or Failed.
type QueryService struct {
	retrieval   driving.RetrievalService
	reranker    driven.Reranker
	assembler   *ContextAssembler
	synthesizer *ResponseSynthesizer
	prompts     driven.PromptStore
	settings    domain.AppSettings
	now         func() time.Time
}

// NewQueryService creates a new query service. The reranker is optional.
func NewQueryService(
	retrieval driving.RetrievalService,
	reranker driven.Reranker,
	synthesizer *ResponseSynthesizer,
	prompts driven.PromptStore,
	settings domain.AppSettings,
) *QueryService {
	return &QueryService{
		retrieval:   retrieval,
		reranker:    reranker,
		assembler:   NewContextAssembler(),
		synthesizer: synthesizer,
		prompts:     prompts,
		settings:    settings,
		now:         time.Now,
	}
}

// Query returns a freeform answer, or StateNoAnswer when nothing relevant
// was retrieved or the model declined to answer.
func (s *QueryService) Query(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	logger.Section("Query")

	trace := domain.NewRequestTrace()
	assembled, retrieved, err := s.prepare(ctx, q, trace, s.settings.Retrieval.MinSimilarity)
	if err != nil {
		return failed(trace, err)
	}
	if assembled == nil {
		return finish(trace, domain.StateNoAnswer, "", 0)
	}

	prompt, err := s.prompts.Load(driven.PromptQuerySystem)
	if err != nil {
		return failed(trace, fmt.Errorf("load prompt: %w", err))
	}
	result, err := s.synthesizer.Synthesize(ctx, SynthesisRequest{
		SystemPrompt: prompt,
		Context:      assembled,
		Mode:         domain.Freeform(),
		Temperature:  s.settings.Temperatures.Query,
	})
	if err != nil {
		return failed(trace, err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" || strings.HasPrefix(text, NoAnswerToken) {
		return finish(trace, domain.StateNoAnswer, "", retrieved)
	}
	return finish(trace, domain.StateAnswered, text, retrieved)
}

// Suggest proposes a reply to the latest chat message. The reply is only
// surfaced when its score and relevance clear the configured thresholds;
// otherwise the request ends in StateNoAnswer.
func (s *QueryService) Suggest(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	logger.Section("Suggest")

	trace := domain.NewRequestTrace()
	floor := max(s.settings.Retrieval.MinSimilarity, s.settings.Suggest.MinSimilarity)
	assembled, retrieved, err := s.prepare(ctx, q, trace, floor)
	if err != nil {
		return failed(trace, err)
	}
	if assembled == nil {
		return finish(trace, domain.StateNoAnswer, "", 0)
	}

	prompt, err := s.prompts.Load(driven.PromptSuggestSystem)
	if err != nil {
		return failed(trace, fmt.Errorf("load prompt: %w", err))
	}
	schema, err := SchemaFor[domain.Suggestion]()
	if err != nil {
		return failed(trace, err)
	}
	result, err := s.synthesizer.Synthesize(ctx, SynthesisRequest{
		SystemPrompt: prompt,
		Context:      assembled,
		Mode:         domain.Structured("suggestion", schema),
		Temperature:  s.settings.Temperatures.Suggest,
	})
	if err != nil {
		return failed(trace, err)
	}

	var suggestion domain.Suggestion
	if err := result.Decode(&suggestion); err != nil {
		return failed(trace, fmt.Errorf("%w: decode suggestion: %w", domain.ErrSchemaValidation, err))
	}
	logger.Debug("Suggestion: score=%d relevance=%d", suggestion.Score, suggestion.Relevance)

	if !s.settings.Suggest.Passes(suggestion) || strings.TrimSpace(suggestion.Message) == "" {
		return finish(trace, domain.StateNoAnswer, "", retrieved)
	}
	return finish(trace, domain.StateAnswered, suggestion.Message, retrieved)
}

// prepare retrieves, optionally reranks and assembles the context.
// A nil context with a nil error means nothing was retrieved, or, with a
// positive floor, no embedding item scored at or above it.
func (s *QueryService) prepare(
	ctx context.Context, q domain.Query, trace *domain.RequestTrace, floor float64,
) (*domain.AssembledContext, int, error) {
	if err := trace.Advance(domain.StateRetrieving); err != nil {
		return nil, 0, err
	}

	chatID := q.ChatID
	if chatID == "" {
		chatID, _ = q.Metadata[domain.MetaChatID].(string)
	}
	cfg := s.settings.Retrieval
	req := domain.RetrievalRequest{
		Query:            q.Text,
		Tenant:           q.Tenant,
		ChatID:           chatID,
		ExcludeQueryText: cfg.ExcludeQueryText,
		MinSimilarity:    floor,
	}
	if cfg.ContextWindow > 0 {
		req.Since = s.now().Add(-cfg.ContextWindow)
	}

	var (
		result  *domain.RetrievalResult
		history domain.ChatHistoryWindow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = s.retrieval.Retrieve(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.retrieval.ChatHistory(gctx, q.Tenant, chatID, cfg.HistorySize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if result.Len() == 0 {
		logger.Info("Nothing retrieved for tenant %s", q.Tenant)
		return nil, 0, nil
	}
	if floor > 0 && len(result.Embedding) == 0 {
		logger.Info("No embedding match above %.2f for tenant %s", floor, q.Tenant)
		return nil, 0, nil
	}

	if s.reranker != nil && cfg.RerankEnabled && len(result.Embedding) > 0 {
		if err := trace.Advance(domain.StateReranking); err != nil {
			return nil, 0, err
		}
		reranked, err := s.reranker.Rerank(ctx, q.Text, result.Embedding, cfg.RerankTopK)
		if err != nil {
			return nil, 0, fmt.Errorf("rerank: %w", upstream(err))
		}
		logger.Debug("Reranked embedding items: %d -> %d", len(result.Embedding), len(reranked))
		result.Embedding = reranked
	}

	policy := cfg.Fusion
	if !policy.IsValid() {
		policy = domain.FusionKeepAll
	}
	items := result.Fuse(policy)

	if err := trace.Advance(domain.StateAssemblingContext); err != nil {
		return nil, 0, err
	}
	assembled := s.assembler.Assemble(q, items, history)
	logger.Debug("Assembled %d blocks from %d items and %d history messages",
		len(assembled.Blocks), len(items), len(history.Messages))

	if err := trace.Advance(domain.StateSynthesizing); err != nil {
		return nil, 0, err
	}
	return assembled, len(items), nil
}

func validateQuery(q domain.Query) error {
	if strings.TrimSpace(q.Tenant) == "" {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrMissingTenant)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question is required", domain.ErrValidation)
	}
	return nil
}

// finish moves the trace to a terminal state and builds the answer.
func finish(trace *domain.RequestTrace, state domain.RequestState, text string, retrieved int) (*domain.Answer, error) {
	if err := trace.Advance(state); err != nil {
		return failed(trace, err)
	}
	logger.Info("Request finished: %s", state)
	return &domain.Answer{
		Text:      text,
		State:     state,
		Trace:     trace.States(),
		Retrieved: retrieved,
	}, nil
}

// failed records the failure and returns it with the partial trace.
func failed(trace *domain.RequestTrace, err error) (*domain.Answer, error) {
	if !trace.Current().IsTerminal() {
		_ = trace.Advance(domain.StateFailed)
	}
	logger.Warn("Request failed: %v", err)
	return &domain.Answer{State: domain.StateFailed, Trace: trace.States()}, err
}
