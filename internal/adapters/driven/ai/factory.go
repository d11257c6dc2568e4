// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	openaiembed "github.com/custodia-labs/coworker/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/coworker/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/coworker/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/coworker/internal/adapters/driven/rerank"
	openaiaudio "github.com/custodia-labs/coworker/internal/adapters/driven/transcription/openai"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the AI services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Transcriber      driven.Transcriber
	Reranker         driven.Reranker // nil unless reranking is enabled.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds every AI service from settings. The embedding and LLM
// services are required; the reranker is optional.
func Init(settings *domain.AppSettings) (*InitResult, error) {
	if settings == nil || !settings.OpenAI.IsConfigured() {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrLLMUnavailable)
	}

	embedder, err := CreateEmbeddingService(settings.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	llm, err := CreateLLMService(settings.OpenAI)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	transcriber, err := CreateTranscriber(settings.OpenAI)
	if err != nil {
		embedder.Close()
		llm.Close()
		return nil, err
	}

	result := &InitResult{
		EmbeddingService: embedder,
		LLMService:       llm,
		Transcriber:      transcriber,
	}

	reranker, err := CreateReranker(settings.Retrieval)
	if err != nil {
		result.Close()
		return nil, err
	}
	if reranker != nil {
		result.Reranker = reranker
	}
	return result, nil
}

// Validate pings the embedding and LLM services.
func (r *InitResult) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := r.EmbeddingService.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w). Check OPENAI_API_KEY",
			domain.ErrEmbeddingUnavailable, err)
	}
	if err := r.LLMService.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w). Check OPENAI_API_KEY",
			domain.ErrLLMUnavailable, err)
	}
	return nil
}

// CreateEmbeddingService creates the OpenAI embedding service.
func CreateEmbeddingService(settings domain.OpenAISettings) (*openaiembed.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.EmbeddingModel,
		Dimensions: settings.Dimensions,
		RateLimit:  rateLimit(settings),
	})
}

// CreateLLMService creates the OpenAI chat completion service.
func CreateLLMService(settings domain.OpenAISettings) (*openaillm.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:    settings.APIKey,
		BaseURL:   settings.BaseURL,
		Model:     settings.ChatModel,
		RateLimit: rateLimit(settings),
	})
}

// CreateTranscriber creates the OpenAI audio transcriber.
func CreateTranscriber(settings domain.OpenAISettings) (*openaiaudio.Transcriber, error) {
	return openaiaudio.NewTranscriber(openaiaudio.Config{
		APIKey:    settings.APIKey,
		BaseURL:   settings.BaseURL,
		Model:     settings.AudioModel,
		RateLimit: rateLimit(settings),
	})
}

// CreateReranker creates the rerank client, or returns nil when reranking is off.
func CreateReranker(settings domain.RetrievalSettings) (driven.Reranker, error) {
	if !settings.RerankEnabled {
		return nil, nil
	}
	if settings.RerankURL == "" {
		return nil, fmt.Errorf("%w: retrieval.rerank_url is required when reranking is enabled",
			domain.ErrValidation)
	}
	return rerank.New(rerank.Config{
		URL:    settings.RerankURL,
		APIKey: settings.RerankAPIKey,
		Model:  settings.RerankModel,
	})
}

func rateLimit(settings domain.OpenAISettings) ratelimit.Config {
	return ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond}
}
