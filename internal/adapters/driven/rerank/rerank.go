// Package rerank provides a cross-encoder reranker over a Cohere-style
// /rerank HTTP endpoint (Cohere, Jina, or a self-hosted TEI server).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/custodia-labs/coworker/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

var _ driven.Reranker = (*Client)(nil)

// DefaultTimeout bounds a single rerank call.
const DefaultTimeout = 30 * time.Second

// Config holds configuration for the rerank client.
type Config struct {
	// URL is the full endpoint, e.g. https://api.cohere.com/v2/rerank (required).
	URL string

	APIKey  string
	Model   string
	Timeout time.Duration

	RateLimit ratelimit.Config
}

// Client reranks retrieved items by calling a remote cross-encoder.
type Client struct {
	client  *http.Client
	url     string
	apiKey  string
	model   string
	limiter *ratelimit.Limiter
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// New creates a rerank client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rerank: URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		limiter: ratelimit.New(cfg.RateLimit),
	}, nil
}

// Rerank returns items by descending relevance score, truncated to topK when topK > 0.
// Each returned item carries the rerank score in place of its retrieval score.
func (c *Client) Rerank(ctx context.Context, query string, items []domain.RetrievedItem, topK int) ([]domain.RetrievedItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	docs := make([]string, len(items))
	for i, item := range items {
		docs[i] = item.Chunk.Content
	}

	body, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: docs,
		TopN:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if c.limiter.Observe(resp) || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rerank: %w", domain.ErrRateLimited)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(raw))
	}

	var out rerankResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	ranked := make([]domain.RetrievedItem, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Index < 0 || r.Index >= len(items) {
			return nil, fmt.Errorf("rerank: result index %d out of range", r.Index)
		}
		item := items[r.Index]
		score := r.RelevanceScore
		item.Score = &score
		ranked = append(ranked, item)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Score > *ranked[j].Score
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
