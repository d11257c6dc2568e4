package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/scoring"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// --- Mock implementations ---

// bagEmbedder hashes words into a fixed number of buckets, so texts sharing
// words are similar.
type bagEmbedder struct {
	err   error
	calls int
	mu    sync.Mutex
}

const bagDims = 32

func (e *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	v := make([]float32, bagDims)
	for _, term := range scoring.Terms(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		v[h.Sum32()%bagDims]++
	}
	v[0] += 0.01
	return v, nil
}

func (e *bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *bagEmbedder) Dimensions() int            { return bagDims }
func (e *bagEmbedder) ModelName() string          { return "bag" }
func (e *bagEmbedder) Ping(context.Context) error { return nil }
func (e *bagEmbedder) Close() error               { return nil }

// mockLLM answers with respond, or with a fixed reply.
type mockLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	respond func(msgs []driven.ChatMessage, opts driven.ChatOptions) (string, error)
	calls   [][]driven.ChatMessage
	opts    []driven.ChatOptions
}

func (m *mockLLM) Chat(_ context.Context, msgs []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msgs)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.respond != nil {
		return m.respond(msgs, opts)
	}
	return m.reply, nil
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return m.Chat(ctx, []driven.ChatMessage{{Role: "user", Content: prompt}}, driven.ChatOptions{
		MaxTokens:      opts.MaxTokens,
		Temperature:    opts.Temperature,
		ResponseFormat: opts.ResponseFormat,
	})
}

func (m *mockLLM) ModelName() string          { return "mock" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// lastCall returns the messages of the final call joined into one string.
func (m *mockLLM) lastCall() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return joinMessages(m.calls[len(m.calls)-1])
}

func joinMessages(msgs []driven.ChatMessage) string {
	parts := make([]string, len(msgs))
	for i, msg := range msgs {
		parts[i] = msg.Content
	}
	return strings.Join(parts, "\n")
}

// mockPrompts returns "<name> prompt" for every name.
type mockPrompts struct {
	err error
}

func (p *mockPrompts) Load(name string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return name + " prompt", nil
}

func (p *mockPrompts) Reload() {}

// mockReranker reverses its input and records what it was given.
type mockReranker struct {
	err  error
	seen []domain.RetrievedItem
}

func (r *mockReranker) Rerank(_ context.Context, _ string, items []domain.RetrievedItem, topK int) ([]domain.RetrievedItem, error) {
	r.seen = append([]domain.RetrievedItem(nil), items...)
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.RetrievedItem, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// failingStore wraps a store and fails the selected operations.
type failingStore struct {
	driven.VectorStore
	similarityErr error
	keywordErr    error
	fetchErr      error
	upsertErr     error
}

func (s *failingStore) SimilaritySearch(ctx context.Context, v []float32, f domain.Filter, k int) ([]domain.RetrievedItem, error) {
	if s.similarityErr != nil {
		return nil, s.similarityErr
	}
	return s.VectorStore.SimilaritySearch(ctx, v, f, k)
}

func (s *failingStore) KeywordSearch(ctx context.Context, q string, f domain.Filter, k int) ([]domain.RetrievedItem, error) {
	if s.keywordErr != nil {
		return nil, s.keywordErr
	}
	return s.VectorStore.KeywordSearch(ctx, q, f, k)
}

func (s *failingStore) FilteredFetch(ctx context.Context, f domain.Filter, o domain.Order, limit int) ([]domain.Chunk, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.VectorStore.FilteredFetch(ctx, f, o, limit)
}

func (s *failingStore) UpsertDocument(ctx context.Context, doc domain.Document, sum string, chunks []domain.Chunk) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.VectorStore.UpsertDocument(ctx, doc, sum, chunks)
}

// mockNormalisers returns docs for every file.
type mockNormalisers struct {
	docs []domain.Document
	err  error
}

func (m *mockNormalisers) Classify(*domain.FileUpload) domain.ContentKind { return domain.ContentPlainText }
func (m *mockNormalisers) Register(driven.Normaliser)                     {}
func (m *mockNormalisers) SupportedMIMETypes() []string                   { return []string{"text/plain"} }

func (m *mockNormalisers) Normalise(_ context.Context, _ *domain.FileUpload) ([]domain.Document, error) {
	return m.docs, m.err
}

// mockCalendarClient records applied actions.
type mockCalendarClient struct {
	applied []domain.CalendarAction
	err     error
}

func (c *mockCalendarClient) Apply(_ context.Context, action domain.CalendarAction) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.applied = append(c.applied, action)
	if action.Event.EventID != "" {
		return action.Event.EventID, nil
	}
	return "new-event", nil
}

// mockDiffSource serves one diff.
type mockDiffSource struct {
	diff string
	err  error
}

func (d *mockDiffSource) PullRequestDiff(context.Context, string, string, int) (string, error) {
	return d.diff, d.err
}

var errBoom = errors.New("boom")
