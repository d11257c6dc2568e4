package mcp

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
)

var (
	_ driving.QueryService     = (*mockQueryService)(nil)
	_ driving.IngestionService = (*mockIngestionService)(nil)
	_ driving.DiffService      = (*mockDiffService)(nil)
)

// mockQueryService returns a canned answer and records queries.
type mockQueryService struct {
	answer    *domain.Answer
	err       error
	queries   []domain.Query
	suggested []domain.Query
}

func (m *mockQueryService) Query(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	return m.answerOrEmpty(), nil
}

func (m *mockQueryService) Suggest(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.suggested = append(m.suggested, q)
	if m.err != nil {
		return nil, m.err
	}
	return m.answerOrEmpty(), nil
}

func (m *mockQueryService) answerOrEmpty() *domain.Answer {
	if m.answer == nil {
		return &domain.Answer{State: domain.StateNoAnswer}
	}
	return m.answer
}

// mockIngestionService records ingested documents.
type mockIngestionService struct {
	docs []domain.Document
	err  error
}

func (m *mockIngestionService) Ingest(_ context.Context, doc domain.Document) error {
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *mockIngestionService) IngestBatch(_ context.Context, _ []domain.Document) *domain.IngestReport {
	return domain.NewIngestReport()
}

func (m *mockIngestionService) IngestFile(_ context.Context, _ domain.FileUpload) (*domain.IngestReport, error) {
	return domain.NewIngestReport(), nil
}

func (m *mockIngestionService) Delete(_ context.Context, _, _ string) error {
	return nil
}

// mockDiffService echoes the diff length.
type mockDiffService struct {
	summary string
	err     error
	diffs   []string
}

func (m *mockDiffService) Summarize(_ context.Context, diff string) (string, error) {
	m.diffs = append(m.diffs, diff)
	return m.summary, m.err
}

func (m *mockDiffService) SummarizePullRequest(_ context.Context, _, _ string, _ int) (string, error) {
	return m.summary, m.err
}
