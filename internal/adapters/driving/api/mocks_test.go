package api

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
)

var (
	_ driving.IngestionService = (*mockIngestion)(nil)
	_ driving.QueryService     = (*mockQuery)(nil)
	_ driving.CalendarService  = (*mockCalendar)(nil)
	_ driving.DiffService      = (*mockDiff)(nil)
)

type mockIngestion struct {
	docs    []domain.Document
	files   []domain.FileUpload
	deleted []string
	report  *domain.IngestReport
	err     error
}

func (m *mockIngestion) Ingest(_ context.Context, doc domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	m.docs = append(m.docs, doc)
	return m.err
}

func (m *mockIngestion) IngestBatch(_ context.Context, docs []domain.Document) *domain.IngestReport {
	m.docs = append(m.docs, docs...)
	if m.report != nil {
		return m.report
	}
	report := domain.NewIngestReport()
	for _, d := range docs {
		report.Ingested = append(report.Ingested, d.ID)
	}
	return report
}

func (m *mockIngestion) IngestFile(_ context.Context, file domain.FileUpload) (*domain.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.files = append(m.files, file)
	report := domain.NewIngestReport()
	report.Ingested = []string{file.DocumentID()}
	return report, nil
}

func (m *mockIngestion) Delete(_ context.Context, tenant, docID string) error {
	if tenant == "" {
		return domain.ErrValidation
	}
	m.deleted = append(m.deleted, tenant+"/"+docID)
	return m.err
}

type mockQuery struct {
	queries []domain.Query
	answer  *domain.Answer
	err     error
}

func (m *mockQuery) Query(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.queries = append(m.queries, q)
	return m.answer, m.err
}

func (m *mockQuery) Suggest(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.queries = append(m.queries, q)
	return m.answer, m.err
}

type mockCalendar struct {
	commands []domain.CalendarCommand
	action   *domain.CalendarAction
	applied  int
	err      error
}

func (m *mockCalendar) GenerateEvent(_ context.Context, cmd domain.CalendarCommand) (*domain.CalendarAction, error) {
	m.commands = append(m.commands, cmd)
	return m.action, m.err
}

func (m *mockCalendar) ApplyEvent(_ context.Context, action domain.CalendarAction) (string, error) {
	m.applied++
	return action.Event.EventID, nil
}

type mockDiff struct {
	diff string
	pr   string
	err  error
}

func (m *mockDiff) Summarize(_ context.Context, diff string) (string, error) {
	m.diff = diff
	return "diff summary", m.err
}

func (m *mockDiff) SummarizePullRequest(_ context.Context, owner, repo string, number int) (string, error) {
	m.pr = owner + "/" + repo
	return "pr summary", m.err
}
