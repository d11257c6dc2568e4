package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
)

var (
	_ driving.IngestionService = (*mockIngestionService)(nil)
	_ driving.QueryService     = (*mockQueryService)(nil)
	_ driving.CalendarService  = (*mockCalendarService)(nil)
	_ driving.DiffService      = (*mockDiffService)(nil)
	_ driving.SettingsService  = (*mockSettingsService)(nil)
)

type mockIngestionService struct {
	docs    []domain.Document
	files   []domain.FileUpload
	deleted []string
	report  *domain.IngestReport
	err     error
}

func (m *mockIngestionService) Ingest(_ context.Context, doc domain.Document) error {
	m.docs = append(m.docs, doc)
	return m.err
}

func (m *mockIngestionService) IngestBatch(_ context.Context, docs []domain.Document) *domain.IngestReport {
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

func (m *mockIngestionService) IngestFile(_ context.Context, file domain.FileUpload) (*domain.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.files = append(m.files, file)
	report := domain.NewIngestReport()
	report.Ingested = []string{file.DocumentID()}
	return report, nil
}

func (m *mockIngestionService) Delete(_ context.Context, tenant, docID string) error {
	m.deleted = append(m.deleted, tenant+"/"+docID)
	return m.err
}

type mockQueryService struct {
	answer    *domain.Answer
	err       error
	queries   []domain.Query
	suggested []domain.Query
}

func (m *mockQueryService) Query(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.queries = append(m.queries, q)
	return m.answer, m.err
}

func (m *mockQueryService) Suggest(_ context.Context, q domain.Query) (*domain.Answer, error) {
	m.suggested = append(m.suggested, q)
	return m.answer, m.err
}

type mockCalendarService struct {
	commands []domain.CalendarCommand
	action   *domain.CalendarAction
	applied  []domain.CalendarAction
}

func (m *mockCalendarService) GenerateEvent(_ context.Context, cmd domain.CalendarCommand) (*domain.CalendarAction, error) {
	m.commands = append(m.commands, cmd)
	return m.action, nil
}

func (m *mockCalendarService) ApplyEvent(_ context.Context, action domain.CalendarAction) (string, error) {
	m.applied = append(m.applied, action)
	return "evt-1", nil
}

type mockDiffService struct {
	diffs []string
	prs   []string
}

func (m *mockDiffService) Summarize(_ context.Context, diff string) (string, error) {
	m.diffs = append(m.diffs, diff)
	return "summary of diff", nil
}

func (m *mockDiffService) SummarizePullRequest(_ context.Context, owner, repo string, number int) (string, error) {
	m.prs = append(m.prs, fmt.Sprintf("%s/%s#%d", owner, repo, number))
	return "summary of pr", nil
}

type mockSettingsService struct {
	settings domain.AppSettings
	values   map[string]any
	err      error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values:   make(map[string]any),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key string, value any) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) ConfigPath() string {
	return "/tmp/coworker/config.toml"
}

func (m *mockSettingsService) Keys() []string {
	keys := []string{keyStoreDriver, keyStoreDSN, keyStoreDataDir, keyOpenAIKey}
	sort.Strings(keys)
	return keys
}
