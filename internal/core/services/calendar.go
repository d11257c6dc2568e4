package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure CalendarService implements the interface.
var _ driving.CalendarService = (*CalendarService)(nil)

// CalendarService turns a natural language command into one calendar action.
type CalendarService struct {
	retrieval   driving.RetrievalService
	synthesizer *ResponseSynthesizer
	prompts     driven.PromptStore
	client      driven.CalendarClient
	settings    domain.AppSettings
	now         func() time.Time
}

// NewCalendarService creates a new calendar service.
// The calendar client is optional; without it ApplyEvent is unavailable.
func NewCalendarService(
	retrieval driving.RetrievalService,
	synthesizer *ResponseSynthesizer,
	prompts driven.PromptStore,
	client driven.CalendarClient,
	settings domain.AppSettings,
) *CalendarService {
	return &CalendarService{
		retrieval:   retrieval,
		synthesizer: synthesizer,
		prompts:     prompts,
		client:      client,
		settings:    settings,
		now:         time.Now,
	}
}

// GenerateEvent asks the model for a structured calendar action grounded in
// the user's calendars, existing events, recent chat context and the latest
// messages of the chat.
func (s *CalendarService) GenerateEvent(ctx context.Context, cmd domain.CalendarCommand) (*domain.CalendarAction, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	logger.Section("Calendar Event")

	meta := domain.CloneMetadata(cmd.Metadata)
	if _, ok := meta[domain.MetaDate]; !ok {
		meta[domain.MetaDate] = domain.FormatDate(s.now())
	}
	chatID, _ := meta[domain.MetaChatID].(string)

	cfg := s.settings.Retrieval
	req := domain.RetrievalRequest{
		Query:            cmd.Command,
		Tenant:           cmd.Tenant,
		ChatID:           chatID,
		ExcludeQueryText: cfg.ExcludeQueryText,
	}
	if cfg.ContextWindow > 0 {
		req.Since = s.now().Add(-cfg.ContextWindow)
	}
	items, err := s.retrieval.Context(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("calendar context: %w", err)
	}
	history, err := s.retrieval.ChatHistory(ctx, cmd.Tenant, chatID, cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("calendar history: %w", err)
	}

	assembled := NewContextAssembler().Assemble(
		domain.Query{Text: cmd.Command, Tenant: cmd.Tenant, ChatID: chatID, Metadata: meta},
		items, history,
	)
	lead, err := calendarBlocks(cmd)
	if err != nil {
		return nil, err
	}
	assembled.Blocks = append(lead, assembled.Blocks...)
	logger.Debug("Calendars: %d, events: %d, context: %d, history: %d",
		len(cmd.Calendars), len(cmd.Events), len(items), len(history.Messages))

	prompt, err := s.prompts.Load(driven.PromptCalendarSystem)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	schema, err := SchemaFor[domain.CalendarAction]()
	if err != nil {
		return nil, err
	}
	result, err := s.synthesizer.Synthesize(ctx, SynthesisRequest{
		SystemPrompt: prompt,
		Context:      assembled,
		Mode:         domain.Structured("calendar_action", schema),
		Temperature:  s.settings.Temperatures.Calendar,
	})
	if err != nil {
		return nil, err
	}

	var action domain.CalendarAction
	if err := result.Decode(&action); err != nil {
		return nil, fmt.Errorf("%w: decode calendar action: %w", domain.ErrSchemaValidation, err)
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Calendar action: %s %s", action.Action, action.Event.EventID)
	return &action, nil
}

// ApplyEvent performs the action with the configured calendar client.
func (s *CalendarService) ApplyEvent(ctx context.Context, action domain.CalendarAction) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("calendar client: %w", domain.ErrNotImplemented)
	}
	if err := action.Validate(); err != nil {
		return "", err
	}
	id, err := s.client.Apply(ctx, action)
	if err != nil {
		return "", fmt.Errorf("apply calendar action: %w", upstream(err))
	}
	return id, nil
}

func calendarBlocks(cmd domain.CalendarCommand) ([]domain.ContextBlock, error) {
	calendars, err := json.Marshal(nonNil(cmd.Calendars))
	if err != nil {
		return nil, fmt.Errorf("encode calendars: %w", err)
	}
	events, err := json.Marshal(nonNil(cmd.Events))
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return []domain.ContextBlock{
		{Kind: domain.BlockRetrieved, Text: "Calendars:\n" + string(calendars)},
		{Kind: domain.BlockRetrieved, Text: "Events:\n" + string(events)},
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
