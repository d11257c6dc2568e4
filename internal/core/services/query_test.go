package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

type queryStack struct {
	store     *memory.VectorStore
	ingestion *IngestionService
	retrieval *RetrievalService
	query     *QueryService
	llm       *mockLLM
}

func newQueryStack(t *testing.T, reranker driven.Reranker, mutate func(*domain.AppSettings)) *queryStack {
	t.Helper()
	settings := domain.DefaultAppSettings()
	if mutate != nil {
		mutate(&settings)
	}
	emb := &bagEmbedder{}
	store := memory.NewVectorStore()
	llm := &mockLLM{}
	retrieval := NewRetrievalService(store, emb, settings.Retrieval)
	synth := NewResponseSynthesizer(llm, &mockPrompts{}, settings.Synthesis)
	return &queryStack{
		store:     store,
		ingestion: NewIngestionService(store, newPipeline(emb), nil),
		retrieval: retrieval,
		query:     NewQueryService(retrieval, reranker, synth, &mockPrompts{}, settings),
		llm:       llm,
	}
}

func withoutSimilarityFloor(s *domain.AppSettings) {
	s.Suggest.MinSimilarity = 0
}

// answerFromContext answers with the invoice due date when it is in the
// context and declines otherwise.
func answerFromContext(msgs []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	if strings.Contains(joinMessages(msgs), "Invoice #123 due March 5") {
		return "The invoice is due on March 5.", nil
	}
	return NoAnswerToken, nil
}

func TestScenarioA_TenantScopedQuery(t *testing.T) {
	st := newQueryStack(t, nil, nil)
	st.llm.respond = answerFromContext
	ctx := context.Background()

	report := st.ingestion.IngestBatch(ctx, []domain.Document{
		{ID: "D1", Tenant: "7", Content: "Invoice #123 due March 5", Metadata: map[string]any{domain.MetaDate: "2024-03-01"}},
		{ID: "D2", Tenant: "7", Content: "Meeting notes: renew contract", Metadata: map[string]any{domain.MetaDate: "2024-03-02"}},
	})
	require.True(t, report.OK(), "%v", report.Err())

	answer, err := st.query.Query(ctx, domain.Query{Text: "when is the invoice due?", Tenant: "7"})
	require.NoError(t, err)
	assert.True(t, answer.Answered())
	assert.Contains(t, answer.Text, "March 5")
	assert.Equal(t, []domain.RequestState{
		domain.StatePending,
		domain.StateRetrieving,
		domain.StateAssemblingContext,
		domain.StateSynthesizing,
		domain.StateAnswered,
	}, answer.Trace)

	calls := st.llm.callCount()
	answer, err = st.query.Query(ctx, domain.Query{Text: "when is the invoice due?", Tenant: "8"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateNoAnswer, answer.State)
	assert.Empty(t, answer.Text)
	assert.Equal(t, calls, st.llm.callCount(), "no generation without retrieved context")
}

func TestQueryService_Query_ModelDeclines(t *testing.T) {
	st := newQueryStack(t, nil, nil)
	st.llm.reply = NoAnswerToken
	require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{ID: "d", Tenant: "7", Content: "Lunch is at noon"}))

	answer, err := st.query.Query(context.Background(), domain.Query{Text: "what is the wifi password?", Tenant: "7"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateNoAnswer, answer.State)
	assert.Equal(t, domain.StateSynthesizing, answer.Trace[len(answer.Trace)-2])
}

func TestQueryService_Query_IncludesHistoryAndQueryMeta(t *testing.T) {
	st := newQueryStack(t, nil, nil)
	st.llm.reply = "ok"
	ctx := context.Background()
	now := time.Now()
	for i, text := range []string{"first message", "second message"} {
		require.NoError(t, st.ingestion.Ingest(ctx, domain.Document{
			ID: text, Tenant: "7", ChatID: "c1", Content: text,
			Metadata: map[string]any{domain.MetaDate: domain.FormatDate(now.Add(time.Duration(i) * time.Second))},
		}))
	}

	_, err := st.query.Query(ctx, domain.Query{
		Text: "summarise the chat", Tenant: "7", ChatID: "c1",
		Metadata: map[string]any{"author": "Ann", "_user_id": "u-42"},
	})
	require.NoError(t, err)

	prompt := st.llm.lastCall()
	assert.Contains(t, prompt, "author: Ann\n\nsummarise the chat")
	assert.NotContains(t, prompt, "u-42")
	first := strings.LastIndex(prompt, "first message")
	second := strings.LastIndex(prompt, "second message")
	assert.Less(t, first, second, "history is oldest first")
	assert.Less(t, second, strings.Index(prompt, "summarise the chat"), "query comes last")
}

func TestQueryService_Query_RerankEmbeddingSubsetOnly(t *testing.T) {
	reranker := &mockReranker{}
	st := newQueryStack(t, reranker, func(s *domain.AppSettings) {
		s.Retrieval.RerankEnabled = true
		s.Retrieval.RerankTopK = 1
		s.Retrieval.ContextWindow = 0
	})
	st.llm.reply = "answer"
	ctx := context.Background()
	now := domain.FormatDate(time.Now())
	require.NoError(t, st.ingestion.Ingest(ctx, domain.Document{ID: "a", Tenant: "7", Content: "invoice alpha", Metadata: map[string]any{domain.MetaDate: now}}))
	require.NoError(t, st.ingestion.Ingest(ctx, domain.Document{ID: "b", Tenant: "7", Content: "invoice beta", Metadata: map[string]any{domain.MetaDate: now}}))

	answer, err := st.query.Query(ctx, domain.Query{Text: "invoice", Tenant: "7"})
	require.NoError(t, err)
	assert.Contains(t, answer.Trace, domain.StateReranking)

	require.Len(t, reranker.seen, 2)
	for _, item := range reranker.seen {
		assert.Equal(t, domain.SourceEmbedding, item.Source)
	}
	// 1 reranked embedding item + 2 keyword + 2 context.
	assert.Equal(t, 5, answer.Retrieved)
}

func TestQueryService_Query_RerankFailure(t *testing.T) {
	st := newQueryStack(t, &mockReranker{err: errBoom}, func(s *domain.AppSettings) {
		s.Retrieval.RerankEnabled = true
	})
	require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{ID: "a", Tenant: "7", Content: "invoice"}))

	answer, err := st.query.Query(context.Background(), domain.Query{Text: "invoice", Tenant: "7"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	require.NotNil(t, answer)
	assert.Equal(t, domain.StateFailed, answer.State)
	assert.Equal(t, domain.StateReranking, answer.Trace[len(answer.Trace)-2])
}

func TestQueryService_Query_FusionDedupe(t *testing.T) {
	st := newQueryStack(t, nil, func(s *domain.AppSettings) {
		s.Retrieval.Fusion = domain.FusionDedupe
		s.Retrieval.ContextWindow = 0
	})
	st.llm.reply = "answer"
	now := domain.FormatDate(time.Now())
	require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{ID: "a", Tenant: "7", Content: "invoice", Metadata: map[string]any{domain.MetaDate: now}}))

	answer, err := st.query.Query(context.Background(), domain.Query{Text: "invoice?", Tenant: "7"})
	require.NoError(t, err)
	assert.Equal(t, 1, answer.Retrieved)
}

func TestQueryService_Query_Failures(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		st := newQueryStack(t, nil, nil)
		answer, err := st.query.Query(context.Background(), domain.Query{Text: "x"})
		assert.Nil(t, answer)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = st.query.Query(context.Background(), domain.Query{Tenant: "7"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("generation", func(t *testing.T) {
		st := newQueryStack(t, nil, nil)
		st.llm.err = errBoom
		require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{ID: "a", Tenant: "7", Content: "invoice"}))

		answer, err := st.query.Query(context.Background(), domain.Query{Text: "invoice", Tenant: "7"})
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.Equal(t, domain.StateFailed, answer.State)
		assert.Equal(t, domain.StateSynthesizing, answer.Trace[len(answer.Trace)-2])
	})

	t.Run("retrieval", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		store := &failingStore{VectorStore: memory.NewVectorStore(), keywordErr: errBoom}
		llm := &mockLLM{reply: "x"}
		retrieval := NewRetrievalService(store, &bagEmbedder{}, settings.Retrieval)
		svc := NewQueryService(retrieval, nil, NewResponseSynthesizer(llm, &mockPrompts{}, settings.Synthesis), &mockPrompts{}, settings)

		answer, err := svc.Query(context.Background(), domain.Query{Text: "invoice", Tenant: "7"})
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.Equal(t, []domain.RequestState{domain.StatePending, domain.StateRetrieving, domain.StateFailed}, answer.Trace)
		assert.Zero(t, llm.callCount())
	})
}

func TestScenarioB_SuggestThresholds(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		state  domain.RequestState
		answer string
	}{
		{"relevance below threshold", `{"message":"Sounds good","score":9,"relevance":6}`, domain.StateNoAnswer, ""},
		{"score below threshold", `{"message":"Sounds good","score":6,"relevance":9}`, domain.StateNoAnswer, ""},
		{"both above threshold", `{"message":"Sounds good","score":9,"relevance":8}`, domain.StateAnswered, "Sounds good"},
		{"exactly at threshold", `{"message":"Sounds good","score":7,"relevance":7}`, domain.StateAnswered, "Sounds good"},
		{"empty message", `{"message":"","score":9,"relevance":9}`, domain.StateNoAnswer, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newQueryStack(t, nil, withoutSimilarityFloor)
			st.llm.reply = tt.reply
			require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{
				ID: "d", Tenant: "7", Content: "The release is scheduled for Friday.",
			}))

			answer, err := st.query.Suggest(context.Background(), domain.Query{Text: "CoWorker, when is the release?", Tenant: "7"})
			require.NoError(t, err)
			assert.Equal(t, tt.state, answer.State)
			assert.Equal(t, tt.answer, answer.Text)

			require.NotEmpty(t, st.llm.opts)
			last := st.llm.opts[len(st.llm.opts)-1]
			require.NotNil(t, last.ResponseFormat)
			assert.Equal(t, "suggestion", last.ResponseFormat.Name)
			assert.InDelta(t, domain.DefaultAppSettings().Temperatures.Suggest, last.Temperature, 1e-9)
		})
	}
}

func TestQueryService_Suggest_SchemaFailure(t *testing.T) {
	st := newQueryStack(t, nil, withoutSimilarityFloor)
	st.llm.reply = `{"message":"hi","score":"very"}`
	require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{ID: "d", Tenant: "7", Content: "text"}))

	answer, err := st.query.Suggest(context.Background(), domain.Query{Text: "text", Tenant: "7"})
	assert.ErrorIs(t, err, domain.ErrSchemaValidation)
	assert.Equal(t, domain.StateFailed, answer.State)
	assert.Equal(t, 1, st.llm.callCount())
}

func TestQueryService_Suggest_NothingRetrieved(t *testing.T) {
	st := newQueryStack(t, nil, nil)
	answer, err := st.query.Suggest(context.Background(), domain.Query{Text: "anyone?", Tenant: "7"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateNoAnswer, answer.State)
	assert.Zero(t, st.llm.callCount())
}

func TestQueryService_Suggest_SimilarityFloor(t *testing.T) {
	ingest := func(st *queryStack) {
		require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{
			ID: "d", Tenant: "7", Content: "The release is scheduled for Friday.",
		}))
	}
	const reply = `{"message":"Friday","score":9,"relevance":9}`

	t.Run("below floor", func(t *testing.T) {
		st := newQueryStack(t, nil, nil)
		st.llm.reply = reply
		ingest(st)

		answer, err := st.query.Suggest(context.Background(), domain.Query{Text: "who ordered pizza?", Tenant: "7"})
		require.NoError(t, err)
		assert.Equal(t, domain.StateNoAnswer, answer.State)
		assert.Zero(t, st.llm.callCount(), "no generation without a confident match")
	})

	t.Run("at or above floor", func(t *testing.T) {
		st := newQueryStack(t, nil, nil)
		st.llm.reply = reply
		ingest(st)

		answer, err := st.query.Suggest(context.Background(), domain.Query{Text: "The release is scheduled for Friday", Tenant: "7"})
		require.NoError(t, err)
		assert.Equal(t, domain.StateAnswered, answer.State)
		assert.Equal(t, "Friday", answer.Text)
	})
}

func TestQueryService_Query_MinSimilarity(t *testing.T) {
	tests := []struct {
		name  string
		floor float64
		state domain.RequestState
	}{
		{"disabled by default", 0, domain.StateAnswered},
		{"nothing above floor", 0.95, domain.StateNoAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newQueryStack(t, nil, func(s *domain.AppSettings) {
				s.Retrieval.MinSimilarity = tt.floor
			})
			st.llm.reply = "Lunch is at noon."
			require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{ID: "d", Tenant: "7", Content: "Lunch is at noon"}))

			answer, err := st.query.Query(context.Background(), domain.Query{Text: "where is the invoice archive?", Tenant: "7"})
			require.NoError(t, err)
			assert.Equal(t, tt.state, answer.State)
		})
	}
}

func TestQueryService_Query_AnswerMentioningToken(t *testing.T) {
	tests := []struct {
		reply string
		state domain.RequestState
	}{
		{NoAnswerToken, domain.StateNoAnswer},
		{"  NO_ANSWER.\n", domain.StateNoAnswer},
		{"The bot replies NO_ANSWER when the context lacks the answer.", domain.StateAnswered},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			st := newQueryStack(t, nil, nil)
			st.llm.reply = tt.reply
			require.NoError(t, st.ingestion.Ingest(context.Background(), domain.Document{ID: "d", Tenant: "7", Content: "bot docs"}))

			answer, err := st.query.Query(context.Background(), domain.Query{Text: "what does the bot reply?", Tenant: "7"})
			require.NoError(t, err)
			assert.Equal(t, tt.state, answer.State)
		})
	}
}
