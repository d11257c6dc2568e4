package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// reduceOrFinal replies "note" to reduce calls and final otherwise.
func reduceOrFinal(final string) func([]driven.ChatMessage, driven.ChatOptions) (string, error) {
	return func(msgs []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
		if msgs[0].Content == driven.PromptReduce+" prompt" {
			return "note", nil
		}
		return final, nil
	}
}

func blocksOf(texts ...string) *domain.AssembledContext {
	ctx := &domain.AssembledContext{Question: "question?"}
	for _, text := range texts {
		ctx.Blocks = append(ctx.Blocks, domain.ContextBlock{Kind: domain.BlockRetrieved, Text: text})
	}
	return ctx
}

func TestNewResponseSynthesizer_Defaults(t *testing.T) {
	s := NewResponseSynthesizer(&mockLLM{}, &mockPrompts{}, domain.SynthesisSettings{})
	assert.Equal(t, DefaultBudgetChars, s.budget)
	assert.Equal(t, DefaultFanIn, s.fanIn)

	s = NewResponseSynthesizer(&mockLLM{}, &mockPrompts{}, domain.SynthesisSettings{BudgetChars: 1, FanIn: 1})
	assert.Equal(t, 2, s.fanIn)
	assert.Equal(t, 2, s.budget)
}

func TestResponseSynthesizer_SingleGroup(t *testing.T) {
	llm := &mockLLM{reply: "  the answer  "}
	s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{BudgetChars: 1000, FanIn: 4})

	result, err := s.Synthesize(context.Background(), SynthesisRequest{
		SystemPrompt: "system",
		Context:      blocksOf("block one", "block two"),
		Mode:         domain.Freeform(),
		Temperature:  0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Text)
	assert.Equal(t, 1, result.Levels)
	assert.Equal(t, 1, result.Calls)

	require.Len(t, llm.calls, 1)
	msgs := llm.calls[0]
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Content)
	assert.Equal(t, "Context:\nblock one\n\nblock two", msgs[1].Content)
	assert.Equal(t, "question?", msgs[2].Content)
	assert.Nil(t, llm.opts[0].ResponseFormat)
	assert.InDelta(t, 0.5, llm.opts[0].Temperature, 1e-9)
}

func TestResponseSynthesizer_NoBlocks(t *testing.T) {
	llm := &mockLLM{reply: "ok"}
	s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{})

	result, err := s.Synthesize(context.Background(), SynthesisRequest{Context: blocksOf(), Mode: domain.Freeform()})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	require.Len(t, llm.calls, 1)
	assert.Len(t, llm.calls[0], 2, "system prompt and question only")
}

func TestResponseSynthesizer_TreeConverges(t *testing.T) {
	for fanIn := 2; fanIn <= 5; fanIn++ {
		for k := 0; k <= 40; k++ {
			t.Run(fmt.Sprintf("F=%d/K=%d", fanIn, k), func(t *testing.T) {
				llm := &mockLLM{respond: reduceOrFinal("final")}
				s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{BudgetChars: 40, FanIn: fanIn})

				texts := make([]string, k)
				for i := range texts {
					texts[i] = fmt.Sprintf("block number %02d", i)
				}
				result, err := s.Synthesize(context.Background(), SynthesisRequest{
					SystemPrompt: "system",
					Context:      blocksOf(texts...),
					Mode:         domain.Freeform(),
				})
				require.NoError(t, err)
				assert.Equal(t, "final", result.Text)
				assert.Equal(t, llm.callCount(), result.Calls)

				finals := 0
				for _, msgs := range llm.calls {
					if msgs[0].Content == "system" {
						finals++
					}
				}
				assert.Equal(t, 1, finals, "exactly one final call")
				assert.GreaterOrEqual(t, result.Levels, 1)
			})
		}
	}
}

func TestResponseSynthesizer_GroupsRespectBudget(t *testing.T) {
	llm := &mockLLM{respond: reduceOrFinal("final")}
	s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{BudgetChars: 30, FanIn: 3})

	long := strings.Repeat("word ", 20)
	_, err := s.Synthesize(context.Background(), SynthesisRequest{
		SystemPrompt: "system",
		Context:      blocksOf(long, "short", "tiny"),
		Mode:         domain.Freeform(),
	})
	require.NoError(t, err)

	for _, msgs := range llm.calls {
		if msgs[0].Content != driven.PromptReduce+" prompt" {
			continue
		}
		_, ctx, found := strings.Cut(msgs[1].Content, "\n\nContext:\n")
		require.True(t, found)
		blocks := strings.Split(ctx, "\n\n")
		assert.LessOrEqual(t, len(blocks), 3)
		total := 0
		for _, b := range blocks {
			total += len([]rune(b))
		}
		assert.LessOrEqual(t, total, 30)
	}
}

func TestResponseSynthesizer_Structured(t *testing.T) {
	schema, err := SchemaFor[domain.Suggestion]()
	require.NoError(t, err)
	mode := domain.Structured("suggestion", schema)

	t.Run("valid", func(t *testing.T) {
		llm := &mockLLM{reply: `{"message":"Sure","score":9,"relevance":8}`}
		s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{})

		result, err := s.Synthesize(context.Background(), SynthesisRequest{Context: blocksOf("x"), Mode: mode})
		require.NoError(t, err)

		var got domain.Suggestion
		require.NoError(t, result.Decode(&got))
		assert.Equal(t, domain.Suggestion{Message: "Sure", Score: 9, Relevance: 8}, got)

		require.NotNil(t, llm.opts[0].ResponseFormat)
		assert.Equal(t, "suggestion", llm.opts[0].ResponseFormat.Name)
		assert.JSONEq(t, string(schema), string(llm.opts[0].ResponseFormat.Schema))
	})

	invalid := map[string]string{
		"not json":      `Sure, here you go`,
		"wrong type":    `{"message":"Sure","score":"high","relevance":8}`,
		"missing field": `{"message":"Sure"}`,
	}
	for name, reply := range invalid {
		t.Run(name, func(t *testing.T) {
			llm := &mockLLM{reply: reply}
			s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{})

			result, err := s.Synthesize(context.Background(), SynthesisRequest{Context: blocksOf("x"), Mode: mode})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrSchemaValidation)
			assert.Equal(t, 1, llm.callCount(), "no retry")
		})
	}
}

func TestResponseSynthesizer_StructuredOnlyOnFinalCall(t *testing.T) {
	llm := &mockLLM{respond: func(msgs []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
		if opts.ResponseFormat == nil {
			return "note", nil
		}
		return `{"message":"m","score":7,"relevance":7}`, nil
	}}
	s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{BudgetChars: 20, FanIn: 2})
	schema, err := SchemaFor[domain.Suggestion]()
	require.NoError(t, err)

	result, err := s.Synthesize(context.Background(), SynthesisRequest{
		Context: blocksOf("aaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbb", "ccccccccccccccc"),
		Mode:    domain.Structured("suggestion", schema),
	})
	require.NoError(t, err)
	assert.Greater(t, result.Calls, 1)

	withFormat := 0
	for _, o := range llm.opts {
		if o.ResponseFormat != nil {
			withFormat++
		}
	}
	assert.Equal(t, 1, withFormat)
}

func TestResponseSynthesizer_Errors(t *testing.T) {
	t.Run("no llm", func(t *testing.T) {
		s := NewResponseSynthesizer(nil, &mockPrompts{}, domain.SynthesisSettings{})
		_, err := s.Synthesize(context.Background(), SynthesisRequest{Context: blocksOf("x")})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("no context", func(t *testing.T) {
		s := NewResponseSynthesizer(&mockLLM{}, &mockPrompts{}, domain.SynthesisSettings{})
		_, err := s.Synthesize(context.Background(), SynthesisRequest{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("final call fails", func(t *testing.T) {
		s := NewResponseSynthesizer(&mockLLM{err: errBoom}, &mockPrompts{}, domain.SynthesisSettings{})
		_, err := s.Synthesize(context.Background(), SynthesisRequest{Context: blocksOf("x")})
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("reduce call fails", func(t *testing.T) {
		llm := &mockLLM{respond: func(msgs []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
			if msgs[0].Content == driven.PromptReduce+" prompt" {
				return "", errBoom
			}
			return "final", nil
		}}
		s := NewResponseSynthesizer(llm, &mockPrompts{}, domain.SynthesisSettings{BudgetChars: 10, FanIn: 2})
		_, err := s.Synthesize(context.Background(), SynthesisRequest{Context: blocksOf("aaaaaaaa", "bbbbbbbb")})
		assert.ErrorIs(t, err, domain.ErrUpstream)
	})

	t.Run("reduce prompt missing", func(t *testing.T) {
		s := NewResponseSynthesizer(&mockLLM{}, &mockPrompts{err: errBoom}, domain.SynthesisSettings{BudgetChars: 10, FanIn: 2})
		_, err := s.Synthesize(context.Background(), SynthesisRequest{Context: blocksOf("aaaaaaaa", "bbbbbbbb")})
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestSplitRunes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitRunes("short", 10))
	assert.Equal(t, []string{"hello ", "world"}, splitRunes("hello world", 8))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, splitRunes("abcdefghij", 4))
	assert.Equal(t, []string{"ééé", "éé"}, splitRunes("ééééé", 3))
}
