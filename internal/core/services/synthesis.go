package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Tree reduction defaults.
const (
	DefaultBudgetChars = 12000
	DefaultFanIn       = 4
	minFanIn           = 2
)

// SynthesisRequest is one synthesis job.
type SynthesisRequest struct {
	// SystemPrompt instructs the final generation call.
	SystemPrompt string

	// Context holds the blocks to reduce and the question.
	Context *domain.AssembledContext

	Mode        domain.OutputMode
	Temperature float64
}

// ResponseSynthesizer reduces any number of context blocks to one answer.
// Blocks are packed into groups that fit the per-call budget; while more
// than one group remains each group is condensed into a note and the
// notes are regrouped. A note is capped at budget/fanIn characters, so
// every level shrinks the group count and the reduction always ends in
// exactly one final call.
type ResponseSynthesizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	budget  int
	fanIn   int
}

// NewResponseSynthesizer creates a synthesizer. Non-positive settings use
// the defaults. Fan-in is at least two and the budget at least the fan-in.
func NewResponseSynthesizer(
	llm driven.LLMService, prompts driven.PromptStore, settings domain.SynthesisSettings,
) *ResponseSynthesizer {
	s := &ResponseSynthesizer{
		llm:     llm,
		prompts: prompts,
		budget:  settings.BudgetChars,
		fanIn:   settings.FanIn,
	}
	if s.budget <= 0 {
		s.budget = DefaultBudgetChars
	}
	switch {
	case s.fanIn <= 0:
		s.fanIn = DefaultFanIn
	case s.fanIn < minFanIn:
		s.fanIn = minFanIn
	}
	// Notes need at least one character each.
	s.budget = max(s.budget, s.fanIn)
	return s
}

// Synthesize runs the tree reduction and the final call.
// Structured output that fails to parse or validate is returned as
// domain.ErrSchemaValidation and never retried.
func (s *ResponseSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*domain.SynthesisResult, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if req.Context == nil {
		return nil, fmt.Errorf("%w: synthesis context is required", domain.ErrValidation)
	}

	logger.Section("Synthesis")
	result := &domain.SynthesisResult{}

	groups := s.pack(req.Context.Texts())
	logger.Debug("Blocks: %d, leaf groups: %d, budget: %d, fan-in: %d",
		len(req.Context.Blocks), len(groups), s.budget, s.fanIn)

	for len(groups) > 1 {
		notes, err := s.reduceLevel(ctx, req, groups)
		if err != nil {
			return nil, err
		}
		result.Levels++
		result.Calls += len(groups)
		groups = s.pack(notes)
		logger.Debug("Level %d: %d notes -> %d groups", result.Levels, len(notes), len(groups))
	}

	var final []string
	if len(groups) == 1 {
		final = groups[0]
	}

	opts := driven.ChatOptions{Temperature: req.Temperature}
	if req.Mode.Kind == domain.OutputStructured {
		opts.ResponseFormat = &driven.ResponseFormat{Name: req.Mode.SchemaName, Schema: req.Mode.Schema}
	}

	text, err := s.llm.Chat(ctx, finalMessages(req.SystemPrompt, final, req.Context.Question), opts)
	result.Levels++
	result.Calls++
	if err != nil {
		return nil, fmt.Errorf("final generation: %w", upstream(err))
	}

	text = strings.TrimSpace(text)
	if req.Mode.Kind == domain.OutputStructured {
		if err := ValidateStructured(req.Mode.Schema, text); err != nil {
			logger.Warn("Structured output rejected: %v", err)
			return nil, err
		}
	}
	result.Text = text

	logger.Debug("Synthesis done: levels=%d calls=%d", result.Levels, result.Calls)
	return result, nil
}

// reduceLevel condenses every group concurrently. Notes keep group order.
func (s *ResponseSynthesizer) reduceLevel(
	ctx context.Context, req SynthesisRequest, groups [][]string,
) ([]string, error) {
	prompt, err := s.prompts.Load(driven.PromptReduce)
	if err != nil {
		return nil, fmt.Errorf("load reduce prompt: %w", err)
	}

	noteLimit := s.budget / s.fanIn
	notes := make([]string, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i := range groups {
		g.Go(func() error {
			msgs := []driven.ChatMessage{
				{Role: "system", Content: prompt},
				{Role: "user", Content: "Question:\n" + req.Context.Question + "\n\nContext:\n" + strings.Join(groups[i], "\n\n")},
			}
			note, err := s.llm.Chat(gctx, msgs, driven.ChatOptions{Temperature: req.Temperature})
			if err != nil {
				return fmt.Errorf("reduce group %d: %w", i, upstream(err))
			}
			notes[i] = truncateRunes(strings.TrimSpace(note), noteLimit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return notes, nil
}

// pack splits oversized texts to the budget and groups consecutive texts
// while the group stays within the budget and the fan-in.
func (s *ResponseSynthesizer) pack(texts []string) [][]string {
	var groups [][]string
	var cur []string
	size := 0

	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
		cur, size = nil, 0
	}

	for _, text := range texts {
		for _, piece := range splitRunes(text, s.budget) {
			n := utf8.RuneCountInString(piece)
			if len(cur) > 0 && (size+n > s.budget || len(cur) >= s.fanIn) {
				flush()
			}
			cur = append(cur, piece)
			size += n
		}
	}
	flush()
	return groups
}

func finalMessages(system string, blocks []string, question string) []driven.ChatMessage {
	msgs := []driven.ChatMessage{{Role: "system", Content: system}}
	if len(blocks) > 0 {
		msgs = append(msgs, driven.ChatMessage{Role: "user", Content: "Context:\n" + strings.Join(blocks, "\n\n")})
	}
	return append(msgs, driven.ChatMessage{Role: "user", Content: question})
}

// ValidateStructured checks that text is JSON satisfying schema.
func ValidateStructured(schema json.RawMessage, text string) error {
	var instance any
	if err := json.Unmarshal([]byte(text), &instance); err != nil {
		return fmt.Errorf("%w: output is not JSON: %w", domain.ErrSchemaValidation, err)
	}
	if len(schema) == 0 {
		return nil
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(schema, &s); err != nil {
		return fmt.Errorf("%w: invalid schema: %w", domain.ErrSchemaValidation, err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("%w: resolve schema: %w", domain.ErrSchemaValidation, err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSchemaValidation, err)
	}
	return nil
}

// SchemaFor infers the JSON Schema of T for structured output.
func SchemaFor[T any]() (json.RawMessage, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	return json.Marshal(s)
}

// splitRunes cuts text into pieces of at most limit runes, preferring
// whitespace in the second half of each window.
func splitRunes(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var out []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i + 1
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
