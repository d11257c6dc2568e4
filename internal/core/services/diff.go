package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure DiffService implements the interface.
var _ driving.DiffService = (*DiffService)(nil)

// diffQuestion is the question every diff summary answers.
const diffQuestion = "Summarise this change."

// DiffService summarises unified diffs one file section per block.
type DiffService struct {
	synthesizer *ResponseSynthesizer
	prompts     driven.PromptStore
	source      driven.DiffSource
	temperature float64
}

// NewDiffService creates a new diff service. The diff source is optional.
func NewDiffService(
	synthesizer *ResponseSynthesizer, prompts driven.PromptStore, source driven.DiffSource, temperature float64,
) *DiffService {
	return &DiffService{
		synthesizer: synthesizer,
		prompts:     prompts,
		source:      source,
		temperature: temperature,
	}
}

// Summarize splits the diff per file and reduces the sections to one summary.
func (s *DiffService) Summarize(ctx context.Context, diff string) (string, error) {
	files := domain.SplitUnifiedDiff(diff)
	if len(files) == 0 {
		return "", fmt.Errorf("%w: diff is empty", domain.ErrValidation)
	}
	logger.Section("Diff Summary")
	logger.Debug("Files: %d", len(files))

	blocks := make([]domain.ContextBlock, len(files))
	for i, f := range files {
		text := f.Patch
		if f.Path != "" {
			text = "file: " + f.Path + "\n\n" + f.Patch
		}
		blocks[i] = domain.ContextBlock{Kind: domain.BlockRetrieved, Text: text}
	}

	prompt, err := s.prompts.Load(driven.PromptDiffSystem)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}
	result, err := s.synthesizer.Synthesize(ctx, SynthesisRequest{
		SystemPrompt: prompt,
		Context:      &domain.AssembledContext{Blocks: blocks, Question: diffQuestion},
		Mode:         domain.Freeform(),
		Temperature:  s.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

// SummarizePullRequest fetches a pull request diff and summarises it.
func (s *DiffService) SummarizePullRequest(ctx context.Context, owner, repo string, number int) (string, error) {
	if s.source == nil {
		return "", fmt.Errorf("diff source: %w", domain.ErrNotImplemented)
	}
	diff, err := s.source.PullRequestDiff(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("fetch %s/%s#%d: %w", owner, repo, number, err)
	}
	return s.Summarize(ctx, diff)
}
