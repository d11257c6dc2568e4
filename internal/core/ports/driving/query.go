package driving

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// RetrievalService fans a query out to the three retrieval sources.
type RetrievalService interface {
	// Retrieve runs the embedding, keyword and context sub-queries concurrently.
	// Any failing source fails the whole call.
	Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error)

	// Context runs only the unranked context fetch.
	Context(ctx context.Context, req domain.RetrievalRequest) ([]domain.RetrievedItem, error)

	// ChatHistory returns the last limit messages of a chat, oldest first.
	ChatHistory(ctx context.Context, tenant, chatID string, limit int) (domain.ChatHistoryWindow, error)
}

// QueryService answers questions grounded in retrieved context.
// A missing answer is a normal result (StateNoAnswer), not an error.
type QueryService interface {
	// Query returns a freeform answer.
	Query(ctx context.Context, q domain.Query) (*domain.Answer, error)

	// Suggest returns a reply only if it clears the score and relevance thresholds.
	Suggest(ctx context.Context, q domain.Query) (*domain.Answer, error)
}

// CalendarService turns natural language commands into calendar actions.
type CalendarService interface {
	// GenerateEvent produces a validated calendar action.
	GenerateEvent(ctx context.Context, cmd domain.CalendarCommand) (*domain.CalendarAction, error)

	// ApplyEvent performs the action against the calendar provider.
	ApplyEvent(ctx context.Context, action domain.CalendarAction) (string, error)
}

// DiffService summarises code changes.
type DiffService interface {
	// Summarize summarises a unified diff.
	Summarize(ctx context.Context, diff string) (string, error)

	// SummarizePullRequest fetches and summarises a pull request diff.
	SummarizePullRequest(ctx context.Context, owner, repo string, number int) (string, error)
}
