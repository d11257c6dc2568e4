package driven

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// CalendarClient applies calendar actions to a calendar provider.
type CalendarClient interface {
	// Apply performs the insert, update or delete and returns the event id.
	Apply(ctx context.Context, action domain.CalendarAction) (string, error)
}

// DiffSource fetches the unified diff of a pull request.
type DiffSource interface {
	PullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
}
