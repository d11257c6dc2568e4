package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// upstream marks a collaborator failure as domain.ErrUpstream unless it
// already carries a classification of its own.
func upstream(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUpstream),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMissingTenant),
		errors.Is(err, domain.ErrSchemaValidation),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
}
