package google

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusGone, domain.ErrNotFound},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusUnauthorized, domain.ErrUpstream},
		{http.StatusForbidden, domain.ErrUpstream},
		{http.StatusInternalServerError, domain.ErrUpstream},
	}
	for _, tt := range tests {
		err := MapError(&googleapi.Error{Code: tt.code})
		assert.ErrorIs(t, err, tt.want, "status %d", tt.code)
	}

	assert.NoError(t, MapError(nil))
	assert.ErrorIs(t, MapError(errors.New("dial tcp")), domain.ErrUpstream)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, IsUnauthorized(&googleapi.Error{Code: 401}))
	assert.True(t, IsForbidden(&googleapi.Error{Code: 403}))
	assert.False(t, IsRateLimited(errors.New("plain")))
}
