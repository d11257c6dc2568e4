package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_PrintsVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"release", "1.4.0", "coworker version 1.4.0"},
		{"default", "dev", "coworker version dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version = tt.version
			out, err := execute(t, "", "version")
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestVersionCmd_SkipsBootstrap(t *testing.T) {
	called := false
	SetBootstrap(func(context.Context) (Services, error) {
		called = true
		return Services{}, errors.New("no api key")
	})
	defer SetBootstrap(nil)

	_, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.False(t, called)
}
