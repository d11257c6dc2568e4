package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil query service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Query: &mockQueryService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestNewServer_Tools(t *testing.T) {
	t.Run("query only", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}})
		require.NoError(t, err)
		assert.Equal(t, []string{"query", "suggest"}, server.Tools())
	})

	t.Run("optional ports add tools", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Query:     &mockQueryService{},
			Ingestion: &mockIngestionService{},
			Diff:      &mockDiffService{},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"query", "suggest", "ingest", "summarize_diff"}, server.Tools())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil query service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("query only is valid", func(t *testing.T) {
		ports := &Ports{
			Query: &mockQueryService{},
		}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Query:     &mockQueryService{},
			Ingestion: &mockIngestionService{},
			Diff:      &mockDiffService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
