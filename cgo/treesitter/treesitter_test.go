//go:build cgo

package treesitter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

func TestParse_Python(t *testing.T) {
	src := []byte("import os\n\n# adds numbers\ndef add(a, b):\n    return a + b\n\nclass Box:\n    pass\n")

	spans, err := New().Parse(context.Background(), "python", src)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	assert.Equal(t, "import os", string(src[spans[0].Start:spans[0].End]))
	assert.Contains(t, string(src[spans[1].Start:spans[1].End]), "# adds numbers")
	assert.Contains(t, string(src[spans[1].Start:spans[1].End]), "def add")
	assert.Contains(t, string(src[spans[2].Start:spans[2].End]), "class Box")
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := New().Parse(context.Background(), "python", []byte("def broken(:\n"))
	assert.True(t, errors.Is(err, domain.ErrParserFailed))
}

func TestParse_UnknownLanguage(t *testing.T) {
	_, err := New().Parse(context.Background(), "cobol", []byte("x"))
	assert.True(t, errors.Is(err, domain.ErrNotImplemented))
}

func TestLanguages(t *testing.T) {
	assert.Contains(t, New().Languages(), "python")
	assert.Contains(t, New().Languages(), "typescript")
}
