package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

func TestNormaliser_Metadata(t *testing.T) {
	n := New()
	assert.Equal(t, domain.ContentPlainText, n.Kind())
	assert.Contains(t, n.SupportedMIMETypes(), "text/plain")
	assert.Contains(t, n.SupportedExtensions(), "txt")
	assert.Equal(t, 5, n.Priority())
}

func TestNormalise(t *testing.T) {
	file := &domain.FileUpload{
		Tenant:   "7",
		Name:     "notes.txt",
		MIMEType: "text/plain; charset=utf-8",
		Data:     []byte("line one\r\nline two"),
		Metadata: map[string]any{"author": "ann"},
	}

	docs, err := New().Normalise(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "notes.txt", doc.ID)
	assert.Equal(t, "7", doc.Tenant)
	assert.Equal(t, "line one\nline two", doc.Content)
	assert.Equal(t, "ann", doc.Metadata["author"])
	assert.Equal(t, "notes.txt", doc.Metadata[domain.MetaFileName])
	assert.Equal(t, "text/plain", doc.Metadata[domain.MetaMIMEType])
	assert.Equal(t, "plaintext", doc.Metadata[domain.MetaContentKind])
	assert.Len(t, file.Metadata, 1, "upload metadata is not modified")
}

func TestNormalise_Invalid(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New().Normalise(context.Background(), &domain.FileUpload{Name: "x.txt", Data: []byte{0xff, 0xfe}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
