package normalisers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/normalisers"
	"github.com/custodia-labs/coworker/internal/normalisers/audio"
	"github.com/custodia-labs/coworker/internal/normalisers/code"
	"github.com/custodia-labs/coworker/internal/normalisers/markdown"
	"github.com/custodia-labs/coworker/internal/normalisers/pdf"
	"github.com/custodia-labs/coworker/internal/normalisers/plaintext"
)

func newRegistry() *normalisers.Registry {
	return normalisers.NewRegistry(
		plaintext.New(),
		markdown.New(),
		pdf.New(),
		code.New(),
		audio.New(audio.Config{}),
	)
}

func TestRegistry_Classify(t *testing.T) {
	r := newRegistry()

	tests := []struct {
		name     string
		file     domain.FileUpload
		expected domain.ContentKind
	}{
		{"plain text", domain.FileUpload{Name: "a.txt", MIMEType: "text/plain"}, domain.ContentPlainText},
		{"markdown by mime", domain.FileUpload{Name: "a", MIMEType: "text/markdown"}, domain.ContentMarkdown},
		{"markdown sent as text", domain.FileUpload{Name: "README.md", MIMEType: "text/plain"}, domain.ContentMarkdown},
		{"pdf", domain.FileUpload{Name: "a.pdf", MIMEType: "application/pdf"}, domain.ContentPDF},
		{"code sent as text", domain.FileUpload{Name: "main.go", MIMEType: "text/plain"}, domain.ContentCode},
		{"code by extension", domain.FileUpload{Name: "lib.rs", MIMEType: "application/octet-stream"}, domain.ContentCode},
		{"audio", domain.FileUpload{Name: "call.m4a"}, domain.ContentAudio},
		{"mime parameters", domain.FileUpload{Name: "x", MIMEType: "text/plain; charset=utf-8"}, domain.ContentPlainText},
		{"image", domain.FileUpload{Name: "logo.png", MIMEType: "image/png"}, domain.ContentUnsupported},
		{"nothing", domain.FileUpload{}, domain.ContentUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Classify(&tt.file))
		})
	}
	assert.Equal(t, domain.ContentUnsupported, r.Classify(nil))
}

func TestRegistry_Normalise(t *testing.T) {
	r := newRegistry()

	docs, err := r.Normalise(context.Background(), &domain.FileUpload{
		Tenant: "7", Name: "main.py", MIMEType: "text/plain", Data: []byte("def f():\n    return 1\n"),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "main.py", docs[0].ID)
	assert.Equal(t, "7", docs[0].Tenant)
	assert.Equal(t, "python", docs[0].Language())
}

func TestRegistry_NormaliseUnsupported(t *testing.T) {
	_, err := newRegistry().Normalise(context.Background(), &domain.FileUpload{Tenant: "7", Name: "logo.png", MIMEType: "image/png"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = newRegistry().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegistry_SupportedMIMETypes(t *testing.T) {
	types := newRegistry().SupportedMIMETypes()
	assert.Contains(t, types, "text/plain")
	assert.Contains(t, types, "application/pdf")
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "audio/mpeg")
	assert.IsIncreasing(t, types)
}
