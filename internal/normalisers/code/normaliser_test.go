package code

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

func TestLanguageForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"go", "go"},
		{"py", "python"},
		{"h", "c"},
		{"hpp", "c++"},
		{"cs", "c#"},
		{"ts", "typescript"},
		{"sh", "shell"},
		{"txt", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, LanguageForExtension(tt.ext))
		})
	}
}

func TestNormaliser_Metadata(t *testing.T) {
	n := New()
	assert.Equal(t, domain.ContentCode, n.Kind())
	assert.Contains(t, n.SupportedExtensions(), "go")
	assert.Contains(t, n.SupportedMIMETypes(), "text/x-python")
	assert.Greater(t, n.Priority(), 50)
}

func TestNormalise(t *testing.T) {
	file := &domain.FileUpload{
		Tenant: "7",
		Name:   "cmd/Main.GO",
		Data:   []byte("package main\r\n"),
	}

	docs, err := New().Normalise(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "package main\n", docs[0].Content)
	assert.Equal(t, "go", docs[0].Metadata[domain.MetaLanguage])
	assert.Equal(t, "go", docs[0].Language())
}

func TestNormalise_LanguageFromMIME(t *testing.T) {
	file := &domain.FileUpload{Tenant: "7", Name: "script", MIMEType: "text/x-python", Data: []byte("print(1)")}

	docs, err := New().Normalise(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "python", docs[0].Language())
}

func TestNormalise_Errors(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New().Normalise(context.Background(), &domain.FileUpload{Name: "x.go", Data: []byte{0xff}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = New().Normalise(context.Background(), &domain.FileUpload{Name: "notes", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
