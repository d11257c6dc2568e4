// Package code extracts documents from source code uploads and records
// their programming language so chunking can follow syntax.
package code

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles source code files.
type Normaliser struct{}

// New creates a new code normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the content variant.
func (n *Normaliser) Kind() domain.ContentKind {
	return domain.ContentCode
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	types := make([]string, 0, len(mimeLanguages))
	for mt := range mimeLanguages {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Priority returns the selection priority.
// Source files often arrive as text/plain, so code outranks plain text.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise returns the source as one document tagged with its language.
func (n *Normaliser) Normalise(_ context.Context, file *domain.FileUpload) ([]domain.Document, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: file is nil", domain.ErrValidation)
	}
	if !utf8.Valid(file.Data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 source", domain.ErrValidation, file.Name)
	}

	lang := LanguageForExtension(file.Ext())
	if lang == "" {
		lang = mimeLanguages[file.BaseMIMEType()]
	}
	if lang == "" {
		return nil, fmt.Errorf("%w: cannot detect language of %s", domain.ErrUnsupportedType, file.Name)
	}

	doc := file.NewDocument(strings.ReplaceAll(string(file.Data), "\r\n", "\n"), n.Kind())
	doc.Metadata[domain.MetaLanguage] = lang
	return []domain.Document{doc}, nil
}
