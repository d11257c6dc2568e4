// Package plaintext extracts documents from plain text uploads.
package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the content variant.
func (n *Normaliser) Kind() domain.ContentKind {
	return domain.ContentPlainText
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/csv"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"txt", "text", "log", "csv"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise returns the file content as one document.
// Invalid UTF-8 is rejected rather than stored garbled.
func (n *Normaliser) Normalise(_ context.Context, file *domain.FileUpload) ([]domain.Document, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: file is nil", domain.ErrValidation)
	}
	if !utf8.Valid(file.Data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrValidation, file.Name)
	}

	content := strings.ReplaceAll(string(file.Data), "\r\n", "\n")
	return []domain.Document{file.NewDocument(content, n.Kind())}, nil
}
