package driven

import (
	"context"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// Normaliser extracts raw text documents from one kind of uploaded file.
type Normaliser interface {
	// Kind returns the content variant this normaliser handles.
	Kind() domain.ContentKind

	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns file extensions (without dot) this normaliser handles.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	Priority() int

	// Normalise turns the file into one or more documents.
	Normalise(ctx context.Context, file *domain.FileUpload) ([]domain.Document, error)
}

// NormaliserRegistry routes uploaded files to a normaliser.
type NormaliserRegistry interface {
	// Classify returns the content variant for a file.
	// Unknown files are domain.ContentUnsupported.
	Classify(file *domain.FileUpload) domain.ContentKind

	// Normalise extracts documents with the best matching normaliser.
	// Unsupported files fail with domain.ErrValidation.
	Normalise(ctx context.Context, file *domain.FileUpload) ([]domain.Document, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}

// CommandRunner executes external programs such as pdftotext.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Transcriber converts speech audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, fileName string, audio []byte) (string, error)
}
