//go:build !cgo

package treesitter

import (
	"context"
	"fmt"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.CodeParser = (*Parser)(nil)

// Parser is a stub for builds without CGO.
type Parser struct{}

// New creates a stub parser.
func New() *Parser {
	return &Parser{}
}

// Languages returns the languages the CGO build would parse, so documents
// are still routed to the code chunker and fall back with a warning.
func (p *Parser) Languages() []string {
	return []string{"c", "c#", "c++", "java", "javascript", "kotlin", "php", "python", "rust", "shell", "swift", "typescript"}
}

// Parse always fails in builds without CGO.
func (p *Parser) Parse(_ context.Context, language string, _ []byte) ([]domain.Span, error) {
	return nil, fmt.Errorf("%w: tree-sitter requires CGO (%s)", domain.ErrNotImplemented, language)
}
