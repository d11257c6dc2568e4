package chunker

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure GoParser implements the interface.
var _ driven.CodeParser = (*GoParser)(nil)

// GoParser finds top-level declarations in Go source with go/parser.
type GoParser struct{}

// Languages returns the language names handled.
func (GoParser) Languages() []string {
	return []string{"go", "golang"}
}

// Parse returns one span per top-level declaration, starting at its doc
// comment when present.
func (GoParser) Parse(_ context.Context, _ string, src []byte) ([]domain.Span, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "<memory>", src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: go: %w", domain.ErrParserFailed, err)
	}
	file := fset.File(f.Pos())

	spans := make([]domain.Span, 0, len(f.Decls))
	for _, decl := range f.Decls {
		start := decl.Pos()
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Doc != nil {
				start = d.Doc.Pos()
			}
		case *ast.GenDecl:
			if d.Doc != nil {
				start = d.Doc.Pos()
			}
		}
		spans = append(spans, domain.Span{
			Start: file.Offset(start),
			End:   file.Offset(decl.End()),
		})
	}
	return spans, nil
}
