//go:build cgo

package treesitter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.CodeParser = (*Parser)(nil)

// grammars maps language names, as produced by the code normaliser,
// to tree-sitter grammars.
var grammars = map[string]func() *sitter.Language{
	"c":          c.GetLanguage,
	"c++":        cpp.GetLanguage,
	"c#":         csharp.GetLanguage,
	"java":       java.GetLanguage,
	"javascript": javascript.GetLanguage,
	"kotlin":     kotlin.GetLanguage,
	"php":        php.GetLanguage,
	"python":     python.GetLanguage,
	"rust":       rust.GetLanguage,
	"shell":      bash.GetLanguage,
	"swift":      swift.GetLanguage,
	"typescript": typescript.GetLanguage,
}

// Parser parses source with tree-sitter. It is safe for concurrent use;
// each call creates its own sitter.Parser.
type Parser struct{}

// New creates a tree-sitter parser.
func New() *Parser {
	return &Parser{}
}

// Languages returns the supported language names, sorted.
func (p *Parser) Languages() []string {
	langs := make([]string, 0, len(grammars))
	for lang := range grammars {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Parse returns one span per named child of the syntax tree root.
// Comments directly preceding a unit are folded into its span.
// A tree containing syntax errors fails with domain.ErrParserFailed.
func (p *Parser) Parse(ctx context.Context, language string, src []byte) ([]domain.Span, error) {
	grammar, ok := grammars[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: tree-sitter grammar for %q", domain.ErrNotImplemented, language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrParserFailed, language, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s: syntax errors in source", domain.ErrParserFailed, language)
	}

	var (
		spans   []domain.Span
		pending = -1
	)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		start := int(node.StartByte())
		if strings.Contains(node.Type(), "comment") {
			if pending < 0 {
				pending = start
			}
			continue
		}
		if pending >= 0 {
			start = pending
			pending = -1
		}
		spans = append(spans, domain.Span{Start: start, End: int(node.EndByte())})
	}
	return spans, nil
}
