package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure Code implements the interface.
var _ driven.Chunker = (*Code)(nil)

// Code splits source files along top-level declarations.
type Code struct {
	parsers  map[string]driven.CodeParser
	maxChars int
}

// NewCode creates a code chunker. Later parsers win for shared languages.
func NewCode(maxChars int, parsers ...driven.CodeParser) *Code {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	c := &Code{parsers: make(map[string]driven.CodeParser), maxChars: maxChars}
	for _, p := range parsers {
		for _, lang := range p.Languages() {
			c.parsers[strings.ToLower(lang)] = p
		}
	}
	return c
}

// Name returns the strategy name.
func (c *Code) Name() string {
	return "code"
}

// Supports reports whether a parser is registered for language.
func (c *Code) Supports(language string) bool {
	_, ok := c.parsers[strings.ToLower(language)]
	return ok
}

// Languages returns the supported languages, sorted.
func (c *Code) Languages() []string {
	langs := make([]string, 0, len(c.parsers))
	for lang := range c.parsers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Split returns declaration-aligned chunk texts.
// Adjacent declarations are packed together up to the size bound;
// a declaration larger than the bound is split by lines.
func (c *Code) Split(ctx context.Context, doc *domain.Document) ([]string, error) {
	lang := strings.ToLower(doc.Language())
	parser, ok := c.parsers[lang]
	if !ok {
		return nil, fmt.Errorf("%w: no code parser for %q", domain.ErrNotImplemented, lang)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	src := []byte(doc.Content)
	spans, err := parser.Parse(ctx, lang, src)
	if err != nil {
		return nil, err
	}
	return c.pack(segments(src, spans)), nil
}

// segments cuts src at every span start. The first segment starts at 0
// and the last ends at len(src), so no byte is lost.
func segments(src []byte, spans []domain.Span) []string {
	cuts := []int{0}
	for _, s := range spans {
		if s.Start > 0 && s.Start < len(src) {
			cuts = append(cuts, s.Start)
		}
	}
	sort.Ints(cuts)

	out := make([]string, 0, len(cuts))
	for i, start := range cuts {
		if i > 0 && start == cuts[i-1] {
			continue
		}
		end := len(src)
		for _, next := range cuts[i+1:] {
			if next > start {
				end = next
				break
			}
		}
		out = append(out, string(src[start:end]))
	}
	return out
}

func (c *Code) pack(segs []string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if text := strings.TrimSpace(cur.String()); text != "" {
			out = append(out, text)
		}
		cur.Reset()
	}

	for _, seg := range segs {
		if strings.TrimSpace(seg) == "" {
			cur.WriteString(seg)
			continue
		}
		if runeLen(cur.String())+runeLen(seg) <= c.maxChars {
			cur.WriteString(seg)
			continue
		}
		flush()
		if runeLen(seg) <= c.maxChars {
			cur.WriteString(seg)
			continue
		}
		out = append(out, splitLines(seg, c.maxChars)...)
	}
	flush()
	return out
}

// splitLines packs whole lines up to limit runes. A single line longer
// than limit is hard-split.
func splitLines(text string, limit int) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		if runeLen(cur.String())+runeLen(line) > limit {
			flush()
		}
		if runeLen(line) > limit {
			out = append(out, splitToLimit(line, limit)...)
			continue
		}
		cur.WriteString(line)
	}
	flush()
	return out
}
