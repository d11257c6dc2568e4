package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// ContextAssembler formats retrieved items, chat history and the query
// into model input. Metadata keys with the private prefix never appear
// in its output.
type ContextAssembler struct{}

// NewContextAssembler creates a new context assembler.
func NewContextAssembler() *ContextAssembler {
	return &ContextAssembler{}
}

// Assemble renders retrieved items in the given order, then the history
// oldest to newest, then the query.
func (a *ContextAssembler) Assemble(
	q domain.Query, items []domain.RetrievedItem, history domain.ChatHistoryWindow,
) *domain.AssembledContext {
	blocks := make([]domain.ContextBlock, 0, len(items)+len(history.Messages))
	for i := range items {
		blocks = append(blocks, domain.ContextBlock{
			Kind: domain.BlockRetrieved,
			Text: FormatEntry(items[i].Chunk.Metadata, items[i].Chunk.Content),
		})
	}
	for i := range history.Messages {
		blocks = append(blocks, domain.ContextBlock{
			Kind: domain.BlockHistory,
			Text: FormatEntry(history.Messages[i].Metadata, history.Messages[i].Content),
		})
	}
	return &domain.AssembledContext{
		Blocks:   blocks,
		Question: FormatEntry(q.Metadata, q.Text),
	}
}

// FormatEntry writes one "key: value" line per public metadata key in
// key order, a blank line, then the content.
func FormatEntry(meta map[string]any, content string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		if domain.IsPrivateKey(k) || meta[k] == nil {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return content
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(formatValue(meta[k]))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.WriteString(content)
	return sb.String()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
