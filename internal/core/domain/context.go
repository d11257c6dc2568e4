package domain

import (
	"sort"
	"strings"
)

// ChatHistoryWindow is the last N messages of a conversation, oldest first.
// Each entry is one whole message rebuilt from its chunks.
type ChatHistoryWindow struct {
	Messages []Chunk
}

// NewChatHistoryWindow builds a window from a newest-first chunk fetch,
// keeping at most limit messages. Chunks are grouped by document; each
// message keeps the metadata of its first chunk and joins the chunk texts
// in Position order. A non-positive limit keeps all.
func NewChatHistoryWindow(newestFirst []Chunk, limit int) ChatHistoryWindow {
	var order []string
	groups := make(map[string][]Chunk)
	for _, c := range newestFirst {
		key := c.DocumentID
		if key == "" {
			key = c.ID
		}
		if _, seen := groups[key]; !seen {
			if limit > 0 && len(order) == limit {
				continue
			}
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	msgs := make([]Chunk, len(order))
	for i, key := range order {
		msgs[len(order)-1-i] = joinChunks(groups[key])
	}
	return ChatHistoryWindow{Messages: msgs}
}

// CountMessages returns the number of distinct messages among chunks.
func CountMessages(chunks []Chunk) int {
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		key := c.DocumentID
		if key == "" {
			key = c.ID
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}

func joinChunks(chunks []Chunk) Chunk {
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	msg := chunks[0]
	msg.Embedding = nil
	msg.Position = 0
	if len(chunks) == 1 {
		return msg
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	msg.ID = msg.DocumentID
	msg.Content = strings.Join(texts, " ")
	return msg
}

// Query is a user question plus its request metadata.
type Query struct {
	Text     string
	Tenant   string
	ChatID   string
	Metadata map[string]any
}

// BlockKind labels an assembled context block.
type BlockKind string

// Block kinds, in assembly order.
const (
	BlockRetrieved BlockKind = "retrieved"
	BlockHistory   BlockKind = "history"
	BlockQuery     BlockKind = "query"
)

// ContextBlock is one formatted unit of model input.
type ContextBlock struct {
	Kind BlockKind
	Text string
}

// AssembledContext is the formatted input for synthesis.
// Blocks holds retrieved items then chat history; Question is the
// formatted user query, which is appended to every generation call.
type AssembledContext struct {
	Blocks   []ContextBlock
	Question string
}

// Texts returns the block texts in order.
func (a *AssembledContext) Texts() []string {
	out := make([]string, len(a.Blocks))
	for i, b := range a.Blocks {
		out[i] = b.Text
	}
	return out
}

// String renders the full context, question last.
func (a *AssembledContext) String() string {
	var sb strings.Builder
	for _, b := range a.Blocks {
		sb.WriteString(b.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString(a.Question)
	return sb.String()
}
