package domain

import "time"

// Source identifies which retrieval path produced an item.
type Source string

// Retrieval sources.
const (
	SourceEmbedding Source = "embedding"
	SourceKeyword   Source = "keyword"
	SourceContext   Source = "context"
)

// RetrievedItem is a chunk returned by one retrieval source.
// Score is nil for the unranked context source.
type RetrievedItem struct {
	Chunk  Chunk
	Score  *float64
	Source Source
}

// ScoreOf is a convenience for building scored items.
func ScoreOf(v float64) *float64 {
	return &v
}

// RetrievalRequest is the input to multi-source retrieval.
type RetrievalRequest struct {
	// Query is the user's question or message text.
	Query string

	// Tenant scopes every sub-query.
	Tenant string

	// ChatID optionally restricts the context fetch to one conversation.
	ChatID string

	// Since optionally restricts the context fetch to items strictly newer than it.
	Since time.Time

	// ExcludeQueryText drops context chunks of any message whose trimmed
	// text equals Query, so a just-ingested message never retrieves itself.
	ExcludeQueryText bool

	// MinSimilarity drops embedding items scoring below it; 0 keeps all.
	MinSimilarity float64
}

// RetrievalResult holds the three source lists, each in source order.
type RetrievalResult struct {
	Embedding []RetrievedItem
	Keyword   []RetrievedItem
	Context   []RetrievedItem
}

// Len returns the total number of items across sources.
func (r *RetrievalResult) Len() int {
	return len(r.Embedding) + len(r.Keyword) + len(r.Context)
}

// FusionPolicy controls how the three source lists are combined.
type FusionPolicy string

// Fusion policies.
const (
	// FusionKeepAll concatenates sources; a chunk may appear once per source.
	FusionKeepAll FusionPolicy = "keep_all"

	// FusionDedupe keeps the first occurrence of each chunk ID.
	FusionDedupe FusionPolicy = "dedupe"
)

// IsValid returns true if the policy is recognised.
func (p FusionPolicy) IsValid() bool {
	return p == FusionKeepAll || p == FusionDedupe
}

// Fuse flattens the result in embedding, keyword, context order.
func (r *RetrievalResult) Fuse(policy FusionPolicy) []RetrievedItem {
	out := make([]RetrievedItem, 0, r.Len())
	seen := make(map[string]struct{}, r.Len())
	for _, list := range [][]RetrievedItem{r.Embedding, r.Keyword, r.Context} {
		for i := range list {
			if policy == FusionDedupe {
				if _, dup := seen[list[i].Chunk.ID]; dup {
					continue
				}
				seen[list[i].Chunk.ID] = struct{}{}
			}
			out = append(out, list[i])
		}
	}
	return out
}
