package domain

// Suggestion is the structured answer of the suggest use case.
type Suggestion struct {
	// Message is the proposed reply.
	Message string `json:"message" jsonschema:"the reply to the last message"`

	// Score rates from 1 to 10 whether the last message was addressed to the assistant.
	Score int `json:"score" jsonschema:"1-10 rating of whether the last message was addressed to CoWorker"`

	// Relevance rates from 1 to 10 how useful the reply is.
	Relevance int `json:"relevance" jsonschema:"1-10 rating of how relevant and useful the reply is"`
}

// SuggestThresholds gate whether a suggestion is surfaced.
type SuggestThresholds struct {
	MinScore     int
	MinRelevance int

	// MinSimilarity is the retrieval floor for suggestions. Without an
	// embedding match at or above it no reply is generated.
	MinSimilarity float64
}

// DefaultSuggestThresholds returns the standard gate of 7/7 over a
// similarity floor of 0.85.
func DefaultSuggestThresholds() SuggestThresholds {
	return SuggestThresholds{MinScore: 7, MinRelevance: 7, MinSimilarity: 0.85}
}

// Passes reports whether the suggestion clears both thresholds.
func (t SuggestThresholds) Passes(s Suggestion) bool {
	return s.Score >= t.MinScore && s.Relevance >= t.MinRelevance
}
