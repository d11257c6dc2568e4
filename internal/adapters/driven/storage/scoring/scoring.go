// Package scoring ranks chunks in Go for stores without native vector or
// full-text support.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b.
// Vectors of different lengths fail with domain.ErrDimensionMismatch.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", domain.ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// RankBySimilarity scores every chunk against vector and returns the topK
// best as embedding items, most similar first. Chunks without an embedding
// are skipped.
func RankBySimilarity(vector []float32, chunks []domain.Chunk, topK int) ([]domain.RetrievedItem, error) {
	items := make([]domain.RetrievedItem, 0, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			continue
		}
		sim, err := Cosine(vector, chunks[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunks[i].ID, err)
		}
		items = append(items, domain.RetrievedItem{
			Chunk:  chunks[i],
			Score:  domain.ScoreOf(sim),
			Source: domain.SourceEmbedding,
		})
	}
	return topByScore(items, topK), nil
}

// Terms lowercases text and splits it into letter and digit runs.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75
)

// RankByKeywords scores chunks with BM25 over the candidate set and returns
// the topK best as keyword items. Chunks sharing no term with the query are
// dropped.
func RankByKeywords(query string, chunks []domain.Chunk, topK int) []domain.RetrievedItem {
	queryTerms := unique(Terms(query))
	if len(queryTerms) == 0 || len(chunks) == 0 {
		return nil
	}

	docTerms := make([]map[string]int, len(chunks))
	docLen := make([]int, len(chunks))
	df := make(map[string]int, len(queryTerms))
	var total int
	for i := range chunks {
		tf := make(map[string]int)
		for _, t := range Terms(chunks[i].Content) {
			tf[t]++
			docLen[i]++
		}
		total += docLen[i]
		docTerms[i] = tf
		for _, q := range queryTerms {
			if tf[q] > 0 {
				df[q]++
			}
		}
	}
	avgLen := float64(total) / float64(len(chunks))
	n := float64(len(chunks))

	items := make([]domain.RetrievedItem, 0, len(chunks))
	for i := range chunks {
		var score float64
		for _, q := range queryTerms {
			f := float64(docTerms[i][q])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[q])+0.5)/(float64(df[q])+0.5))
			norm := 1 - b + b*float64(docLen[i])/avgLen
			score += idf * f * (k1 + 1) / (f + k1*norm)
		}
		if score <= 0 {
			continue
		}
		items = append(items, domain.RetrievedItem{
			Chunk:  chunks[i],
			Score:  domain.ScoreOf(score),
			Source: domain.SourceKeyword,
		})
	}
	return topByScore(items, topK)
}

func topByScore(items []domain.RetrievedItem, topK int) []domain.RetrievedItem {
	sort.SliceStable(items, func(i, j int) bool {
		return *items[i].Score > *items[j].Score
	})
	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}
	return items
}

func unique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
