package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceEnd matches one sentence: text up to terminal punctuation,
// a line break, or the end of input.
var sentenceEnd = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)

// splitSentences cuts text into sentences that together cover all of it.
// Each boundary is the start of a regexp match, so punctuation or blank
// lines between matches stay attached to the preceding sentence.
func splitSentences(text string) []string {
	matches := sentenceEnd.FindAllStringIndex(text, -1)

	starts := make([]int, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(text[m[0]:m[1]]) == "" {
			continue
		}
		starts = append(starts, m[0])
	}
	if len(starts) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	starts[0] = 0

	sentences := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		sentences = append(sentences, text[start:end])
	}
	return sentences
}

// splitToLimit hard-splits text into pieces of at most limit runes,
// preferring to cut at whitespace in the second half of a window.
// Empty pieces are dropped. A non-positive limit disables splitting.
func splitToLimit(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var out []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if piece := strings.TrimSpace(string(runes)); piece != "" {
		out = append(out, piece)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
