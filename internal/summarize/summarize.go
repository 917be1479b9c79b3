// Package summarize produces ranked extractive highlights across the parsed
// documents of a run. Scoring is purely frequency based and deterministic:
// the same inputs always yield the same highlights, which keeps runs
// reproducible and testable offline.
package summarize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Source is one parsed document feeding the summarizer.
type Source struct {
	DocumentID string
	RelPath    string
	Text       string
}

// Highlight is one ranked sentence extracted from a source document.
type Highlight struct {
	DocumentID string
	RelPath    string
	Snippet    string
	Score      float64
	Rank       int
}

// Result aggregates highlights with corpus-level stats and an overview line.
type Result struct {
	Highlights    []Highlight
	Overview      string
	WordCount     int
	DocumentCount int
}

// DefaultMaxSentences bounds the highlight list when the caller passes no limit.
const DefaultMaxSentences = 8

const maxSnippetChars = 280

var (
	wordRE     = regexp.MustCompile(`[a-zA-Z][a-zA-Z'\-]*`)
	sentenceRE = regexp.MustCompile(`[.!?]\s+|\n+`)

	stopwords = map[string]struct{}{
		"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
		"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
		"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "shall": {},
		"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "will": {},
		"with": {},
	}
)

type scoredSentence struct {
	docIndex      int
	sentenceIndex int
	source        Source
	text          string
	score         float64
}

// Documents scores every sentence of every source against corpus-wide word
// frequencies and returns the top maxSentences as ranked highlights.
// Ties break by input order, then sentence order, so output is stable.
func Documents(sources []Source, maxSentences int) Result {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}

	freq := make(map[string]int)
	wordCount := 0
	for _, src := range sources {
		for _, word := range wordRE.FindAllString(strings.ToLower(src.Text), -1) {
			wordCount++
			if _, skip := stopwords[word]; skip {
				continue
			}
			freq[word]++
		}
	}

	var candidates []scoredSentence
	for docIndex, src := range sources {
		for sentenceIndex, raw := range splitSentences(src.Text) {
			words := wordRE.FindAllString(strings.ToLower(raw), -1)
			if len(words) < 3 {
				continue
			}
			total := 0.0
			for _, word := range words {
				total += float64(freq[word])
			}
			candidates = append(candidates, scoredSentence{
				docIndex:      docIndex,
				sentenceIndex: sentenceIndex,
				source:        src,
				text:          raw,
				score:         total / float64(len(words)),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].docIndex != candidates[j].docIndex {
			return candidates[i].docIndex < candidates[j].docIndex
		}
		return candidates[i].sentenceIndex < candidates[j].sentenceIndex
	})

	if len(candidates) > maxSentences {
		candidates = candidates[:maxSentences]
	}

	highlights := make([]Highlight, 0, len(candidates))
	for rank, cand := range candidates {
		highlights = append(highlights, Highlight{
			DocumentID: cand.source.DocumentID,
			RelPath:    cand.source.RelPath,
			Snippet:    trimSnippet(cand.text),
			Score:      cand.score,
			Rank:       rank + 1,
		})
	}

	return Result{
		Highlights:    highlights,
		Overview:      overview(len(sources), wordCount, freq),
		WordCount:     wordCount,
		DocumentCount: len(sources),
	}
}

func splitSentences(text string) []string {
	var sentences []string
	for _, part := range sentenceRE.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

func trimSnippet(text string) string {
	snippet := strings.Join(strings.Fields(text), " ")
	if len(snippet) <= maxSnippetChars {
		return snippet
	}
	return strings.TrimRight(snippet[:maxSnippetChars-3], " ") + "..."
}

// overview renders a one-line corpus description naming the top recurring
// terms, most frequent first with alphabetical tie-breaks.
func overview(documents, words int, freq map[string]int) string {
	if documents == 0 || words == 0 {
		return "No parsed document text available."
	}

	terms := make([]string, 0, len(freq))
	for word := range freq {
		terms = append(terms, word)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > 5 {
		terms = terms[:5]
	}

	return fmt.Sprintf("%d documents, %d words; recurring terms: %s.",
		documents, words, strings.Join(terms, ", "))
}
