package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments_Empty(t *testing.T) {
	result := Documents(nil, 8)
	assert.Empty(t, result.Highlights)
	assert.Equal(t, 0, result.DocumentCount)
	assert.Equal(t, 0, result.WordCount)
	assert.Equal(t, "No parsed document text available.", result.Overview)
}

func TestDocuments_RanksRepeatedThemes(t *testing.T) {
	sources := []Source{
		{
			DocumentID: "f1",
			RelPath:    "specs/concrete.txt",
			Text: "Concrete placement requires concrete curing compound. " +
				"Concrete strength verification follows placement. " +
				"Lunch breaks happen daily.",
		},
	}
	result := Documents(sources, 2)
	require.Len(t, result.Highlights, 2)
	// Sentences dense in the recurring term outrank the unrelated one.
	assert.Contains(t, strings.ToLower(result.Highlights[0].Snippet), "concrete")
	assert.Equal(t, 1, result.Highlights[0].Rank)
	assert.Equal(t, 2, result.Highlights[1].Rank)
	assert.GreaterOrEqual(t, result.Highlights[0].Score, result.Highlights[1].Score)
	assert.Equal(t, "f1", result.Highlights[0].DocumentID)
	assert.Equal(t, "specs/concrete.txt", result.Highlights[0].RelPath)
}

func TestDocuments_MaxSentencesBound(t *testing.T) {
	text := strings.Repeat("Structural steel erection follows foundation work. ", 20)
	result := Documents([]Source{{DocumentID: "f1", RelPath: "a.txt", Text: text}}, 3)
	assert.Len(t, result.Highlights, 3)
}

func TestDocuments_Deterministic(t *testing.T) {
	sources := []Source{
		{DocumentID: "f1", RelPath: "a.txt", Text: "Performance bond required before mobilization. Schedule milestones are fixed."},
		{DocumentID: "f2", RelPath: "b.txt", Text: "Payment bond required before mobilization. Schedule milestones are fixed."},
	}
	first := Documents(sources, 4)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Documents(sources, 4))
	}
}

func TestDocuments_TieBreaksFollowInputOrder(t *testing.T) {
	// Identical sentences in two documents score identically; the first
	// document's sentence ranks first.
	sources := []Source{
		{DocumentID: "f1", RelPath: "a.txt", Text: "Submittals are due within thirty days."},
		{DocumentID: "f2", RelPath: "b.txt", Text: "Submittals are due within thirty days."},
	}
	result := Documents(sources, 2)
	require.Len(t, result.Highlights, 2)
	assert.Equal(t, "f1", result.Highlights[0].DocumentID)
	assert.Equal(t, "f2", result.Highlights[1].DocumentID)
}

func TestDocuments_ShortFragmentsSkipped(t *testing.T) {
	result := Documents([]Source{{DocumentID: "f1", RelPath: "a.txt", Text: "Yes. No. OK then."}}, 8)
	assert.Empty(t, result.Highlights)
	assert.NotZero(t, result.WordCount)
}

func TestDocuments_CountsWordsAcrossDocuments(t *testing.T) {
	sources := []Source{
		{DocumentID: "f1", RelPath: "a.txt", Text: "alpha beta gamma"},
		{DocumentID: "f2", RelPath: "b.txt", Text: "delta epsilon"},
	}
	result := Documents(sources, 8)
	assert.Equal(t, 5, result.WordCount)
	assert.Equal(t, 2, result.DocumentCount)
}

func TestDocuments_SnippetTrimmed(t *testing.T) {
	long := "Coordination meeting notes " + strings.Repeat("coordination ", 40) + "end"
	result := Documents([]Source{{DocumentID: "f1", RelPath: "a.txt", Text: long}}, 1)
	require.Len(t, result.Highlights, 1)
	assert.LessOrEqual(t, len(result.Highlights[0].Snippet), maxSnippetChars)
	assert.True(t, strings.HasSuffix(result.Highlights[0].Snippet, "..."))
}

func TestRenderMarkdown(t *testing.T) {
	result := Result{
		Highlights: []Highlight{
			{RelPath: "specs/div03.txt", Snippet: "Concrete strength 4000 psi.", Score: 3.5, Rank: 1},
		},
		Overview:      "1 documents, 4 words; recurring terms: concrete.",
		WordCount:     4,
		DocumentCount: 1,
	}
	md := RenderMarkdown(result, "2026-08-30T00:00:00Z")
	assert.Contains(t, md, "# Bid Package Summary")
	assert.Contains(t, md, "Generated: 2026-08-30T00:00:00Z")
	assert.Contains(t, md, "1. **specs/div03.txt** (score 3.50): Concrete strength 4000 psi.")
	assert.Contains(t, md, "1 documents · 4 words")
}

func TestRenderMarkdown_NoHighlights(t *testing.T) {
	md := RenderMarkdown(Result{Overview: "No parsed document text available."}, "now")
	assert.NotContains(t, md, "## Highlights")
	assert.Contains(t, md, "No parsed document text available.")
}
