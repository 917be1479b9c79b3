// Package normalize collapses, redacts, and chunks extracted document text
// ahead of classification and indexing.
package normalize

import (
	"regexp"
	"strings"
)

var (
	emailRE = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`(?:(?:\+|00)\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)

	horizontalWS = regexp.MustCompile(`[ \t\f\v]+`)
	lineEdgeWS   = regexp.MustCompile(` *\n *`)
	blankRuns    = regexp.MustCompile(`\n{2,}`)
)

const (
	emailPlaceholder = "[REDACTED_EMAIL]"
	phonePlaceholder = "[REDACTED_PHONE]"

	// DefaultMinChars and DefaultMaxChars bound chunk sizes when the caller
	// supplies no explicit configuration.
	DefaultMinChars = 1500
	DefaultMaxChars = 2000
)

// Chunk is a bounded-length slice of a document's normalized text. The full
// sanitized document text rides along so downstream consumers can retain it
// on the first chunk only.
type Chunk struct {
	Text         string
	Index        int
	Redacted     bool
	DocumentText string
}

// Collapse folds CRLF/CR line endings to "\n", collapses horizontal
// whitespace runs to one space, collapses blank-line runs, and trims.
func Collapse(value string) string {
	if value == "" {
		return ""
	}
	normalized := strings.ReplaceAll(value, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = horizontalWS.ReplaceAllString(normalized, " ")
	normalized = lineEdgeWS.ReplaceAllString(normalized, "\n")
	normalized = blankRuns.ReplaceAllString(normalized, "\n")
	return strings.TrimSpace(normalized)
}

// Sanitize collapses whitespace and, when redact is set, replaces e-mail
// addresses and phone numbers with fixed placeholder tokens. The second
// return reports whether any substitution occurred.
func Sanitize(text string, redact bool) (string, bool) {
	collapsed := Collapse(text)
	if collapsed == "" {
		return "", false
	}
	if !redact {
		return collapsed, false
	}
	redacted := false
	result := emailRE.ReplaceAllStringFunc(collapsed, func(string) string {
		redacted = true
		return emailPlaceholder
	})
	result = phoneRE.ReplaceAllStringFunc(result, func(string) string {
		redacted = true
		return phonePlaceholder
	})
	return result, redacted
}

// Chunks sanitizes text and splits it into word-boundary-aware chunks within
// [minChars, maxChars]. Empty or whitespace-only input yields no chunks;
// maxChars below minChars is coerced up.
func Chunks(text string, redact bool, minChars, maxChars int) []Chunk {
	sanitized, redacted := Sanitize(text, redact)
	if sanitized == "" {
		return nil
	}
	if minChars < 1 {
		minChars = 1
	}
	if maxChars < minChars {
		maxChars = minChars
	}

	flattened := strings.ReplaceAll(sanitized, "\n", " ")
	parts := chunkByWords(flattened, minChars, maxChars)

	chunks := make([]Chunk, 0, len(parts))
	for idx, part := range parts {
		chunks = append(chunks, Chunk{
			Text:         part,
			Index:        idx,
			Redacted:     redacted,
			DocumentText: sanitized,
		})
	}
	return chunks
}

// chunkByWords cuts at the last space before maxChars, never earlier than
// minChars into the window, with a hard cut when no space is found. A short
// trailing chunk is merged into its predecessor when the merge still fits.
func chunkByWords(text string, minChars, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	length := len(text)
	start := 0
	for start < length {
		windowEnd := min(start+maxChars, length)
		end := windowEnd
		searchStart := min(length, start+minChars)
		if searchStart < windowEnd {
			if rel := strings.LastIndex(text[searchStart:windowEnd], " "); rel >= 0 {
				if bp := searchStart + rel; bp > start {
					end = bp
				}
			}
		}
		chunk := strings.TrimSpace(text[start:end])
		if chunk == "" {
			end = min(start+maxChars, length)
			chunk = strings.TrimSpace(text[start:end])
		}
		if chunk == "" {
			break
		}
		chunks = append(chunks, chunk)
		start = end
		for start < length && isSpace(text[start]) {
			start++
		}
	}

	if n := len(chunks); n > 1 && len(chunks[n-1]) < minChars {
		prev, last := chunks[n-2], chunks[n-1]
		if len(prev)+1+len(last) <= maxChars {
			chunks[n-2] = strings.TrimSpace(prev + " " + last)
			chunks = chunks[:n-1]
		}
	}
	return chunks
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
