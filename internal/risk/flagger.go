// Package risk scans parsed document text for contractual red flags:
// liquidated damages, bonding requirements, no-substitution clauses, and
// extended warranty obligations.
package risk

import (
	"fmt"
	"regexp"
	"strings"
)

// Flag is one detected risk indicator with a 1-based line reference so
// dashboards can deep link into the document.
type Flag struct {
	Code    string
	Message string
	Line    int
	Snippet string
}

type pattern struct {
	code    string
	re      *regexp.Regexp
	message string
}

// Ordered: matches on the same line are reported in declaration order.
var patterns = []pattern{
	{
		code:    "liquidated_damages",
		re:      regexp.MustCompile(`(?i)liquidated\s+damages?[^\n]*`),
		message: "Liquidated damages clause present",
	},
	{
		code:    "bonding",
		re:      regexp.MustCompile(`(?i)(bid|performance|payment)\s+bond[^\n]*`),
		message: "Bonding requirement detected",
	},
	{
		code:    "no_substitutions",
		re:      regexp.MustCompile(`(?i)no\s+substitutions?[^\n]*`),
		message: "No substitutions clause present",
	},
	{
		code:    "warranty_anomaly",
		re:      regexp.MustCompile(`(?i)warranty[^\n]*?(\d{1,2})[-\s]?(?:year|yr)`),
		message: "Extended warranty obligation",
	},
}

const snippetLimit = 180

func trimSnippet(text string) string {
	snippet := strings.TrimSpace(text)
	if len(snippet) <= snippetLimit {
		return snippet
	}
	return strings.TrimRight(snippet[:snippetLimit-3], " \t") + "..."
}

type dedupKey struct {
	code    string
	line    int
	message string
}

// Detect scans text line by line against the pattern set. Duplicate
// (code, line, message) findings collapse to one entry; the same code on a
// different line, or a differently parameterized message on the same line,
// are both kept. Empty input yields an empty list.
func Detect(text string) []Flag {
	if text == "" {
		return nil
	}

	var flags []Flag
	seen := make(map[dedupKey]struct{})
	for index, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		for _, p := range patterns {
			match := p.re.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			message := p.message
			if p.code == "warranty_anomaly" && len(match) > 1 {
				message = fmt.Sprintf("Extended warranty obligation (%s-year)", match[len(match)-1])
			}
			key := dedupKey{code: p.code, line: index + 1, message: message}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			flags = append(flags, Flag{
				Code:    p.code,
				Message: message,
				Line:    index + 1,
				Snippet: trimSnippet(line),
			})
		}
	}
	return flags
}
