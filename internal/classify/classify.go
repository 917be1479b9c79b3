// Package classify labels normalized document text with a discipline, a
// bid-document section tag, and revision/addendum tokens. Rules live in an
// embedded YAML document and are evaluated in declaration order so that
// classification is deterministic, including score ties.
package classify

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type disciplineRule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

type sectionRule struct {
	Label         string   `yaml:"label"`
	Weight        float64  `yaml:"weight"`
	Keywords      []string `yaml:"keywords"`
	Regexes       []string `yaml:"regexes"`
	FilenameHints []string `yaml:"filename_hints"`

	compiled []*regexp.Regexp
}

type ruleSet struct {
	Disciplines []disciplineRule `yaml:"disciplines"`
	Sections    []sectionRule    `yaml:"sections"`
}

var rules ruleSet

var (
	revisionRE      = regexp.MustCompile(`(?i)REV\s*(\w+)`)
	addendumRE      = regexp.MustCompile(`(?i)ADDEND(?:UM|A)\s*(\w+)`)
	sectionNumberRE = regexp.MustCompile(`(?i)section\s+\d{2}\s+\d{2}\s+\d{2}`)
	partPatternRE   = regexp.MustCompile(`(?i)PART\s+[123]\s+-`)
)

func init() {
	if err := loadRules(rulesYAML); err != nil {
		panic(err)
	}
}

func loadRules(data []byte) error {
	var rs ruleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return eris.Wrap(err, "classify: parse rules")
	}
	for i := range rs.Sections {
		for _, pattern := range rs.Sections[i].Regexes {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return eris.Wrapf(err, "classify: compile rule %s", rs.Sections[i].Label)
			}
			rs.Sections[i].compiled = append(rs.Sections[i].compiled, re)
		}
	}
	rules = rs
	return nil
}

// Discipline returns the first discipline label whose keyword set has a
// case-insensitive substring hit in text, or "" when none match.
func Discipline(text string) string {
	lowered := strings.ToLower(text)
	for _, rule := range rules.Disciplines {
		for _, keyword := range rule.Keywords {
			if keyword != "" && strings.Contains(lowered, keyword) {
				return rule.Label
			}
		}
	}
	return ""
}

// Section scores every section rule against the text and optional filename
// and returns the best label, or "" when nothing scores. A text with no rule
// hits that still carries a CSI section number or "PART n -" heading falls
// back to the specifications label.
func Section(text, filename string) string {
	if text == "" {
		return ""
	}
	textLower := strings.ToLower(text)
	filenameLower := strings.ToLower(filename)

	bestLabel := ""
	bestScore := 0.0
	for _, rule := range rules.Sections {
		score := 0.0
		if hits := countKeywordHits(textLower, rule.Keywords); hits > 0 {
			score += float64(hits) * rule.Weight
		}
		if hits := countRegexHits(text, rule.compiled); hits > 0 {
			score += float64(hits) * (rule.Weight + 1)
		}
		if hits := countKeywordHits(filenameLower, rule.FilenameHints); hits > 0 {
			score += float64(hits) * rule.Weight * 0.8
		}
		if score > bestScore {
			bestScore = score
			bestLabel = rule.Label
		}
	}

	if bestLabel == "" && (sectionNumberRE.MatchString(text) || partPatternRE.MatchString(text)) {
		return "specifications"
	}
	return bestLabel
}

// DetectRevision returns the uppercased token following a "REV" marker,
// or "" when absent.
func DetectRevision(text string) string {
	if m := revisionRE.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// DetectAddendum returns the uppercased token following an "ADDENDUM" or
// "ADDENDA" marker, or "" when absent.
func DetectAddendum(text string) string {
	if m := addendumRE.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func countKeywordHits(haystack string, keywords []string) int {
	hits := 0
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(haystack, keyword) {
			hits++
		}
	}
	return hits
}

func countRegexHits(text string, patterns []*regexp.Regexp) int {
	hits := 0
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			hits++
		}
	}
	return hits
}
