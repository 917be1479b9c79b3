package classify

import (
	"regexp"
	"strings"
)

var csiSectionRE = regexp.MustCompile(`(?i)SECTION\s+(\d{2}\s\d{2}\s\d{2})\s*(.*)`)

// SpecSection is one CSI MasterFormat section heading found in a document.
type SpecSection struct {
	Number string
	Title  string
}

// SpecSections extracts CSI section headings ("SECTION 03 30 00") in document
// order. The title is taken from the heading line itself when present,
// otherwise from the next non-empty line that is not a "PART n -" divider.
func SpecSections(text string) []SpecSection {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	var sections []SpecSection
	for i, line := range lines {
		m := csiSectionRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		number := m[1]
		title := strings.TrimSpace(m[2])
		title = strings.TrimLeft(title, "-– ")
		if title == "" {
			title = followingTitle(lines, i+1)
		}
		sections = append(sections, SpecSection{Number: number, Title: title})
	}
	return sections
}

func followingTitle(lines []string, from int) string {
	for _, line := range lines[from:] {
		candidate := strings.TrimSpace(line)
		if candidate == "" {
			continue
		}
		if partPatternRE.MatchString(candidate) {
			continue
		}
		if csiSectionRE.MatchString(candidate) {
			return ""
		}
		return candidate
	}
	return ""
}
