package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscipline_FirstMatchWins(t *testing.T) {
	// "site" (CIV) appears before any STR keyword in the ordered rule set,
	// even though the text mentions steel.
	label := Discipline("Site preparation requires structural steel shoring")
	assert.Equal(t, "CIV", label)
}

func TestDiscipline_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "MEP", Discipline("HVAC equipment schedule"))
	assert.Equal(t, "EL", Discipline("Main SWITCHGEAR room"))
}

func TestDiscipline_NoMatch(t *testing.T) {
	assert.Equal(t, "", Discipline("lorem ipsum dolor"))
}

func TestSection_KeywordScoring(t *testing.T) {
	text := "INSTRUCTIONS TO BIDDERS\nBid submission is due Friday. The bid opening follows."
	assert.Equal(t, "instructions_to_bidders", Section(text, ""))
}

func TestSection_RegexBoost(t *testing.T) {
	text := "Refer to SECTION 09 91 00 and Division 09 for finishes."
	// specifications regex hits outweigh the single ARC-ish keyword.
	assert.Equal(t, "specifications", Section(text, "finishes.pdf"))
}

func TestSection_FilenameHints(t *testing.T) {
	text := "This document is intentionally vague about milestone dates."
	assert.Equal(t, "schedules", Section(text, "phasing-schedule.xlsx"))
}

func TestSection_SpecNumberFallback(t *testing.T) {
	assert.Equal(t, "specifications", Section("SECTION 03 30 00", ""))
	assert.Equal(t, "specifications", Section("PART 1 - GENERAL", ""))
}

func TestSection_NoMatchReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", Section("completely unrelated prose", "notes.txt"))
	assert.Equal(t, "", Section("", "anything.pdf"))
}

func TestSection_Deterministic(t *testing.T) {
	text := "Performance bond and payment bond required; see insurance requirements."
	first := Section(text, "bonds.pdf")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Section(text, "bonds.pdf"))
	}
	assert.Equal(t, "bonds_and_insurance", first)
}

func TestDetectRevision(t *testing.T) {
	assert.Equal(t, "B", DetectRevision("Issued for bid rev b"))
	assert.Equal(t, "3", DetectRevision("Drawing A-101 REV 3"))
	assert.Equal(t, "", DetectRevision("no marker here"))
}

func TestDetectAddendum(t *testing.T) {
	assert.Equal(t, "2", DetectAddendum("See Addendum 2 for changes"))
	assert.Equal(t, "A", DetectAddendum("ADDENDA a issued"))
	assert.Equal(t, "", DetectAddendum("bulletin only"))
}

func TestSpecSections_TitleOnFollowingLine(t *testing.T) {
	text := "SECTION 03 30 00\nPART 1 - GENERAL\nCAST-IN-PLACE CONCRETE"
	sections := SpecSections(text)
	require.Len(t, sections, 1)
	assert.Equal(t, "03 30 00", sections[0].Number)
	assert.Equal(t, "CAST-IN-PLACE CONCRETE", sections[0].Title)
}

func TestSpecSections_TitleInline(t *testing.T) {
	sections := SpecSections("SECTION 09 91 00 - PAINTING\nPART 2 - PRODUCTS")
	require.Len(t, sections, 1)
	assert.Equal(t, "09 91 00", sections[0].Number)
	assert.Equal(t, "PAINTING", sections[0].Title)
}

func TestSpecSections_MultipleInOrder(t *testing.T) {
	text := "SECTION 03 30 00 - CONCRETE\nbody\nSECTION 05 12 00 - STRUCTURAL STEEL"
	sections := SpecSections(text)
	require.Len(t, sections, 2)
	assert.Equal(t, "03 30 00", sections[0].Number)
	assert.Equal(t, "05 12 00", sections[1].Number)
}

func TestSpecSections_None(t *testing.T) {
	assert.Empty(t, SpecSections("no headings here"))
	assert.Empty(t, SpecSections(""))
}
