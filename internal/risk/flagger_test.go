package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_Empty(t *testing.T) {
	assert.Empty(t, Detect(""))
	assert.Empty(t, Detect("\n\n   \n"))
}

func TestDetect_LiquidatedDamages(t *testing.T) {
	flags := Detect("Intro line\nLiquidated damages of $500 per day shall apply.")
	require.Len(t, flags, 1)
	assert.Equal(t, "liquidated_damages", flags[0].Code)
	assert.Equal(t, "Liquidated damages clause present", flags[0].Message)
	assert.Equal(t, 2, flags[0].Line)
	assert.Equal(t, "Liquidated damages of $500 per day shall apply.", flags[0].Snippet)
}

func TestDetect_Bonding(t *testing.T) {
	flags := Detect("A performance bond is required for this contract.")
	require.Len(t, flags, 1)
	assert.Equal(t, "bonding", flags[0].Code)
	assert.Equal(t, "Bonding requirement detected", flags[0].Message)
}

func TestDetect_WarrantyParameterized(t *testing.T) {
	flags := Detect("Roof warranty shall extend 10 years from substantial completion.")
	require.Len(t, flags, 1)
	assert.Equal(t, "warranty_anomaly", flags[0].Code)
	assert.Equal(t, "Extended warranty obligation (10-year)", flags[0].Message)
}

func TestDetect_DedupSameLineSameMessage(t *testing.T) {
	// Both "no substitution" occurrences are on the same line and render the
	// same message, so only one flag comes back.
	flags := Detect("No substitutions allowed; strictly no substitutions.")
	require.Len(t, flags, 1)
	assert.Equal(t, "no_substitutions", flags[0].Code)
}

func TestDetect_SameCodeDifferentLinesKept(t *testing.T) {
	text := "Bid bond: 5%\nintervening text\nPayment bond: 100%"
	flags := Detect(text)
	require.Len(t, flags, 2)
	assert.Equal(t, 1, flags[0].Line)
	assert.Equal(t, 3, flags[1].Line)
}

func TestDetect_MultipleCodesOnOneLine(t *testing.T) {
	flags := Detect("Liquidated damages apply and a performance bond is required.")
	require.Len(t, flags, 2)
	assert.Equal(t, "liquidated_damages", flags[0].Code)
	assert.Equal(t, "bonding", flags[1].Code)
}

func TestDetect_BlankLinesDoNotShiftNumbering(t *testing.T) {
	text := "\n\nwarranty period of 5 years applies\n"
	flags := Detect(text)
	require.Len(t, flags, 1)
	assert.Equal(t, 3, flags[0].Line)
}

func TestDetect_SnippetTrimmed(t *testing.T) {
	line := "Liquidated damages " + strings.Repeat("x", 300)
	flags := Detect(line)
	require.Len(t, flags, 1)
	assert.Len(t, flags[0].Snippet, 180)
	assert.True(t, strings.HasSuffix(flags[0].Snippet, "..."))
}
