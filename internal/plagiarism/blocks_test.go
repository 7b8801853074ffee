package plagiarism

import (
	"testing"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, Jaccard("a b", "b c"), 1e-9)
	assert.Equal(t, 1.0, Jaccard("x y", "y x"))
	assert.Equal(t, 0.0, Jaccard("", "x"))
}

func TestEditRatio(t *testing.T) {
	assert.InDelta(t, 8.0/13.0, EditRatio("kitten", "sitting"), 1e-9)
	assert.Equal(t, 1.0, EditRatio("", ""))
	assert.Equal(t, 1.0, EditRatio("same", "same"))
	assert.Equal(t, 0.0, EditRatio("abc", ""))
}

func TestEditRatio_CountsMatchedCharactersNotEdits(t *testing.T) {
	// A swap costs two edits but keeps one character in order.
	assert.Equal(t, 0.5, EditRatio("ab", "ba"))
	assert.InDelta(t, 26.0/27.0, EditRatio("<VAR> = <NUM>", "<VAR> += <NUM>"), 1e-9)
}

func TestMatchBlocks_SelfMatchIsOneBlock(t *testing.T) {
	lines := []string{
		"def <VAR>(<VAR>):",
		"if <VAR> <= <NUM>:",
		"return <NUM>",
		"return <VAR>(<VAR> - <NUM>) + <VAR>(<VAR> - <NUM>)",
	}

	blocks := MatchBlocks(lines, lines, 3, 0.85)

	require.Len(t, blocks, 1)
	assert.Equal(t, []models.LinePair{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, blocks[0])
}

func TestMatchBlocks_ShortRunsDropped(t *testing.T) {
	a := []string{"import <VAR>", "print(<VAR>)"}
	assert.Empty(t, MatchBlocks(a, a, 3, 0.85))
}

func TestMatchBlocks_FindsEmbeddedRun(t *testing.T) {
	a := []string{
		"while <VAR> < <NUM>:",
		"<VAR> += <NUM>",
		"print(<VAR>)",
	}
	b := []string{
		"import <VAR>",
		"class <VAR>:",
		"while <VAR> < <NUM>:",
		"<VAR> += <NUM>",
		"print(<VAR>)",
	}

	blocks := MatchBlocks(a, b, 3, 0.85)
	require.Len(t, blocks, 1)
	assert.Equal(t, []models.LinePair{{0, 2}, {1, 3}, {2, 4}}, blocks[0])
}

func TestCompareBlocks(t *testing.T) {
	reference := `
def area(width, height):
    result = width * height
    print(result)
    return result
`
	renamed := `
def surface(w, h):
    # renamed everything
    out = w * h
    print(out)
    return out
`
	unrelated := `
import sys
class Thing:
    pass
`
	th := DefaultWeights().Code

	same := CompareBlocks(renamed, reference, th)
	assert.Equal(t, 4, same.MatchedLines)
	assert.Equal(t, 4, same.TotalLines)
	assert.Equal(t, 100.0, same.PlagiarismScore)

	none := CompareBlocks(unrelated, reference, th)
	assert.Equal(t, 0, none.MatchedLines)
	assert.Equal(t, 0.0, none.PlagiarismScore)
	assert.NotNil(t, none.MatchedBlocks)

	empty := CompareBlocks("", reference, th)
	assert.Equal(t, 1, empty.TotalLines)
	assert.Equal(t, 0.0, empty.PlagiarismScore)
}

func TestBlockMatches_CarryLineRangesAndReferenceText(t *testing.T) {
	reference := "import os\nx = 1\nwhile x < 10:\n    x += 1\nprint(x)\n"
	submission := "while y < 10:\n    y += 1\nprint(y)\n"
	bm := CompareBlocks(submission, reference, DefaultWeights().Code)
	require.Len(t, bm.MatchedBlocks, 1)

	matches := BlockMatches(submission, reference, "reference_0", bm, 2)

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, 2, m.SentenceID)
	assert.Equal(t, models.SignalCodeBlock, m.Signal)
	assert.Equal(t, 1.0, m.Confidence)
	assert.Equal(t, "reference_0", m.Source)
	assert.Equal(t, "while <VAR> < <NUM>:\n<VAR> += <NUM>\n<VAR>(<VAR>)", m.MatchedText)
	require.NotNil(t, m.Lines)
	assert.Equal(t, models.LineRange{Start: 0, End: 2}, *m.Lines)
}

func TestBlockMatches_NoBlocks(t *testing.T) {
	bm := CompareBlocks("print(1)\n", "import os\n", DefaultWeights().Code)
	assert.Empty(t, BlockMatches("print(1)\n", "import os\n", "reference_0", bm, 0))
}
