package plagiarism

import (
	"strings"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/pmezard/go-difflib/difflib"
)

// Jaccard compares the whitespace-separated token sets of two lines.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for tok := range setA {
		if setB[tok] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// EditRatio is difflib's SequenceMatcher ratio over the characters of both
// lines: 2*M/T, where M counts matched characters and T is the combined
// length. Two empty lines are identical.
func EditRatio(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}

// LineSimilarity averages token-set and character-level similarity.
func LineSimilarity(a, b string) float64 {
	return (Jaccard(a, b) + EditRatio(a, b)) / 2
}

// MatchBlocks finds runs of similar lines in one greedy pass. For each start
// line in a, b is scanned once; every hit advances both sides and every miss
// advances only b. Runs shorter than minBlock are discarded. The result is
// deterministic but not a global optimum.
func MatchBlocks(a, b []string, minBlock int, threshold float64) [][]models.LinePair {
	blocks := make([][]models.LinePair, 0)

	for i := 0; i < len(a); i++ {
		block := make([]models.LinePair, 0)
		for j := 0; j < len(b); {
			if LineSimilarity(a[i], b[j]) > threshold {
				block = append(block, models.LinePair{i, j})
				i++
				j++
				if i >= len(a) || j >= len(b) {
					break
				}
				continue
			}
			j++
		}
		if len(block) >= minBlock {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// CompareBlocks normalizes both sources and scores the share of submission
// lines covered by matched blocks, as a percentage.
func CompareBlocks(submission, reference string, thresholds CodeThresholds) models.BlockMatch {
	normA := NormalizeCode(submission)
	normB := NormalizeCode(reference)

	blocks := MatchBlocks(normA, normB, thresholds.MinBlock, thresholds.LineSimilarity)

	matched := 0
	for _, block := range blocks {
		matched += len(block)
	}
	total := max(len(normA), 1)

	return models.BlockMatch{
		MatchedBlocks:   blocks,
		MatchedLines:    matched,
		TotalLines:      total,
		PlagiarismScore: round2(float64(matched) / float64(total) * 100),
	}
}

// BlockMatches reports one code_block match per matched block of bm, which
// must come from CompareBlocks over the same sources. Confidence is the mean
// line similarity of the block's pairs. IDs start at firstID.
func BlockMatches(submission, reference, source string, bm models.BlockMatch, firstID int) []models.Match {
	normA := NormalizeCode(submission)
	normB := NormalizeCode(reference)

	matches := make([]models.Match, 0, len(bm.MatchedBlocks))
	for n, block := range bm.MatchedBlocks {
		if len(block) == 0 {
			continue
		}
		total := 0.0
		lines := make([]string, 0, len(block))
		for _, pair := range block {
			total += LineSimilarity(normA[pair[0]], normB[pair[1]])
			lines = append(lines, normB[pair[1]])
		}
		matches = append(matches, models.Match{
			SentenceID:  firstID + n,
			Signal:      models.SignalCodeBlock,
			Confidence:  round3(total / float64(len(block))),
			MatchedText: strings.Join(lines, "\n"),
			Source:      source,
			Lines:       &models.LineRange{Start: block[0][0], End: block[len(block)-1][0]},
		})
	}
	return matches
}
