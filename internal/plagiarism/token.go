package plagiarism

import "strings"

const minTileLength = 5

// CodeTokens flattens normalized code lines into one token stream.
func CodeTokens(src string) []string {
	tokens := make([]string, 0)
	for _, line := range NormalizeCode(src) {
		tokens = append(tokens, strings.Fields(line)...)
	}
	return tokens
}

// TokenTiling scores 2*covered / (lenA + lenB) where covered counts tokens
// inside shared tiles of at least minTileLength tokens.
func TokenTiling(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	covered := greedyStringTiling(a, b, minTileLength)
	return 2 * float64(covered) / float64(len(a)+len(b))
}

type tile struct {
	a, b, length int
}

// greedyStringTiling marks the longest unmarked common runs until none of at
// least minLength remains, and returns the marked token count. Each pass
// collects every run of the current maximum length and marks those not
// overlapped by an earlier one. Candidate starts come from an index of b's
// minLength-grams, so a pass only extends runs that can reach minLength,
// and only from positions where a run starts.
func greedyStringTiling(a, b []string, minLength int) int {
	markedA := make([]bool, len(a))
	markedB := make([]bool, len(b))

	grams := make(map[string][]int)
	for j := 0; j+minLength <= len(b); j++ {
		key := gramKey(b[j : j+minLength])
		grams[key] = append(grams[key], j)
	}

	total := 0
	for {
		longest := minLength
		tiles := make([]tile, 0)
		for i := 0; i+minLength <= len(a); i++ {
			if markedA[i] {
				continue
			}
			for _, j := range grams[gramKey(a[i:i+minLength])] {
				if markedB[j] {
					continue
				}
				// A run that extends to the left is found from its real start.
				if i > 0 && j > 0 && !markedA[i-1] && !markedB[j-1] && a[i-1] == b[j-1] {
					continue
				}
				n := 0
				for i+n < len(a) && j+n < len(b) && !markedA[i+n] && !markedB[j+n] && a[i+n] == b[j+n] {
					n++
				}
				switch {
				case n > longest:
					longest = n
					tiles = append(tiles[:0], tile{i, j, n})
				case n == longest:
					tiles = append(tiles, tile{i, j, n})
				}
			}
		}
		if len(tiles) == 0 {
			return total
		}

		for _, t := range tiles {
			if occluded(markedA[t.a:t.a+t.length]) || occluded(markedB[t.b:t.b+t.length]) {
				continue
			}
			for k := 0; k < t.length; k++ {
				markedA[t.a+k] = true
				markedB[t.b+k] = true
			}
			total += t.length
		}
	}
}

func gramKey(tokens []string) string {
	return strings.Join(tokens, "\x00")
}

func occluded(marks []bool) bool {
	for _, m := range marks {
		if m {
			return true
		}
	}
	return false
}
