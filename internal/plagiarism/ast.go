package plagiarism

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/RishiKendai/provenance/internal/pysyntax"
)

// SyntaxErrorFingerprint stands in for the fingerprint of source that does not parse.
const SyntaxErrorFingerprint = "SyntaxError"

// CodeProfile is the structural summary of one source file.
type CodeProfile struct {
	Fingerprint string
	Complexity  float64
	ParseErr    error
	subtrees    map[string]bool
}

// StructuralResult compares a submission against one reference.
type StructuralResult struct {
	ASTSimilarity        float64
	ComplexitySimilarity float64
	SubtreeOverlap       float64
	Score                float64
	Details              []models.MetricDetail
}

// ProfileCode strips comments and docstrings and parses what is left.
func ProfileCode(src string) CodeProfile {
	cleaned := dropBlankLines(StripComments(src))
	tree, err := pysyntax.Parse(cleaned)
	if err != nil {
		return CodeProfile{
			Fingerprint: SyntaxErrorFingerprint,
			ParseErr:    fmt.Errorf("%w: %v", ErrParse, err),
		}
	}
	return CodeProfile{
		Fingerprint: tree.Fingerprint(),
		Complexity:  tree.AverageComplexity(),
		subtrees:    subtreeHashes(tree.Root),
	}
}

// CompareProfiles scores structure as binary fingerprint equality and
// complexity as a linear decay over a difference of 3.
func CompareProfiles(sub, ref CodeProfile) StructuralResult {
	astSimilarity := 0.0
	if sub.ParseErr == nil && ref.ParseErr == nil &&
		sub.Fingerprint != SyntaxErrorFingerprint &&
		sub.Fingerprint == ref.Fingerprint {
		astSimilarity = 1.0
	}

	diff := math.Abs(sub.Complexity - ref.Complexity)
	complexitySimilarity := math.Max(0, (3-diff)/3)
	overlap := subtreeOverlap(sub.subtrees, ref.subtrees)
	score := (astSimilarity + complexitySimilarity) / 2

	return StructuralResult{
		ASTSimilarity:        astSimilarity,
		ComplexitySimilarity: complexitySimilarity,
		SubtreeOverlap:       overlap,
		Score:                math.Round(score*10000) / 10000,
		Details: []models.MetricDetail{
			{
				Metric:      "AST Structure Match",
				Score:       round2(astSimilarity),
				Explanation: "1.0 means the code logic structure is identical.",
			},
			{
				Metric:      "Cyclomatic Complexity Match",
				Score:       round2(complexitySimilarity),
				Explanation: fmt.Sprintf("Submission complexity: %s, Solution: %s", formatComplexity(sub.Complexity), formatComplexity(ref.Complexity)),
			},
			{
				Metric:      "AST Subtree Overlap",
				Score:       round2(overlap),
				Explanation: "Share of distinct subtrees the smaller tree has in common. Informational only.",
			},
		},
	}
}

func CompareStructure(submission, reference string) StructuralResult {
	return CompareProfiles(ProfileCode(submission), ProfileCode(reference))
}

func formatComplexity(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%g", v)
}

func dropBlankLines(src string) string {
	lines := strings.Split(src, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// subtreeOverlap = common subtrees / min(distinct subtrees of either side).
func subtreeOverlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for h := range a {
		if b[h] {
			common++
		}
	}
	return float64(common) / float64(min(len(a), len(b)))
}

// subtreeHashes hashes every subtree bottom-up. Child hashes are sorted so
// that reordered siblings still hash alike.
func subtreeHashes(root *pysyntax.Node) map[string]bool {
	hashes := make(map[string]bool)
	var visit func(n *pysyntax.Node) string
	visit = func(n *pysyntax.Node) string {
		children := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, visit(c))
		}
		sort.Strings(children)

		sum := sha256.Sum256([]byte(n.Kind + "(" + strings.Join(children, ",") + ")"))
		h := hex.EncodeToString(sum[:])
		hashes[h] = true
		return h
	}
	if root != nil {
		visit(root)
	}
	return hashes
}
