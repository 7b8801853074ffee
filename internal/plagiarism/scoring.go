package plagiarism

import (
	"math"
	"sort"

	"github.com/RishiKendai/provenance/internal/models"
)

// SignalWeights is the penalty each surviving flag contributes.
type SignalWeights struct {
	Exact         float64 `toml:"exact"`
	Paraphrase    float64 `toml:"paraphrase"`
	Semantic      float64 `toml:"semantic"`
	AIGenerated   float64 `toml:"ai_generated"`
	CodeStructure float64 `toml:"code_structure"`
	CodeBlock     float64 `toml:"code_block"`
}

// SemanticThresholds configure the nearest-neighbor matcher.
type SemanticThresholds struct {
	Similarity     float64 `toml:"similarity"`
	ExactBand      float64 `toml:"exact_band"`
	ParaphraseBand float64 `toml:"paraphrase_band"`
	SemanticUpper  float64 `toml:"semantic_upper"`
	TopK           int     `toml:"top_k"`
}

type CodeThresholds struct {
	LineSimilarity float64 `toml:"line_similarity"`
	MinBlock       int     `toml:"min_block"`
	FoundPercent   float64 `toml:"found_percent"`
}

// Weights is the full scoring table. It can be overridden from a TOML file.
type Weights struct {
	Signals  SignalWeights      `toml:"signals"`
	Semantic SemanticThresholds `toml:"semantic"`
	Code     CodeThresholds     `toml:"code"`
}

func DefaultWeights() Weights {
	return Weights{
		Signals: SignalWeights{
			Exact:         1.0,
			Paraphrase:    0.7,
			Semantic:      0.8,
			AIGenerated:   0.8,
			CodeStructure: 1.0,
			CodeBlock:     1.0,
		},
		Semantic: SemanticThresholds{
			Similarity:     0.72,
			ExactBand:      0.90,
			ParaphraseBand: 0.75,
			SemanticUpper:  0.85,
			TopK:           3,
		},
		Code: CodeThresholds{
			LineSimilarity: 0.85,
			MinBlock:       3,
			FoundPercent:   10,
		},
	}
}

// Weight returns the penalty for a signal type. Unknown signals weigh nothing.
func (w Weights) Weight(signal models.SignalType) float64 {
	switch signal {
	case models.SignalExact:
		return w.Signals.Exact
	case models.SignalParaphrase:
		return w.Signals.Paraphrase
	case models.SignalSemantic:
		return w.Signals.Semantic
	case models.SignalAIGenerated:
		return w.Signals.AIGenerated
	case models.SignalCodeStructure:
		return w.Signals.CodeStructure
	case models.SignalCodeBlock:
		return w.Signals.CodeBlock
	}
	return 0
}

// Dedupe reduces raw matches to one per sentence. Hits of the same signal keep
// the highest confidence; across signals the heaviest weight wins, ties going
// to confidence. Output is ordered by sentence id.
func Dedupe(matches []models.Match, weights Weights) []models.Match {
	best := make(map[int]models.Match)
	for _, m := range matches {
		current, ok := best[m.SentenceID]
		if !ok || better(m, current, weights) {
			best[m.SentenceID] = m
		}
	}

	out := make([]models.Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SentenceID < out[j].SentenceID
	})
	return out
}

func better(a, b models.Match, weights Weights) bool {
	if a.Signal == b.Signal {
		return a.Confidence > b.Confidence
	}
	wa, wb := weights.Weight(a.Signal), weights.Weight(b.Signal)
	if wa != wb {
		return wa > wb
	}
	return a.Confidence > b.Confidence
}

// sortCodeMatches orders code matches heaviest signal first, then by
// confidence, then by id.
func sortCodeMatches(matches []models.Match, weights Weights) {
	sort.SliceStable(matches, func(i, j int) bool {
		if better(matches[i], matches[j], weights) {
			return true
		}
		if better(matches[j], matches[i], weights) {
			return false
		}
		return matches[i].SentenceID < matches[j].SentenceID
	})
}

// Aggregate turns deduplicated flags into the originality/plagiarism pair.
func Aggregate(totalSentences int, matches []models.Match, weights Weights) models.Summary {
	if totalSentences <= 0 {
		return models.Summary{
			TotalSentences:   0,
			SentencesFlagged: 0,
			OriginalityScore: 100,
			PlagiarismScore:  0,
		}
	}

	penalty := 0.0
	flagged := 0
	for _, m := range Dedupe(matches, weights) {
		if m.SentenceID < 0 || m.SentenceID >= totalSentences {
			continue
		}
		penalty += weights.Weight(m.Signal)
		flagged++
	}

	originality := math.Max(0, 1-penalty/float64(totalSentences))
	originalityPct := round2(originality * 100)

	return models.Summary{
		TotalSentences:   totalSentences,
		SentencesFlagged: flagged,
		OriginalityScore: originalityPct,
		PlagiarismScore:  round2(100 - originalityPct),
	}
}

// RiskLevel maps an originality percentage to a coarse band.
func RiskLevel(originality float64) string {
	if originality >= 85 {
		return "clean"
	} else if originality >= 60 {
		return "suspicious"
	} else if originality >= 30 {
		return "highly_suspicious"
	}
	return "near_copy"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
