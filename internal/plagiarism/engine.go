package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type EngineOptions struct {
	Exact    *ExactIndex
	Semantic *SemanticMatcher
	// AI is optional. When set, sentences are also compared against the
	// AI-generated reference collection.
	AI *SemanticMatcher
	// Citations is optional. When set, flagged sentences get academic
	// source suggestions.
	Citations *CitationSuggester
	Weights   Weights
}

// Engine runs every similarity signal over a submission and scores the result.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	exact     *ExactIndex
	semantic  *SemanticMatcher
	ai        *SemanticMatcher
	citations *CitationSuggester
	weights   Weights
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Exact == nil {
		return nil, errors.New("exact index is required")
	}
	if opts.Semantic == nil {
		return nil, errors.New("semantic matcher is required")
	}
	if opts.Weights.Semantic.TopK <= 0 {
		opts.Weights = DefaultWeights()
	}
	return &Engine{
		exact:     opts.Exact,
		semantic:  opts.Semantic,
		ai:        opts.AI,
		citations: opts.Citations,
		weights:   opts.Weights,
	}, nil
}

func (e *Engine) Weights() Weights {
	return e.weights
}

// AnalyzeText scores a prose submission. An empty document is fully original
// and never touches the corpus.
func (e *Engine) AnalyzeText(ctx context.Context, assignmentID, text string) (*models.Report, error) {
	start := time.Now()
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return BuildReport(assignmentID, sentences, nil, Aggregate(0, nil, e.weights), nil), nil
	}

	var (
		exactMatches []models.Match
		semantic     *SemanticResult
		ai           *SemanticResult
		aiErr        error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := e.exact.Lookup(gctx, sentences)
		if err != nil {
			return fmt.Errorf("failed to look up exact matches: %w", err)
		}
		exactMatches = out
		return nil
	})
	g.Go(func() error {
		out, err := e.semantic.Analyze(gctx, sentences)
		if err != nil {
			return err
		}
		semantic = out
		return nil
	})
	if e.ai != nil {
		g.Go(func() error {
			ai, aiErr = e.ai.Analyze(gctx, sentences)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]models.Match, 0, len(exactMatches)+len(semantic.Matches))
	all = append(all, exactMatches...)
	all = append(all, semantic.Matches...)
	warnings := append([]models.Warning(nil), semantic.Warnings...)

	switch {
	case aiErr != nil:
		warnings = append(warnings, models.Warning{
			Signal:  string(models.SignalAIGenerated),
			Message: aiErr.Error(),
		})
	case ai != nil:
		all = append(all, ai.Matches...)
		warnings = append(warnings, ai.Warnings...)
	}

	deduped := Dedupe(all, e.weights)
	summary := Aggregate(len(sentences), deduped, e.weights)
	report := BuildReport(assignmentID, sentences, deduped, summary, warnings)
	if err := e.suggestCitations(ctx, report, sentences, deduped); err != nil {
		return nil, err
	}

	log.Info().
		Str("assignment_id", assignmentID).
		Int("sentences", summary.TotalSentences).
		Int("flagged", summary.SentencesFlagged).
		Float64("originality", summary.OriginalityScore).
		Int("warnings", len(warnings)).
		Dur("duration", time.Since(start)).
		Msg("Text analysis completed")

	return report, nil
}

// suggestCitations attaches academic sources to flagged items. A failed lookup
// becomes a warning; only cancellation is returned.
func (e *Engine) suggestCitations(ctx context.Context, report *models.Report, sentences []models.Sentence, flags []models.Match) error {
	if e.citations == nil || len(flags) == 0 {
		return nil
	}
	byID := make(map[int]models.Sentence, len(sentences))
	for _, s := range sentences {
		byID[s.ID] = s
	}
	flagged := make([]models.Sentence, 0, len(flags))
	for _, m := range flags {
		if s, ok := byID[m.SentenceID]; ok {
			flagged = append(flagged, s)
		}
	}

	suggestions, err := e.citations.Suggest(ctx, flagged)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		report.Warnings = append(report.Warnings, models.Warning{
			Signal:  CitationWarningSignal,
			Message: err.Error(),
		})
		return nil
	}
	AttachCitations(report, suggestions)
	return nil
}

// AnalyzeCode compares a submission structurally against the primary
// reference and line-by-line against every reference, keeping the best block
// score.
func (e *Engine) AnalyzeCode(ctx context.Context, assignmentID, code string, references []string) (*models.CodeReport, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: submission code is empty", ErrInput)
	}
	if len(references) == 0 {
		return nil, fmt.Errorf("%w: no reference solution for assignment %q", ErrInput, assignmentID)
	}

	start := time.Now()
	warnings := make([]models.Warning, 0)

	sub := ProfileCode(code)
	ref := ProfileCode(references[0])
	if sub.ParseErr != nil {
		warnings = append(warnings, models.Warning{
			Signal:  string(models.SignalCodeStructure),
			Message: "submission: " + sub.ParseErr.Error(),
		})
	}
	if ref.ParseErr != nil {
		warnings = append(warnings, models.Warning{
			Signal:  string(models.SignalCodeStructure),
			Message: "reference: " + ref.ParseErr.Error(),
		})
	}
	structural := CompareProfiles(sub, ref)
	tiling := TokenTiling(CodeTokens(code), CodeTokens(references[0]))
	structural.Details = append(structural.Details, models.MetricDetail{
		Metric:      "Token Tiling Match",
		Score:       round2(tiling),
		Explanation: "Share of normalized tokens inside common runs of 5 or more tokens. Informational only.",
	})

	var best models.BlockMatch
	bestRef := 0
	for i, reference := range references {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := CompareBlocks(code, reference, e.weights.Code)
		if i == 0 || result.PlagiarismScore > best.PlagiarismScore {
			best = result
			bestRef = i
		}
	}
	found := best.PlagiarismScore > e.weights.Code.FoundPercent

	matches := make([]models.Match, 0, len(best.MatchedBlocks)+1)
	if structural.ASTSimilarity == 1 {
		matches = append(matches, models.Match{
			SentenceID:  0,
			Signal:      models.SignalCodeStructure,
			Confidence:  structural.Score,
			MatchedText: sub.Fingerprint,
			Source:      referenceLabel(0),
			Lines:       &models.LineRange{Start: 0, End: max(len(NormalizeCode(code))-1, 0)},
		})
	}
	matches = append(matches, BlockMatches(code, references[bestRef], referenceLabel(bestRef), best, len(matches))...)
	sortCodeMatches(matches, e.weights)

	if len(warnings) == 0 {
		warnings = nil
	}
	report := BuildCodeReport(assignmentID, structural, best, matches, found, len(references), warnings)

	log.Info().
		Str("assignment_id", assignmentID).
		Float64("structural_score", structural.Score).
		Float64("block_score", best.PlagiarismScore).
		Int("references", len(references)).
		Int("matches", len(matches)).
		Bool("found", found).
		Dur("duration", time.Since(start)).
		Msg("Code analysis completed")

	return report, nil
}
