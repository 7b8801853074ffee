package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	EntryTypeCorpus      = "corpus"
	EntryTypeAIGenerated = "ai_generated"

	defaultQueryParallelism = 8
	defaultCallTimeout      = 30 * time.Second
)

// Embedder turns a batch of texts into vectors of a fixed dimensionality.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is a nearest-neighbor index over corpus entries.
type VectorIndex interface {
	Add(ctx context.Context, entries []models.CorpusEntry) error
	Query(ctx context.Context, q models.VectorQuery) ([]models.Neighbor, error)
	Count(ctx context.Context, entryType string) (int, error)
}

type SemanticOptions struct {
	// EntryType restricts neighbors to entries tagged with this type.
	EntryType string
	// Signal forces every flag to this type instead of the band classification.
	Signal      models.SignalType
	Thresholds  SemanticThresholds
	CallTimeout time.Duration
	Parallelism int
}

// SemanticResult carries matches plus the warnings for signals that could
// only be computed partially.
type SemanticResult struct {
	Matches  []models.Match
	Warnings []models.Warning
}

// SemanticMatcher flags sentences close to a corpus entry in embedding space.
type SemanticMatcher struct {
	embedder Embedder
	index    VectorIndex
	opts     SemanticOptions
}

func NewSemanticMatcher(embedder Embedder, index VectorIndex, opts SemanticOptions) *SemanticMatcher {
	if opts.EntryType == "" {
		opts.EntryType = EntryTypeCorpus
	}
	if opts.Thresholds.TopK <= 0 {
		opts.Thresholds = DefaultWeights().Semantic
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultQueryParallelism
	}
	return &SemanticMatcher{embedder: embedder, index: index, opts: opts}
}

func (m *SemanticMatcher) signalName() string {
	if m.opts.Signal != "" {
		return string(m.opts.Signal)
	}
	return string(models.SignalSemantic)
}

// Analyze embeds all sentences in one call and queries the index for each.
// An empty corpus is an error, never a clean result.
func (m *SemanticMatcher) Analyze(ctx context.Context, sentences []models.Sentence) (*SemanticResult, error) {
	count, err := m.index.Count(ctx, m.opts.EntryType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count %s entries: %v", ErrCorpusUnavailable, m.opts.EntryType, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no %s entries indexed", ErrCorpusUnavailable, m.opts.EntryType)
	}

	result := &SemanticResult{Matches: make([]models.Match, 0)}

	texts := make([]string, 0, len(sentences))
	targets := make([]models.Sentence, 0, len(sentences))
	for _, s := range sentences {
		if s.Normalized == "" {
			continue
		}
		texts = append(texts, s.Raw)
		targets = append(targets, s)
	}
	if len(texts) == 0 {
		return result, nil
	}

	var embeddings [][]float32
	err = CallWithRetry(ctx, m.opts.CallTimeout, "embed", func(ctx context.Context) error {
		out, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(out) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out))
		}
		embeddings = out
		return nil
	})
	if err != nil {
		result.Warnings = append(result.Warnings, models.Warning{
			Signal:  m.signalName(),
			Message: err.Error(),
		})
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Parallelism)

	for i := range targets {
		sentence := targets[i]
		embedding := embeddings[i]
		g.Go(func() error {
			var neighbors []models.Neighbor
			err := CallWithRetry(gctx, m.opts.CallTimeout, "query", func(ctx context.Context) error {
				out, err := m.index.Query(ctx, models.VectorQuery{
					Embedding: embedding,
					TopK:      m.opts.Thresholds.TopK,
					Type:      m.opts.EntryType,
				})
				neighbors = out
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(gctx.Err(), context.Canceled) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
					return gctx.Err()
				}
				result.Warnings = append(result.Warnings, models.Warning{
					Signal:  m.signalName(),
					Message: fmt.Sprintf("sentence %d skipped: %v", sentence.ID, err),
				})
				return nil
			}
			if match, ok := m.flag(sentence, neighbors); ok {
				result.Matches = append(result.Matches, match)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("semantic analysis aborted: %w", err)
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].SentenceID < result.Matches[j].SentenceID
	})

	log.Debug().
		Int("sentences", len(targets)).
		Int("flagged", len(result.Matches)).
		Str("entry_type", m.opts.EntryType).
		Msg("Semantic analysis finished")

	return result, nil
}

// flag keeps qualifying neighbors and reports the best one. Bands and
// confidence use the raw similarity; only candidate similarities are rounded.
func (m *SemanticMatcher) flag(sentence models.Sentence, neighbors []models.Neighbor) (models.Match, bool) {
	type scored struct {
		candidate  models.Candidate
		similarity float64
	}

	qualifying := make([]scored, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Metadata["type"] != m.opts.EntryType {
			continue
		}
		similarity := 1 - n.Distance
		if similarity < m.opts.Thresholds.Similarity {
			continue
		}
		qualifying = append(qualifying, scored{
			candidate: models.Candidate{
				MatchedText: n.Document,
				Source:      n.Metadata["source"],
				Similarity:  round3(similarity),
			},
			similarity: similarity,
		})
	}
	if len(qualifying) == 0 {
		return models.Match{}, false
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].similarity > qualifying[j].similarity
	})
	candidates := make([]models.Candidate, len(qualifying))
	for i, q := range qualifying {
		candidates[i] = q.candidate
	}
	best := qualifying[0]

	signal := m.opts.Signal
	if signal == "" {
		signal = m.Classify(best.similarity)
	}

	return models.Match{
		SentenceID:  sentence.ID,
		Signal:      signal,
		Confidence:  best.similarity,
		MatchedText: best.candidate.MatchedText,
		Source:      best.candidate.Source,
		Candidates:  candidates,
	}, true
}

// Classify maps a similarity to its band.
func (m *SemanticMatcher) Classify(similarity float64) models.SignalType {
	t := m.opts.Thresholds
	switch {
	case similarity >= t.ExactBand:
		return models.SignalExact
	case similarity >= t.ParaphraseBand && similarity < t.SemanticUpper:
		return models.SignalParaphrase
	default:
		return models.SignalSemantic
	}
}
