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
	EntryTypeAcademic = "academic_source"
	// CitationWarningSignal labels warnings from a failed citation lookup.
	CitationWarningSignal = "citation"

	defaultCitationTopK = 3
)

type CitationOptions struct {
	TopK        int
	CallTimeout time.Duration
	Parallelism int
}

// CitationSuggester proposes academic sources a flagged sentence could cite.
// Suggestions are the nearest academic_source entries, with no similarity
// floor.
type CitationSuggester struct {
	embedder Embedder
	index    VectorIndex
	opts     CitationOptions
}

func NewCitationSuggester(embedder Embedder, index VectorIndex, opts CitationOptions) *CitationSuggester {
	if opts.TopK <= 0 {
		opts.TopK = defaultCitationTopK
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultQueryParallelism
	}
	return &CitationSuggester{embedder: embedder, index: index, opts: opts}
}

// Suggest returns up to TopK candidates per sentence id. An empty academic
// collection yields no suggestions and no error.
func (s *CitationSuggester) Suggest(ctx context.Context, sentences []models.Sentence) (map[int][]models.Candidate, error) {
	out := make(map[int][]models.Candidate)
	if len(sentences) == 0 {
		return out, nil
	}

	count, err := s.index.Count(ctx, EntryTypeAcademic)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s entries: %w", EntryTypeAcademic, err)
	}
	if count == 0 {
		return out, nil
	}

	texts := make([]string, len(sentences))
	for i, sentence := range sentences {
		texts[i] = sentence.Raw
	}

	var embeddings [][]float32
	err = CallWithRetry(ctx, s.opts.CallTimeout, "embed_citation", func(ctx context.Context) error {
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
		}
		embeddings = vectors
		return nil
	})
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)

	for i := range sentences {
		id := sentences[i].ID
		embedding := embeddings[i]
		g.Go(func() error {
			var neighbors []models.Neighbor
			err := CallWithRetry(gctx, s.opts.CallTimeout, "query_citation", func(ctx context.Context) error {
				var err error
				neighbors, err = s.index.Query(ctx, models.VectorQuery{
					Embedding: embedding,
					TopK:      s.opts.TopK,
					Type:      EntryTypeAcademic,
				})
				return err
			})
			if err != nil {
				return fmt.Errorf("sentence %d: %w", id, err)
			}

			candidates := citationCandidates(neighbors)
			if len(candidates) == 0 {
				return nil
			}
			mu.Lock()
			out[id] = candidates
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("citation lookup failed: %w", err)
	}

	log.Debug().
		Int("sentences", len(sentences)).
		Int("suggested", len(out)).
		Msg("Citation suggestions finished")

	return out, nil
}

func citationCandidates(neighbors []models.Neighbor) []models.Candidate {
	candidates := make([]models.Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Metadata["type"] != EntryTypeAcademic {
			continue
		}
		candidates = append(candidates, models.Candidate{
			MatchedText: n.Document,
			Source:      n.Metadata["source"],
			Similarity:  round3(1 - n.Distance),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates
}
