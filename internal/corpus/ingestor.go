// Package corpus loads reference material into the vector and exact indexes.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RishiKendai/provenance/internal/metrics"
	"github.com/RishiKendai/provenance/internal/models"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/rs/zerolog/log"
)

const (
	defaultBatchSize   = 64
	defaultCallTimeout = 60 * time.Second
)

var ErrEmptySource = errors.New("source contains no sentences")

// Index is the vector index the ingestor writes to.
type Index interface {
	plagiarism.VectorIndex
	// ReplaceSource swaps every entry of source for entries atomically.
	ReplaceSource(ctx context.Context, source string, entries []models.CorpusEntry) error
}

type Options struct {
	BatchSize   int
	CallTimeout time.Duration
}

// Result counts what one source contributed.
type Result struct {
	Source        string
	Entries       int
	ExactInserted int
}

// Ingestor is the single writer of the corpus. Concurrent IngestText calls are
// serialized; analyses keep reading while a batch is written.
type Ingestor struct {
	mu       sync.Mutex
	embedder plagiarism.Embedder
	index    Index
	exact    *plagiarism.ExactIndex
	opts     Options
}

func NewIngestor(embedder plagiarism.Embedder, index Index, exact *plagiarism.ExactIndex, opts Options) *Ingestor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	return &Ingestor{embedder: embedder, index: index, exact: exact, opts: opts}
}

// EntryTypes lists the collections a source can be ingested into.
var EntryTypes = []string{
	plagiarism.EntryTypeCorpus,
	plagiarism.EntryTypeAIGenerated,
	plagiarism.EntryTypeAcademic,
}

// IngestText segments text and stores every sentence under ids <source>_<i>.
// Re-ingesting a source replaces all of its vector entries, so sentences
// removed from the source stop matching. Exact records are content-addressed
// and only added once.
func (i *Ingestor) IngestText(ctx context.Context, source, text, entryType string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: source is required", plagiarism.ErrInput)
	}
	if entryType == "" {
		entryType = plagiarism.EntryTypeCorpus
	}
	if !slices.Contains(EntryTypes, entryType) {
		return nil, fmt.Errorf("%w: unknown entry type %q", plagiarism.ErrInput, entryType)
	}

	sentences := plagiarism.SegmentText(text)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, source)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	entries := make([]models.CorpusEntry, 0, len(sentences))
	for start := 0; start < len(sentences); start += i.opts.BatchSize {
		end := min(start+i.opts.BatchSize, len(sentences))
		batch := sentences[start:end]

		var vectors [][]float32
		err := plagiarism.CallWithRetry(ctx, i.opts.CallTimeout, "embed_corpus", func(ctx context.Context) error {
			var err error
			vectors, err = i.embedder.EmbedBatch(ctx, batch)
			return err
		})
		if err != nil {
			metrics.ExternalFailures.WithLabelValues("embed_corpus").Inc()
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d sentences",
				plagiarism.ErrExternalService, len(vectors), len(batch))
		}

		for j, s := range batch {
			entries = append(entries, models.CorpusEntry{
				ID:        fmt.Sprintf("%s_%d", source, start+j),
				Text:      s,
				Embedding: vectors[j],
				Source:    source,
				Type:      entryType,
			})
		}
	}
	if err := i.index.ReplaceSource(ctx, source, entries); err != nil {
		return nil, fmt.Errorf("failed to write corpus entries: %w", err)
	}
	metrics.CorpusEntriesIngested.WithLabelValues(entryType).Add(float64(len(sentences)))

	result := &Result{Source: source, Entries: len(sentences)}

	// Generated text and academic sources are references, not texts a
	// submission is checked against verbatim.
	if entryType == plagiarism.EntryTypeCorpus && i.exact != nil {
		inserted, err := i.exact.Ingest(ctx, sentences, source, source)
		if err != nil {
			return nil, fmt.Errorf("failed to index exact sentences: %w", err)
		}
		result.ExactInserted = inserted
	}

	log.Info().
		Str("source", source).
		Str("type", entryType).
		Int("entries", result.Entries).
		Int("exact_inserted", result.ExactInserted).
		Msg("Corpus source ingested")

	return result, nil
}

// RemoveSource drops every vector entry of source.
func (i *Ingestor) RemoveSource(ctx context.Context, source string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.index.ReplaceSource(ctx, source, nil); err != nil {
		return fmt.Errorf("failed to remove %s: %w", source, err)
	}
	log.Info().Str("source", source).Msg("Corpus source removed")
	return nil
}

// IngestFile ingests one .txt file under its base name.
func (i *Ingestor) IngestFile(ctx context.Context, path, entryType string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return i.IngestText(ctx, filepath.Base(path), strings.ToValidUTF8(string(data), ""), entryType)
}

// IngestDir ingests every .txt file directly inside dir. Empty files are
// skipped with a warning; any other failure stops the walk.
func (i *Ingestor) IngestDir(ctx context.Context, dir, entryType string) ([]*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Name() < entries[b].Name() })

	results := make([]*Result, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsCorpusFile(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := i.IngestFile(ctx, filepath.Join(dir, e.Name()), entryType)
		if errors.Is(err, ErrEmptySource) {
			log.Warn().Str("file", e.Name()).Msg("Skipping empty corpus file")
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Stats returns the number of indexed entries per type.
func (i *Ingestor) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int, len(EntryTypes))
	for _, t := range EntryTypes {
		n, err := i.index.Count(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s entries: %w", t, err)
		}
		stats[t] = n
	}
	return stats, nil
}

func IsCorpusFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}
