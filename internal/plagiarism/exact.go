package plagiarism

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
)

// RecordStore persists exact-match records keyed by hash.
// InsertIfAbsent must be atomic: the first writer of a hash wins.
type RecordStore interface {
	InsertIfAbsent(ctx context.Context, record *models.ExactMatchRecord) (bool, error)
	Get(ctx context.Context, hash string) (*models.ExactMatchRecord, error)
	Count(ctx context.Context) (int64, error)
}

// ExactIndex is a content-addressed set of normalized sentences.
type ExactIndex struct {
	store RecordStore
}

func NewExactIndex(store RecordStore) *ExactIndex {
	return &ExactIndex{store: store}
}

// Ingest adds every non-empty sentence of a source document. It returns the
// number of new records; hashes already present are skipped silently.
func (x *ExactIndex) Ingest(ctx context.Context, sentences []string, documentID, source string) (int, error) {
	inserted := 0
	for _, s := range sentences {
		normalized, hash := NormalizeAndHash(s)
		if normalized == "" {
			continue
		}

		ok, err := x.store.InsertIfAbsent(ctx, &models.ExactMatchRecord{
			Hash:           hash,
			NormalizedText: normalized,
			DocumentID:     documentID,
			Source:         source,
			CreatedAt:      time.Now(),
		})
		if err != nil {
			return inserted, fmt.Errorf("failed to insert exact record: %w", err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// Lookup returns one exact match with confidence 1.0 for every sentence whose
// normalized form is already indexed.
func (x *ExactIndex) Lookup(ctx context.Context, sentences []models.Sentence) ([]models.Match, error) {
	matches := make([]models.Match, 0)
	for _, s := range sentences {
		normalized := s.Normalized
		if normalized == "" {
			normalized = NormalizeText(s.Raw)
		}
		if normalized == "" {
			continue
		}

		record, err := x.store.Get(ctx, HashSentence(normalized))
		if err != nil {
			return nil, fmt.Errorf("failed to look up sentence %d: %w", s.ID, err)
		}
		if record == nil {
			continue
		}

		source := record.Source
		if source == "" {
			source = record.DocumentID
		}
		matches = append(matches, models.Match{
			SentenceID:  s.ID,
			Signal:      models.SignalExact,
			Confidence:  1.0,
			MatchedText: record.NormalizedText,
			Source:      source,
		})
	}
	return matches, nil
}

func (x *ExactIndex) Count(ctx context.Context) (int64, error) {
	return x.store.Count(ctx)
}

// MemoryRecordStore keeps exact-match records in process.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]models.ExactMatchRecord
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]models.ExactMatchRecord)}
}

func (m *MemoryRecordStore) InsertIfAbsent(_ context.Context, record *models.ExactMatchRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.Hash]; exists {
		return false, nil
	}
	m.records[record.Hash] = *record
	return true, nil
}

func (m *MemoryRecordStore) Get(_ context.Context, hash string) (*models.ExactMatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[hash]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *MemoryRecordStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}
