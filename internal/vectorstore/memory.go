package vectorstore

import (
	"context"
	"sync"

	"github.com/RishiKendai/provenance/internal/models"
)

// MemoryIndex keeps entries in process. Re-adding an id replaces the entry.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []models.CorpusEntry
	byID    map[string]int
	dim     int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byID: make(map[string]int)}
}

func (m *MemoryIndex) Add(_ context.Context, entries []models.CorpusEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dim, err := checkDimensions(entries, m.dim)
	if err != nil {
		return err
	}
	m.dim = dim

	for _, e := range entries {
		if i, ok := m.byID[e.ID]; ok {
			m.entries[i] = e
			continue
		}
		m.byID[e.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

// ReplaceSource swaps all entries of source for entries. Nothing changes when
// the new entries fail the dimension check.
func (m *MemoryIndex) ReplaceSource(_ context.Context, source string, entries []models.CorpusEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]models.CorpusEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Source != source {
			kept = append(kept, e)
		}
	}
	dim := 0
	if len(kept) > 0 {
		dim = m.dim
	}
	dim, err := checkDimensions(entries, dim)
	if err != nil {
		return err
	}

	m.entries = kept
	m.byID = make(map[string]int, len(kept)+len(entries))
	for i, e := range kept {
		m.byID[e.ID] = i
	}
	m.dim = dim
	for _, e := range entries {
		if i, ok := m.byID[e.ID]; ok {
			m.entries[i] = e
			continue
		}
		m.byID[e.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, q models.VectorQuery) ([]models.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := make([]models.Neighbor, 0)
	for _, e := range m.entries {
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		neighbors = append(neighbors, models.Neighbor{
			ID:       e.ID,
			Document: e.Text,
			Metadata: map[string]string{"source": e.Source, "type": e.Type},
			Distance: cosineDistance(q.Embedding, e.Embedding),
		})
	}
	return topK(neighbors, q.TopK), nil
}

// Count returns the number of entries of entryType, or all entries when it is empty.
func (m *MemoryIndex) Count(_ context.Context, entryType string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if entryType == "" {
		return len(m.entries), nil
	}
	n := 0
	for _, e := range m.entries {
		if e.Type == entryType {
			n++
		}
	}
	return n, nil
}

func (m *MemoryIndex) Close() error { return nil }
