package plagiarism

import (
	"context"
	"errors"
	"sync"

	"github.com/RishiKendai/provenance/internal/models"
)

// fakeEmbedder encodes each text's batch position in the first vector
// component and fails the first failures calls.
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0, 1}
	}
	return out, nil
}

// fakeIndex answers each query by the batch position carried in its embedding.
type fakeIndex struct {
	mu         sync.Mutex
	count      int
	countErr   error
	countCalls int
	queries    int
	respond    func(pos int) ([]models.Neighbor, error)
}

func (f *fakeIndex) Add(context.Context, []models.CorpusEntry) error { return nil }

func (f *fakeIndex) Query(_ context.Context, q models.VectorQuery) ([]models.Neighbor, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(int(q.Embedding[0]))
}

func (f *fakeIndex) Count(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	return f.count, f.countErr
}

func neighbor(text, source, entryType string, distance float64) models.Neighbor {
	return models.Neighbor{
		ID:       source + "_0",
		Document: text,
		Metadata: map[string]string{"source": source, "type": entryType},
		Distance: distance,
	}
}

// staticIndex returns the same neighbors for every query.
func staticIndex(neighbors ...models.Neighbor) *fakeIndex {
	return &fakeIndex{
		count: 1,
		respond: func(int) ([]models.Neighbor, error) {
			return neighbors, nil
		},
	}
}
