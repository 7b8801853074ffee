// Package vectorstore holds the nearest-neighbor indexes behind the semantic
// matcher. Search is exact (brute-force cosine) over entries of one type.
package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/RishiKendai/provenance/internal/models"
)

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// cosineDistance is 1 - cosine similarity; vectors of unequal length or zero
// norm count as orthogonal.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func topK(neighbors []models.Neighbor, k int) []models.Neighbor {
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

func checkDimensions(entries []models.CorpusEntry, dim int) (int, error) {
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			return dim, fmt.Errorf("entry %s has no embedding", e.ID)
		}
		if dim == 0 {
			dim = len(e.Embedding)
			continue
		}
		if len(e.Embedding) != dim {
			return dim, fmt.Errorf("%w: entry %s has %d, index has %d", ErrDimensionMismatch, e.ID, len(e.Embedding), dim)
		}
	}
	return dim, nil
}
