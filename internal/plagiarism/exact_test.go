package plagiarism

import (
	"context"
	"sync"
	"testing"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactIndex_IngestSkipsDuplicatesAndEmpty(t *testing.T) {
	ctx := context.Background()
	idx := NewExactIndex(NewMemoryRecordStore())

	inserted, err := idx.Ingest(ctx, []string{
		"The cell wall is rigid.",
		"the CELL wall is rigid",
		"...",
		"Plants make sugar.",
	}, "bio.txt", "bio.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestExactIndex_Lookup(t *testing.T) {
	ctx := context.Background()
	idx := NewExactIndex(NewMemoryRecordStore())
	_, err := idx.Ingest(ctx, []string{"The mitochondria is the powerhouse of the cell"}, "doc-1", "biology.txt")
	require.NoError(t, err)

	sentences := Sentences("The Mitochondria is the powerhouse of the cell! Something new here.")
	matches, err := idx.Lookup(ctx, sentences)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].SentenceID)
	assert.Equal(t, models.SignalExact, matches[0].Signal)
	assert.Equal(t, 1.0, matches[0].Confidence)
	assert.Equal(t, "biology.txt", matches[0].Source)
	assert.Equal(t, "the mitochondria is the powerhouse of the cell", matches[0].MatchedText)
}

func TestExactIndex_SourceFallsBackToDocumentID(t *testing.T) {
	ctx := context.Background()
	idx := NewExactIndex(NewMemoryRecordStore())
	_, err := idx.Ingest(ctx, []string{"Shared sentence"}, "doc-9", "")
	require.NoError(t, err)

	matches, err := idx.Lookup(ctx, Sentences("shared sentence"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-9", matches[0].Source)
}

func TestMemoryRecordStore_FirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	hash := HashSentence("same")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.InsertIfAbsent(ctx, &models.ExactMatchRecord{Hash: hash, NormalizedText: "same"})
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
