package plagiarism

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(embedder Embedder, index VectorIndex) *SemanticMatcher {
	return NewSemanticMatcher(embedder, index, SemanticOptions{CallTimeout: time.Second})
}

func TestSemanticMatcher_EmptyCorpusIsFatal(t *testing.T) {
	m := newTestMatcher(&fakeEmbedder{}, &fakeIndex{count: 0})

	_, err := m.Analyze(context.Background(), Sentences("Anything at all."))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorpusUnavailable)
}

func TestSemanticMatcher_CountFailureIsFatal(t *testing.T) {
	m := newTestMatcher(&fakeEmbedder{}, &fakeIndex{countErr: errors.New("db closed")})

	_, err := m.Analyze(context.Background(), Sentences("Anything at all."))
	assert.ErrorIs(t, err, ErrCorpusUnavailable)
}

func TestSemanticMatcher_ClassifiesBands(t *testing.T) {
	distances := []float64{0.04, 0.2, 0.12, 0.3, 0.26}
	index := &fakeIndex{
		count: 5,
		respond: func(pos int) ([]models.Neighbor, error) {
			return []models.Neighbor{neighbor("reference", "ref.txt", EntryTypeCorpus, distances[pos])}, nil
		},
	}
	m := newTestMatcher(&fakeEmbedder{}, index)

	res, err := m.Analyze(context.Background(), Sentences("One here. Two here. Three here. Four here. Five here."))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	got := make(map[int]models.SignalType)
	for _, match := range res.Matches {
		got[match.SentenceID] = match.Signal
	}
	assert.Equal(t, map[int]models.SignalType{
		0: models.SignalExact,
		1: models.SignalParaphrase,
		2: models.SignalSemantic,
		4: models.SignalSemantic,
	}, got)
	assert.Equal(t, 0.96, res.Matches[0].Confidence)
}

func TestSemanticMatcher_BandEdgesUseUnroundedSimilarity(t *testing.T) {
	// 0.8996 and 0.8496 round to the band limits at three places but sit below them.
	distances := []float64{0.1004, 0.1504}
	index := &fakeIndex{
		count: 2,
		respond: func(pos int) ([]models.Neighbor, error) {
			return []models.Neighbor{neighbor("reference", "ref.txt", EntryTypeCorpus, distances[pos])}, nil
		},
	}
	m := newTestMatcher(&fakeEmbedder{}, index)

	res, err := m.Analyze(context.Background(), Sentences("First one here. Second one here."))
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)

	assert.Equal(t, models.SignalSemantic, res.Matches[0].Signal)
	assert.InDelta(t, 0.8996, res.Matches[0].Confidence, 1e-9)
	assert.Equal(t, 0.9, res.Matches[0].Candidates[0].Similarity)

	assert.Equal(t, models.SignalParaphrase, res.Matches[1].Signal)
	assert.Equal(t, 0.85, res.Matches[1].Candidates[0].Similarity)
}

func TestSemanticMatcher_KeepsAllQualifyingCandidates(t *testing.T) {
	index := staticIndex(
		neighbor("weaker", "b.txt", EntryTypeCorpus, 0.2),
		neighbor("stronger", "a.txt", EntryTypeCorpus, 0.1),
		neighbor("too far", "c.txt", EntryTypeCorpus, 0.5),
		neighbor("wrong type", "d.txt", EntryTypeAIGenerated, 0.0),
	)
	m := newTestMatcher(&fakeEmbedder{}, index)

	res, err := m.Analyze(context.Background(), Sentences("Only sentence."))
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	match := res.Matches[0]
	assert.Equal(t, "stronger", match.MatchedText)
	assert.Equal(t, "a.txt", match.Source)
	require.Len(t, match.Candidates, 2)
	assert.Equal(t, 0.9, match.Candidates[0].Similarity)
	assert.Equal(t, 0.8, match.Candidates[1].Similarity)
}

func TestSemanticMatcher_EmbeddingFailureBecomesWarning(t *testing.T) {
	embedder := &fakeEmbedder{failures: 2}
	m := newTestMatcher(embedder, staticIndex(neighbor("x", "x.txt", EntryTypeCorpus, 0)))

	res, err := m.Analyze(context.Background(), Sentences("First. Second."))
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, string(models.SignalSemantic), res.Warnings[0].Signal)
	assert.Equal(t, 2, embedder.calls)
}

func TestSemanticMatcher_RetriesEmbeddingOnce(t *testing.T) {
	embedder := &fakeEmbedder{failures: 1}
	m := newTestMatcher(embedder, staticIndex(neighbor("x", "x.txt", EntryTypeCorpus, 0)))

	res, err := m.Analyze(context.Background(), Sentences("First."))
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
	assert.Empty(t, res.Warnings)
}

func TestSemanticMatcher_FailedQuerySkipsSentence(t *testing.T) {
	index := &fakeIndex{
		count: 1,
		respond: func(pos int) ([]models.Neighbor, error) {
			if pos == 1 {
				return nil, errors.New("index timeout")
			}
			return []models.Neighbor{neighbor("ref", "ref.txt", EntryTypeCorpus, 0.01)}, nil
		},
	}
	m := newTestMatcher(&fakeEmbedder{}, index)

	res, err := m.Analyze(context.Background(), Sentences("First. Second. Third."))
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, 0, res.Matches[0].SentenceID)
	assert.Equal(t, 2, res.Matches[1].SentenceID)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "sentence 1")
}

func TestSemanticMatcher_ForcedSignal(t *testing.T) {
	index := staticIndex(neighbor("generated", "gpt.txt", EntryTypeAIGenerated, 0.02))
	m := NewSemanticMatcher(&fakeEmbedder{}, index, SemanticOptions{
		EntryType: EntryTypeAIGenerated,
		Signal:    models.SignalAIGenerated,
	})

	res, err := m.Analyze(context.Background(), Sentences("Some text."))
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, models.SignalAIGenerated, res.Matches[0].Signal)
}
