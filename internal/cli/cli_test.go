package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/RishiKendai/provenance/internal/app"
	"github.com/RishiKendai/provenance/internal/corpus"
	"github.com/RishiKendai/provenance/internal/models"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/RishiKendai/provenance/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder maps equal texts to equal vectors.
type hashEmbedder struct{}

func (hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, 16)
		for j, r := range plagiarism.NormalizeText(t) {
			vec[(int(r)+j)%16]++
		}
		out[i] = vec
	}
	return out, nil
}

func (hashEmbedder) ModelName() string { return "hash" }

func useTestComponents(t *testing.T) *app.Components {
	t.Helper()

	index := vectorstore.NewMemoryIndex()
	exact := plagiarism.NewExactIndex(plagiarism.NewMemoryRecordStore())
	semantic := plagiarism.NewSemanticMatcher(hashEmbedder{}, index, plagiarism.SemanticOptions{})
	engine, err := plagiarism.NewEngine(plagiarism.EngineOptions{
		Exact:    exact,
		Semantic: semantic,
		Weights:  plagiarism.DefaultWeights(),
	})
	require.NoError(t, err)

	components := &app.Components{
		Engine:   engine,
		Ingestor: corpus.NewIngestor(hashEmbedder{}, index, exact, corpus.Options{}),
		Exact:    exact,
		Index:    index,
		Embedder: hashEmbedder{},
		Weights:  plagiarism.DefaultWeights(),
	}

	old := loadComponents
	loadComponents = func(context.Context) (*app.Components, func(), error) {
		return components, func() {}, nil
	}
	t.Cleanup(func() { loadComponents = old })
	return components
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		outputJSON = false
		entryType = plagiarism.EntryTypeCorpus
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestCmd(t *testing.T) {
	useTestComponents(t)
	dir := t.TempDir()
	writeFile(t, dir, "biology.txt", "The mitochondria is the powerhouse of the cell. Cells divide by mitosis.")
	writeFile(t, dir, "skip.md", "Not ingested.")

	out, err := run(t, "ingest", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "biology.txt")
	assert.Contains(t, out, "Ingested 2 entries from 1 files.")
}

func TestIngestCmd_RequiresDir(t *testing.T) {
	useTestComponents(t)
	_, err := run(t, "ingest")
	assert.Error(t, err)
}

func TestCheckCmd_FlagsCorpusSentence(t *testing.T) {
	components := useTestComponents(t)
	_, err := components.Ingestor.IngestText(context.Background(), "biology.txt",
		"The mitochondria is the powerhouse of the cell.", plagiarism.EntryTypeCorpus)
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "essay.txt", "The mitochondria is the powerhouse of the cell.")

	out, err := run(t, "check", "--json", path)
	require.NoError(t, err)

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.SentencesFlagged)
	assert.Equal(t, 0.0, report.OverallOriginalityScore)
	assert.Equal(t, models.SignalExact, report.Items[0].Type)
}

func TestCheckCmd_EmptyCorpus(t *testing.T) {
	useTestComponents(t)
	path := writeFile(t, t.TempDir(), "essay.txt", "A sentence with nothing to compare to.")

	_, err := run(t, "check", path)
	assert.ErrorIs(t, err, plagiarism.ErrCorpusUnavailable)
}

func TestCompareCodeCmd(t *testing.T) {
	useTestComponents(t)
	dir := t.TempDir()
	src := "def add(a, b):\n    total = a + b\n    print(total)\n    return total\n"
	sub := writeFile(t, dir, "sub.py", src)
	ref := writeFile(t, dir, "ref.py", src)

	out, err := run(t, "compare-code", sub, ref)
	require.NoError(t, err)
	assert.Contains(t, out, "Structural score: 1.0000")
	assert.Contains(t, out, "found: true")
	assert.Contains(t, out, "submission 0-3 ~ reference 0-3")
}
