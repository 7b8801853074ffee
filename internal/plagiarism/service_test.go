package plagiarism

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStores struct {
	mu          sync.Mutex
	documents   map[string]*models.Document
	references  map[string][]models.ReferenceSolution
	reports     []*models.Report
	codeReports []*models.CodeReport
	steps       []models.Step
}

func newMemoryStores() *memoryStores {
	return &memoryStores{
		documents:  make(map[string]*models.Document),
		references: make(map[string][]models.ReferenceSolution),
	}
}

func (m *memoryStores) GetDocument(_ context.Context, id string) (*models.Document, error) {
	return m.documents[id], nil
}

func (m *memoryStores) GetReferences(_ context.Context, id string) ([]models.ReferenceSolution, error) {
	return m.references[id], nil
}

func (m *memoryStores) SaveReport(_ context.Context, r *models.Report) error {
	m.reports = append(m.reports, r)
	return nil
}

func (m *memoryStores) SaveCodeReport(_ context.Context, r *models.CodeReport) error {
	m.codeReports = append(m.codeReports, r)
	return nil
}

func (m *memoryStores) UpdateStatus(_ context.Context, _ string, step models.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryStores) {
	t.Helper()
	f := newEngineFixture(t, staticIndex(), nil)
	stores := newMemoryStores()
	return NewService(f.engine, stores, stores, stores, stores), stores
}

func TestService_RunTextJob(t *testing.T) {
	svc, stores := newTestService(t)
	stores.documents["t-1"] = &models.Document{AssignmentID: "t-1", Kind: models.KindText, Text: "An essay. With two sentences."}

	err := svc.Run(context.Background(), models.AnalysisJob{AssignmentID: "t-1", Kind: models.KindText})
	require.NoError(t, err)

	require.Len(t, stores.reports, 1)
	assert.Equal(t, "t-1", stores.reports[0].AssignmentID)
	assert.Equal(t, 2, stores.reports[0].TotalSentences)
	assert.Equal(t, []models.Step{models.StepAnalyzing, models.StepCompleted}, stores.steps)
}

func TestService_RunCodeJobUsesReferences(t *testing.T) {
	svc, stores := newTestService(t)
	stores.documents["c-1"] = &models.Document{AssignmentID: "c-1", Kind: models.KindCode, Text: fibonacciSolution}
	stores.references["c-1"] = []models.ReferenceSolution{{AssignmentID: "c-1", Language: "python", Code: fibonacciSolution}}

	err := svc.Run(context.Background(), models.AnalysisJob{AssignmentID: "c-1"})
	require.NoError(t, err)

	require.Len(t, stores.codeReports, 1)
	assert.True(t, stores.codeReports[0].Found)
}

func TestService_FailuresMarkStatus(t *testing.T) {
	svc, stores := newTestService(t)
	stores.documents["c-2"] = &models.Document{AssignmentID: "c-2", Kind: models.KindCode, Text: fibonacciSolution}

	err := svc.Run(context.Background(), models.AnalysisJob{AssignmentID: "missing", Kind: models.KindText})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))

	err = svc.Run(context.Background(), models.AnalysisJob{AssignmentID: "c-2", Kind: models.KindCode})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInput)

	assert.Equal(t, []models.Step{
		models.StepAnalyzing, models.StepFailed,
		models.StepAnalyzing, models.StepFailed,
	}, stores.steps)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(ErrInput))
	assert.False(t, IsPermanent(ErrCorpusUnavailable))
	assert.False(t, IsPermanent(errors.New("mongo timeout")))
}

type countingJob struct {
	n *atomic.Int32
}

func (j countingJob) Execute(context.Context) error {
	j.n.Add(1)
	return nil
}

func TestWorkerPool_RunsEveryJob(t *testing.T) {
	pool := NewWorkerPoolSize(context.Background(), 3)
	var n atomic.Int32

	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(context.Background(), countingJob{n: &n}))
	}
	pool.Close()

	assert.Equal(t, int32(50), n.Load())
	assert.Equal(t, 3, pool.Size())
}

func TestWorkerPool_SubmitHonorsContext(t *testing.T) {
	pool := NewWorkerPoolSize(context.Background(), 1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)
	// Fill the worker and the queue so the next Submit would block.
	for i := 0; i < 3; i++ {
		_ = pool.Submit(context.Background(), blockingJob{release: block})
	}
	assert.ErrorIs(t, pool.Submit(ctx, countingJob{n: new(atomic.Int32)}), context.Canceled)
}

type blockingJob struct {
	release chan struct{}
}

func (j blockingJob) Execute(context.Context) error {
	<-j.release
	return nil
}
