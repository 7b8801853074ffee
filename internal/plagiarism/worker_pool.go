package plagiarism

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

type Job interface {
	Execute(ctx context.Context) error
}

// WorkerPool runs analysis jobs on a fixed set of goroutines.
type WorkerPool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

// NewWorkerPool sizes the pool to the CPU count minus a quarter kept for the
// HTTP server and the stream consumer.
func NewWorkerPool(ctx context.Context) *WorkerPool {
	totalCPU := runtime.NumCPU()
	reserve := max(1, totalCPU/4)
	return NewWorkerPoolSize(ctx, max(1, totalCPU-reserve))
}

func NewWorkerPoolSize(ctx context.Context, size int) *WorkerPool {
	size = max(1, size)
	poolCtx, cancel := context.WithCancel(ctx)
	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2),
		ctx:      poolCtx,
		cancel:   cancel,
	}
	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	log.Info().Int("workers", size).Msg("Worker pool initialized")
	return pool
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if err := job.Execute(p.ctx); err != nil {
				log.Error().Err(err).Int("worker", id).Msg("Worker failed to execute job")
			}
		}
	}
}

// Submit blocks until a worker slot frees up or the pool shuts down.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close drains queued jobs and waits for the workers to exit.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		close(p.jobQueue)
		p.wg.Wait()
		p.cancel()
	})
}

func (p *WorkerPool) Size() int {
	return p.workers
}
