package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"skycrawl/pkg/logger"
)

// ErrPoolClosed is returned by Submit once the pool has been stopped or abandoned
var ErrPoolClosed = errors.New("worker pool is shutting down")

// Handler processes one job. It must return a result for every job,
// including failed ones, so the caller can account for it.
type Handler[J, R any] func(ctx context.Context, job J) R

// Pool runs jobs on a fixed number of workers and delivers results in
// completion order.
type Pool[J, R any] struct {
	name        string
	numWorkers  int
	jobQueue    chan J
	resultQueue chan R
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	handle      Handler[J, R]
	logger      logger.Logger

	mu     sync.RWMutex
	closed bool
	busy   atomic.Int64
}

// New creates a pool of numWorkers workers. Jobs see a context derived from
// parent that is cancelled by Abandon.
func New[J, R any](parent context.Context, name string, numWorkers int, handle func(ctx context.Context, job J) R, log logger.Logger) *Pool[J, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Pool[J, R]{
		name:       name,
		numWorkers: numWorkers,
		// Callers that keep at most numWorkers jobs outstanding never block
		// on either queue.
		jobQueue:    make(chan J, numWorkers),
		resultQueue: make(chan R, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		handle:      handle,
		logger:      log.WithField("pool", name),
	}
}

// Start launches all workers
func (p *Pool[J, R]) Start() {
	p.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a job. It blocks while the job queue is full and fails once
// the pool is shutting down.
func (p *Pool[J, R]) Submit(job J) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Results returns the channel results are delivered on. It is closed by Stop.
func (p *Pool[J, R]) Results() <-chan R {
	return p.resultQueue
}

// Done is closed when the pool is abandoned or its parent context ends
func (p *Pool[J, R]) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Busy returns the number of jobs currently being handled
func (p *Pool[J, R]) Busy() int {
	return int(p.busy.Load())
}

// Stop closes the job queue, waits for every queued job to finish and then
// closes the result channel. Results must be drained concurrently, and Stop
// must be called at most once.
func (p *Pool[J, R]) Stop() {
	p.closeJobs()
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()
	p.logger.Debug("Worker pool stopped")
}

// Abandon cancels the pool without waiting. In-flight handlers see a
// cancelled context and their results are dropped instead of delivered.
func (p *Pool[J, R]) Abandon() {
	p.cancel()
	p.closeJobs()
	p.logger.Debug("Worker pool abandoned")
}

func (p *Pool[J, R]) closeJobs() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
}

func (p *Pool[J, R]) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		p.busy.Add(1)
		result := p.handle(p.ctx, job)
		p.busy.Add(-1)

		select {
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Dropping result of abandoned job", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}
