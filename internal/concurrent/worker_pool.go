package concurrent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"shape/pkg/logger"
	"shape/pkg/metrics"
)

// Processor handles one job. The context is owned by the pool, never by
// whoever submitted the job.
type Processor[T any] func(ctx context.Context, job T) error

type WorkerPool[T any] struct {
	name       string
	numWorkers int
	jobQueue   chan T
	processor  Processor[T]
	jobTimeout time.Duration
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	logger     logger.Logger
	started    bool
	stopped    bool
	mutex      sync.Mutex
	active     atomic.Int64
	stats      *StatsCollector
}

func NewWorkerPool[T any](name string, numWorkers, queueSize int, jobTimeout time.Duration, processor Processor[T], logger logger.Logger) *WorkerPool[T] {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool[T]{
		name:       name,
		numWorkers: numWorkers,
		jobQueue:   make(chan T, queueSize),
		processor:  processor,
		jobTimeout: jobTimeout,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("worker_pool").WithFields(map[string]interface{}{"pool": name}),
		stats:      NewStatsCollector(),
	}
}

func (wp *WorkerPool[T]) Start() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()

	if wp.started || wp.stopped {
		return
	}

	wp.logger.Info("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"queue_size":  cap(wp.jobQueue),
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			wp.worker(workerID)
		}(i)
	}

	wp.started = true
}

// Stop closes the queue and waits for the workers to drain what was already
// accepted. Jobs still running when ctx expires are cancelled.
func (wp *WorkerPool[T]) Stop(ctx context.Context) error {
	wp.mutex.Lock()
	if !wp.started || wp.stopped {
		wp.stopped = true
		wp.mutex.Unlock()
		return nil
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mutex.Unlock()

	wp.logger.Info("Stopping worker pool", map[string]interface{}{"pending": len(wp.jobQueue)})

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}

// Submit enqueues without blocking. It returns false when the pool is not
// running or the queue is full.
func (wp *WorkerPool[T]) Submit(job T) bool {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()

	if !wp.started || wp.stopped {
		wp.stats.IncrementRejected()
		return false
	}

	select {
	case wp.jobQueue <- job:
		wp.stats.IncrementSubmitted()
		metrics.UpdateWorkerPoolStats(wp.name, len(wp.jobQueue), int(wp.active.Load()))
		return true
	default:
		wp.stats.IncrementRejected()
		wp.logger.Warn("Job queue full, job rejected", map[string]interface{}{"queue_size": cap(wp.jobQueue)})
		return false
	}
}

func (wp *WorkerPool[T]) worker(id int) {
	wp.logger.Debug("Worker started", map[string]interface{}{"worker_id": id})

	for job := range wp.jobQueue {
		wp.process(id, job)
	}

	wp.logger.Debug("Job queue closed, worker exiting", map[string]interface{}{"worker_id": id})
}

func (wp *WorkerPool[T]) process(id int, job T) {
	wp.active.Add(1)
	metrics.UpdateWorkerPoolStats(wp.name, len(wp.jobQueue), int(wp.active.Load()))
	defer func() {
		wp.active.Add(-1)
		metrics.UpdateWorkerPoolStats(wp.name, len(wp.jobQueue), int(wp.active.Load()))
	}()

	ctx := wp.ctx
	if wp.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.jobTimeout)
		defer cancel()
	}

	startTime := time.Now()
	err := wp.safeProcess(ctx, job)
	processingTime := time.Since(startTime)

	if err != nil {
		wp.stats.IncrementFailed()
		wp.logger.Error("Job failed", map[string]interface{}{
			"worker_id":       id,
			"error":           err.Error(),
			"processing_time": processingTime.String(),
		})
		return
	}

	wp.stats.IncrementCompleted()
	wp.stats.RecordProcessingTime(processingTime)
	wp.logger.Debug("Job completed", map[string]interface{}{
		"worker_id":       id,
		"processing_time": processingTime.String(),
	})
}

func (wp *WorkerPool[T]) safeProcess(ctx context.Context, job T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return wp.processor(ctx, job)
}

func (wp *WorkerPool[T]) GetStats() Stats {
	return wp.stats.GetStats()
}

func (wp *WorkerPool[T]) QueueLength() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool[T]) QueueCapacity() int {
	return cap(wp.jobQueue)
}
