// Package worker provides an asynchronous worker pool for persisting
// memory items via the record path. The pool decouples remembering
// from the caller's hot path: a conversation answer is returned to the
// user while the exchange is written in the background.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/record"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// Kind selects the record operation.
	Kind memory.Kind

	// Scope is the owner/project the item belongs to.
	Scope memory.Scope

	// Title and Text describe a document job.
	Title string
	Text  string

	// Query and Response describe an exchange job.
	Query    string
	Response string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Recorder performs the actual writes. Required.
	Recorder *record.Recorder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Pool processes record jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in
// the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("kind", string(job.Kind)),
			zap.String("owner", job.Scope.OwnerID),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("kind", string(job.Kind)),
			zap.String("owner", job.Scope.OwnerID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker goroutine that continuously pulls jobs off
// the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", zap.Uint("worker_id", id))
}

// processJob runs the record operation for a job. Failures are logged,
// not returned: the job's originator has already moved on.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	var err error
	switch job.Kind {
	case memory.KindDocument:
		_, err = p.config.Recorder.RecordDocument(ctx, job.Scope, job.Title, job.Text)
	case memory.KindExchange:
		_, err = p.config.Recorder.RecordExchange(ctx, job.Scope, job.Query, job.Response)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if err != nil {
		p.logger.Error("async record failed",
			zap.String("kind", string(job.Kind)),
			zap.String("owner", job.Scope.OwnerID),
			zap.Error(err),
		)
		return
	}
}
