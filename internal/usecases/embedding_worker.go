package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"estate_crm/internal/entities"

	"github.com/rs/zerolog/log"
)

// ErrPoolStopped is returned when a job is submitted after Stop
var ErrPoolStopped = errors.New("embedding pool stopped")

// EmbeddingJob is one unit of background embedding work
type EmbeddingJob struct {
	Name string
	Run  func(ctx context.Context) error
}

// EmbeddingPool runs embedding jobs on a fixed number of workers fed by a
// bounded queue. Submit blocks while the queue is full.
type EmbeddingPool struct {
	matching   *MatchingService
	jobs       chan EmbeddingJob
	workers    int
	jobTimeout time.Duration

	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

func NewEmbeddingPool(matching *MatchingService, workers, queueSize int) *EmbeddingPool {
	if workers <= 0 {
		workers = 3
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &EmbeddingPool{
		matching:   matching,
		jobs:       make(chan EmbeddingJob, queueSize),
		workers:    workers,
		jobTimeout: 30 * time.Second,
	}
}

// Start spawns the workers
func (p *EmbeddingPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Info().Int("workers", p.workers).Int("queue", cap(p.jobs)).Msg("embedding worker pool started")
}

func (p *EmbeddingPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
		if err := job.Run(ctx); err != nil {
			log.Warn().Err(err).Int("worker", id).Str("job", job.Name).Msg("embedding job failed")
		}
		cancel()
	}
}

// Submit queues job, waiting for space until ctx is done
func (p *EmbeddingPool) Submit(ctx context.Context, job EmbeddingJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new jobs, lets queued ones finish and waits for the workers
func (p *EmbeddingPool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
	log.Info().Msg("embedding worker pool stopped")
}

func (p *EmbeddingPool) QueueArea(ctx context.Context, a entities.Area) error {
	if !p.matching.VectorsEnabled() {
		return nil
	}
	return p.Submit(ctx, EmbeddingJob{
		Name: "area",
		Run:  func(ctx context.Context) error { return p.matching.IndexArea(ctx, a) },
	})
}

func (p *EmbeddingPool) QueueUnitType(ctx context.Context, t entities.UnitType) error {
	if !p.matching.VectorsEnabled() {
		return nil
	}
	return p.Submit(ctx, EmbeddingJob{
		Name: "unit_type",
		Run:  func(ctx context.Context) error { return p.matching.IndexUnitType(ctx, t) },
	})
}

func (p *EmbeddingPool) QueueMessage(ctx context.Context, phone, direction, text string, metadata map[string]string) error {
	return p.Submit(ctx, EmbeddingJob{
		Name: "message",
		Run: func(ctx context.Context) error {
			return p.matching.StoreMessage(ctx, phone, direction, text, metadata)
		},
	})
}
