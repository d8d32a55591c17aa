package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/logging"
)

// Handler executes one kind of job. A returned error sends the job back to
// the queue (or to failed once attempts are exhausted).
type Handler func(ctx context.Context, job *Job) error

// Pool runs a fixed set of workers that poll the queue and dispatch jobs to
// registered handlers.
type Pool struct {
	queue    *Queue
	cfg      config.JobsConfig
	log      *logging.Logger
	handlers map[string]Handler

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewPool creates a worker pool. Register handlers before calling Start.
func NewPool(queue *Queue, cfg config.JobsConfig, log *logging.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Pool{
		queue:    queue,
		cfg:      cfg,
		log:      log.Sub("jobs"),
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job kind.
func (p *Pool) Register(kind string, h Handler) {
	p.handlers[kind] = h
}

// Start launches the workers. They run until Stop or ctx cancellation.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.worker(ctx, n)
		}(i)
	}
	go func() {
		wg.Wait()
		close(p.done)
	}()

	p.log.Info().Int("workers", p.cfg.Workers).Msg("job workers started")
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info().Msg("job workers stopped")
}

func (p *Pool) worker(ctx context.Context, n int) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything runnable before going back to sleep.
		for {
			if ctx.Err() != nil {
				return
			}
			job, err := p.queue.Claim()
			if errors.Is(err, ErrNoJob) {
				break
			}
			if err != nil {
				p.log.Error().Err(err).Int("worker", n).Msg("claim failed")
				break
			}
			p.dispatch(ctx, job)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, job *Job) {
	handler, ok := p.handlers[job.Kind]
	if !ok {
		// Retrying cannot help: fail outright.
		p.log.Error().Str("kind", job.Kind).Int64("job", job.ID).Msg("no handler registered")
		job.Attempts = job.MaxAttempts
		_ = p.queue.Fail(job, fmt.Errorf("no handler for kind %q", job.Kind))
		return
	}

	p.log.Debug().Str("kind", job.Kind).Int64("job", job.ID).Int("attempt", job.Attempts).Msg("running job")

	if err := handler(ctx, job); err != nil {
		p.log.Warn().Err(err).Str("kind", job.Kind).Int64("job", job.ID).Msg("job failed")
		if ferr := p.queue.Fail(job, err); ferr != nil {
			p.log.Error().Err(ferr).Int64("job", job.ID).Msg("recording job failure")
		}
		return
	}

	if err := p.queue.Complete(job.ID); err != nil {
		p.log.Error().Err(err).Int64("job", job.ID).Msg("marking job done")
	}
}
