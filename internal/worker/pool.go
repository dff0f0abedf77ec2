// Package worker runs background refresh jobs on a fixed set of goroutines.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

var (
	ErrQueueFull   = errors.New("refresh queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Job is a unit of background work. Key deduplicates: while a job with the
// same key is queued or running, Submit returns the existing id.
type Job struct {
	Key       string
	Run       func(ctx context.Context) error
	OnFailure func(err error)
}

type task struct {
	id     string
	job    Job
	ctx    context.Context
	cancel context.CancelFunc
}

type Options struct {
	Workers   int
	QueueSize int
	Attempts  int
	Backoff   time.Duration
}

type Pool struct {
	opts   Options
	tasks  chan *task
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[string]string
	stopped bool

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Workers:   cfg.RefreshWorkers,
		QueueSize: constants.RefreshQueueSize,
		Attempts:  constants.RefreshAttempts,
		Backoff:   constants.RefreshBackoff,
	}
}

func NewPool(opts Options, logger zerolog.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = constants.RefreshWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = constants.RefreshQueueSize
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = constants.RefreshBackoff
	}

	root, cancel := context.WithCancel(context.Background())
	return &Pool{
		opts:    opts,
		tasks:   make(chan *task, opts.QueueSize),
		logger:  logger.With().Str("component", "worker").Logger(),
		pending: make(map[string]string),
		root:    root,
		cancel:  cancel,
	}
}

func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.opts.Workers; i++ {
			p.wg.Add(1)
			go p.work(i)
		}
		p.logger.Info().Int("workers", p.opts.Workers).Int("queue_size", p.opts.QueueSize).Msg("worker pool started")
	})
}

// Stop cancels every queued and running job and waits for the workers to
// exit, or for ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info().Msg("worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues job. The job's context ends when parent ends or the pool
// stops, whichever comes first.
func (p *Pool) Submit(parent context.Context, job Job) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return "", ErrPoolStopped
	}
	if job.Key != "" {
		if id, ok := p.pending[job.Key]; ok {
			return id, nil
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(p.root)
	stop := context.AfterFunc(parent, cancel)
	t := &task{
		id:  id,
		job: job,
		ctx: ctx,
		cancel: func() {
			stop()
			cancel()
		},
	}

	select {
	case p.tasks <- t:
	default:
		t.cancel()
		return "", ErrQueueFull
	}

	if job.Key != "" {
		p.pending[job.Key] = id
	}
	p.logger.Debug().Str("job_id", id).Str("key", job.Key).Msg("job queued")
	return id, nil
}

// Pending reports how many keyed jobs are queued or running.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Pool) work(n int) {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(n, t)
	}
}

func (p *Pool) run(n int, t *task) {
	defer func() {
		t.cancel()
		if t.job.Key != "" {
			p.mu.Lock()
			if p.pending[t.job.Key] == t.id {
				delete(p.pending, t.job.Key)
			}
			p.mu.Unlock()
		}
	}()

	logger := p.logger.With().Str("job_id", t.id).Str("key", t.job.Key).Int("worker", n).Logger()
	start := time.Now()

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(p.opts.Attempts-1), retry.NewExponential(p.opts.Backoff))
	err := retry.Do(t.ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := t.job.Run(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) || ctx.Err() != nil {
			return err
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("job attempt failed")
		return retry.RetryableError(err)
	})

	if err != nil {
		var perm *permanentError
		if errors.As(err, &perm) {
			err = perm.err
		}
		logger.Error().Err(err).Int("attempts", attempt).Dur("elapsed", time.Since(start)).Msg("job failed")
		if t.job.OnFailure != nil {
			t.job.OnFailure(err)
		}
		return
	}
	logger.Debug().Int("attempts", attempt).Dur("elapsed", time.Since(start)).Msg("job done")
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
