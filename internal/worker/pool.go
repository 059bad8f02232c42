package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weconnect-crm/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobDocumentSent = "document_sent"

	// DefaultMaxAttempts is how many times a job runs before it is parked in
	// the dead letter queue.
	DefaultMaxAttempts = 5
)

// ErrQueueUnavailable is returned when no Redis client was configured.
var ErrQueueUnavailable = errors.New("job queue unavailable")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// JobHandler processes one job. Returning an error schedules a retry unless
// the error is wrapped with Permanent.
type JobHandler interface {
	Process(ctx context.Context, job Job) error
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

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueDocumentSent pushes the "document sent" notification job.
func (d *Dispatcher) EnqueueDocumentSent(ctx context.Context, p DocumentSentPayload) error {
	return d.enqueue(ctx, QueueEmail, JobDocumentSent, p)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	if d == nil || d.rdb == nil {
		return ErrQueueUnavailable
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool runs workers that BRPOP jobs and route them to handlers by type.
type Pool struct {
	rdb         *redis.Client
	handlers    map[string]JobHandler
	metrics     *metrics.Metrics
	maxAttempts int
	// popErrDelay is the pause after a failed BRPOP, so a Redis outage
	// does not turn the loop into a busy spin.
	popErrDelay time.Duration
}

func NewPool(rdb *redis.Client, m *metrics.Metrics) *Pool {
	return &Pool{
		rdb:         rdb,
		handlers:    make(map[string]JobHandler),
		metrics:     m,
		maxAttempts: DefaultMaxAttempts,
		popErrDelay: time.Second,
	}
}

// Handle registers h for jobType. Not safe to call after Start.
func (p *Pool) Handle(jobType string, h JobHandler) {
	p.handlers[jobType] = h
}

// Start launches numWorkers goroutines consuming the email queue.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, QueueEmail).Result()
			if err != nil && !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("queue pop failed")
				if !sleepCtx(ctx, p.popErrDelay) {
					return
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

// step is what the pool does with a job after its handler returned.
type step int

const (
	stepDone step = iota
	stepRetry
	stepDeadLetter
)

// nextStep decides the fate of a job given the error its handler returned.
// attempts counts the run that just finished.
func nextStep(attempts, maxAttempts int, err error) step {
	switch {
	case err == nil:
		return stepDone
	case isPermanent(err), attempts >= maxAttempts:
		return stepDeadLetter
	default:
		return stepRetry
	}
}

// sleepCtx waits d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// backoff grows 1s, 2s, 4s ... capped at 30s.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Second << (attempt - 1)
	if d <= 0 || d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, Job{Type: "unknown", Payload: json.RawMessage(raw)}, err.Error())
		return
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		SendToDLQ(ctx, p.rdb, queue, job, "no handler registered")
		p.metrics.JobProcessed(job.Type, "dead_letter")
		return
	}

	job.Attempts++
	err := h.Process(ctx, job)
	switch nextStep(job.Attempts, p.maxAttempts, err) {
	case stepDone:
		p.metrics.JobProcessed(job.Type, "done")
	case stepDeadLetter:
		SendToDLQ(ctx, p.rdb, queue, job, err.Error())
		p.metrics.JobProcessed(job.Type, "dead_letter")
	case stepRetry:
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, retrying")
		p.metrics.JobProcessed(job.Type, "retry")
		if err := p.requeue(ctx, queue, job); err != nil {
			log.Error().Err(err).Str("type", job.Type).Msg("requeue failed")
		}
	}
}

func (p *Pool) requeue(ctx context.Context, queue string, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff(job.Attempts)):
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	// Retries go to the consuming end so they are picked up first.
	return p.rdb.RPush(ctx, queue, encoded).Err()
}
