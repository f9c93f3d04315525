package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueEmail = "jobs:email"

// Job types.
const JobExportEmail = "export_email"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// HandlerFunc processes one job payload. Returning an error schedules a retry
// unless the error wraps ErrPermanent.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// ErrPermanent marks a failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueExportEmail pushes an export mail job to Redis.
func (d *Dispatcher) EnqueueExportEmail(ctx context.Context, payload ExportEmailPayload) error {
	return d.enqueue(ctx, QueueEmail, JobExportEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes jobs from Redis and routes them to registered handlers.
type Pool struct {
	rdb         *redis.Client
	handlers    map[string]HandlerFunc
	queues      []string
	maxAttempts int
	popTimeout  time.Duration
	now         func() time.Time
}

func NewPool(rdb *redis.Client, maxAttempts int) *Pool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Pool{
		rdb:         rdb,
		handlers:    make(map[string]HandlerFunc),
		queues:      []string{QueueEmail},
		maxAttempts: maxAttempts,
		popTimeout:  5 * time.Second,
		now:         time.Now,
	}
}

// Handle registers h for jobType. Call before Start.
func (p *Pool) Handle(jobType string, h HandlerFunc) {
	p.handlers[jobType] = h
}

// Start launches numWorkers goroutines consuming the queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to popTimeout then loops to check ctx
			result, err := p.rdb.BRPop(ctx, p.popTimeout, p.queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
					time.Sleep(time.Second)
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

// process runs one raw job. Failures are re-queued until maxAttempts,
// then moved to the dead letter queue.
func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	log.Info().Str("type", job.Type).Str("queue", queue).Int("attempt", job.Attempts+1).Msg("processing job")

	h, ok := p.handlers[job.Type]
	if !ok {
		p.deadLetter(ctx, queue, job, "no handler registered")
		return
	}

	err := h(ctx, job.Payload)
	if err == nil {
		return
	}
	job.Attempts++
	if errors.Is(err, ErrPermanent) || job.Attempts >= p.maxAttempts {
		p.deadLetter(ctx, queue, job, err.Error())
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed, re-queueing")
	if err := push(ctx, p.rdb, queue, job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("failed to re-queue job")
	}
}
