package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAlertasEmail = "jobs:alertas_email"

	JobAlertaEmail = "alerta_email"

	// MaxIntentos is how many times a job runs before it lands in the DLQ.
	MaxIntentos = 3
)

// ErrSinRedis is returned by the Dispatcher when Redis is not configured.
var ErrSinRedis = errors.New("worker: redis no configurado")

// retryBase is the first backoff step between attempts (1s, 2s, ...).
var retryBase = time.Second

// popBackoff is the pause after a failed BRPOP, e.g. while Redis is down.
var popBackoff = 2 * time.Second

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Procesador handles one job payload. A returned error triggers a retry.
type Procesador func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAlertaEmail pushes a notification email job to Redis.
func (d *Dispatcher) EnqueueAlertaEmail(ctx context.Context, payload AlertaEmailPayload) error {
	return d.enqueue(ctx, QueueAlertasEmail, JobAlertaEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return ErrSinRedis
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

// StartWorkerPool launches numWorkers goroutines consuming the queues that
// have a registered Procesador. Each goroutine blocks on BRPOP, so idle
// workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, procesadores map[string]Procesador) {
	if rdb == nil {
		log.Warn().Msg("worker pool disabled: redis no configurado")
		return
	}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, procesadores)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool started")
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, procesadores map[string]Procesador) {
	queues := []string{QueueAlertasEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if espera := esperaTrasPop(ctx, err); espera > 0 {
					log.Warn().Int("worker", id).Err(err).Msg("brpop failed")
					select {
					case <-ctx.Done():
					case <-time.After(espera):
					}
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, result[0], result[1], procesadores)
		}
	}
}

// esperaTrasPop is zero for an empty-queue timeout or a cancelled context,
// and popBackoff for anything else.
func esperaTrasPop(ctx context.Context, err error) time.Duration {
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return 0
	}
	return popBackoff
}

// processJob runs one job with exponential backoff and moves it to the DLQ
// after MaxIntentos failures. It returns the number of attempts made.
func processJob(ctx context.Context, rdb *redis.Client, queue, raw string, procesadores map[string]Procesador) int {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, rdb, queue, "", quoted, "json invalido: "+err.Error(), 0)
		return 0
	}
	proc, ok := procesadores[job.Type]
	if !ok {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "tipo de job desconocido", 0)
		return 0
	}

	intentos, err := withRetry(ctx, MaxIntentos, func(attempt int) error {
		log.Debug().Str("type", job.Type).Int("attempt", attempt).Msg("processing job")
		return proc(ctx, job.Payload)
	})
	if err != nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), intentos)
	}
	return intentos
}

// withRetry calls fn up to maxAttempts times with exponential backoff
// (retryBase, 2×retryBase, ...). It returns the attempts made and the last error.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) (int, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := retryBase * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-time.After(wait):
			}
		}
		if lastErr = fn(i + 1); lastErr == nil {
			return i + 1, nil
		}
	}
	return maxAttempts, lastErr
}
