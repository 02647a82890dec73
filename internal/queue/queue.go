// Package queue is a small Redis-backed job queue with delayed retries.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job is one unit of asynchronous work as stored in Redis.
type Job struct {
	ID          string          `json:"id"`
	Connection  string          `json:"connection"`
	Queue       string          `json:"queue"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// NewJob builds a job carrying payload encoded as JSON.
func NewJob(kind string, payload any, maxAttempts int) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     raw,
		MaxAttempts: maxAttempts,
	}, nil
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// promoteScript moves every delayed job whose score is due onto the ready list.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, payload in ipairs(due) do
  redis.call('ZREM', KEYS[1], payload)
  redis.call('LPUSH', KEYS[2], payload)
end
return #due
`)

// RedisQueue stores ready jobs in a list and delayed jobs in a sorted set
// scored by their due time in milliseconds.
type RedisQueue struct {
	client     redis.Cmdable
	connection string
	name       string
	readyKey   string
	delayedKey string
}

// NewRedisQueue binds a queue to connection/name, for example mail/default.
func NewRedisQueue(client redis.Cmdable, connection, name string) *RedisQueue {
	ready := fmt.Sprintf("queues:%s:%s", connection, name)
	return &RedisQueue{
		client:     client,
		connection: connection,
		name:       name,
		readyKey:   ready,
		delayedKey: ready + ":delayed",
	}
}

// Connection returns the connection the queue is bound to.
func (q *RedisQueue) Connection() string { return q.connection }

// Name returns the queue name.
func (q *RedisQueue) Name() string { return q.name }

// Enqueue makes job immediately available to workers.
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	raw, err := q.encode(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.readyKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Schedule makes job available once at has passed.
func (q *RedisQueue) Schedule(ctx context.Context, job *Job, at time.Time) error {
	raw, err := q.encode(job)
	if err != nil {
		return err
	}
	member := redis.Z{Score: float64(at.UnixMilli()), Member: raw}
	if err := q.client.ZAdd(ctx, q.delayedKey, member).Err(); err != nil {
		return fmt.Errorf("schedule job %s: %w", job.ID, err)
	}
	return nil
}

// PromoteDue moves delayed jobs due at or before now to the ready list.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, q.client, []string{q.delayedKey, q.readyKey}, now.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("promote delayed jobs: %w", err)
	}
	return n, nil
}

// Pop takes the oldest ready job. With a positive timeout it blocks up to that
// long; otherwise it returns immediately. A nil job means the queue was empty.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	var raw string
	if timeout > 0 {
		res, err := q.client.BRPop(ctx, timeout, q.readyKey).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		raw = res[1]
	} else {
		res, err := q.client.RPop(ctx, q.readyKey).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		raw = res
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Len reports the number of ready and delayed jobs.
func (q *RedisQueue) Len(ctx context.Context) (ready, delayed int64, err error) {
	if ready, err = q.client.LLen(ctx, q.readyKey).Result(); err != nil {
		return 0, 0, err
	}
	if delayed, err = q.client.ZCard(ctx, q.delayedKey).Result(); err != nil {
		return 0, 0, err
	}
	return ready, delayed, nil
}

func (q *RedisQueue) encode(job *Job) ([]byte, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Connection = q.connection
	job.Queue = q.name
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return raw, nil
}
