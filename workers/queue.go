// workers/queue.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Task is the JSON envelope pushed onto the broker list.
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

var ErrNoHandler = errors.New("no handler for task type")

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// TaskQueue is a redis list used as a work queue. Producers LPUSH, Run BRPOPs
// and hands each task to the worker pool.
type TaskQueue struct {
	client *redis.Client
	key    string
	pool   *Pool

	// PollTimeout bounds each BRPOP so Run notices cancellation.
	PollTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRedisClient connects to the broker at url (redis://host:port/db).
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("broker ping failed: %w", err)
	}
	return client, nil
}

func NewTaskQueue(client *redis.Client, key string, pool *Pool) *TaskQueue {
	return &TaskQueue{
		client:      client,
		key:         key,
		pool:        pool,
		PollTimeout: 5 * time.Second,
		handlers:    make(map[string]HandlerFunc),
	}
}

func (q *TaskQueue) Register(taskType string, h HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

// Enqueue pushes a task and returns its id.
func (q *TaskQueue) Enqueue(ctx context.Context, taskType string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	task := Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return "", fmt.Errorf("push task: %w", err)
	}
	return task.ID, nil
}

// Len is the number of tasks waiting on the broker.
func (q *TaskQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Run consumes tasks until ctx is cancelled.
func (q *TaskQueue) Run(ctx context.Context) error {
	log.Printf("[Queue] consuming %s with %d workers", q.key, q.pool.Size())
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			log.Println("[Queue] consumer stopped")
			return nil
		}

		res, err := q.client.BRPop(ctx, q.PollTimeout, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			log.Println("[Queue] consumer stopped")
			return nil
		case err != nil:
			log.Printf("[Queue] pop failed: %v (retrying in %s)", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		// res is [key, value]
		if len(res) != 2 {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			log.Printf("[Queue] dropping malformed task: %v", err)
			continue
		}
		if err := q.dispatch(task); err != nil {
			log.Printf("[Queue] task %s (%s) not dispatched: %v", task.ID, task.Type, err)
			if errors.Is(err, ErrNoHandler) {
				q.deadLetter(ctx, task.ID, res[1])
				continue
			}
			if errors.Is(err, ErrPoolClosed) {
				return err
			}
		}
	}
}

func (q *TaskQueue) dispatch(task Task) error {
	q.mu.RLock()
	h, ok := q.handlers[task.Type]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w %q", ErrNoHandler, task.Type)
	}

	return q.pool.Submit(func(ctx context.Context) error {
		if err := h(ctx, task.Payload); err != nil {
			return fmt.Errorf("task %s (%s): %w", task.ID, task.Type, err)
		}
		return nil
	})
}

// DeadLetterKey holds tasks no handler was registered for.
func (q *TaskQueue) DeadLetterKey() string { return q.key + ":dead" }

func (q *TaskQueue) deadLetter(ctx context.Context, id, raw string) {
	if err := q.client.LPush(ctx, q.DeadLetterKey(), raw).Err(); err != nil {
		log.Printf("❌ [Queue] task %s lost, dead-letter push failed: %v", id, err)
		return
	}
	log.Printf("⚠️  [Queue] task %s moved to %s", id, q.DeadLetterKey())
}

func (q *TaskQueue) Close() error {
	return q.client.Close()
}
