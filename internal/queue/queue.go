package queue

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mark is one marked-present event flowing from the API to the tally worker.
type Mark struct {
	ClassID   string
	StudentID string
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, m Mark) error
	Consume(ctx context.Context) (<-chan Mark, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Mark
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Mark, size)}
}

// Publish enqueues a mark event.
func (q *InMemory) Publish(ctx context.Context, m Mark) error {
	select {
	case q.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Mark, error) {
	out := make(chan Mark)
	go func() {
		defer close(out)
		for {
			select {
			case m := <-q.ch:
				out <- m
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "classattend:marks"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a mark event.
func (q *RedisQueue) Publish(ctx context.Context, m Mark) error {
	return q.client.LPush(ctx, q.key, serialize(m)).Err()
}

// Consume streams mark events using BRPOP.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Mark, error) {
	out := make(chan Mark)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				if m, ok := deserialize(res[1]); ok {
					out <- m
				}
			}
		}
	}()
	return out, nil
}

// Mark events travel as "classID|studentID". Ids are uuids, so the separator
// never appears in either half.
func serialize(m Mark) string {
	return m.ClassID + "|" + m.StudentID
}

func deserialize(s string) (Mark, bool) {
	classID, studentID, found := strings.Cut(s, "|")
	if !found || classID == "" || studentID == "" {
		return Mark{}, false
	}
	return Mark{ClassID: classID, StudentID: studentID}, true
}
