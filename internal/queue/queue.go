package queue

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultKey is the Redis list holding notification jobs.
const DefaultKey = "schoolattend:notifications"

// Message represents work to be processed.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Body       json.RawMessage `json:"body"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewMessage encodes body as JSON into a message of the given type.
func NewMessage(typ string, body interface{}) (Message, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Message{}, errors.Annotatef(err, "encode %s message", typ)
	}
	return Message{ID: uuid.NewString(), Type: typ, Body: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the message body into v.
func (m Message) Decode(v interface{}) error {
	return errors.Annotatef(json.Unmarshal(m.Body, v), "decode %s message", m.Type)
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a minimal channel-backed queue for single-process deployments
// and tests.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message, blocking while the buffer is full.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers. It is closed when ctx is done.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
	log    *logrus.Entry
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string, log *logrus.Logger) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	return &RedisQueue{
		client: client,
		key:    key,
		log:    log.WithFields(logrus.Fields{"module": "queue", "scope": "redis", "key": key}),
	}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(q.client.LPush(ctx, q.key, raw).Err(), "lpush")
}

// Consume streams messages using BRPOP. Undecodable entries are logged and
// dropped; connection errors back off for a second.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if err != redis.Nil {
					q.log.WithError(err).Warn("brpop failed")
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return
					}
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			var msg Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				q.log.WithError(err).Error("dropping undecodable message")
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
