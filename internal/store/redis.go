package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects the Redis server holding the notification queue.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Redis is the connection shared by the notification queue and /healthz.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client with short dial and IO timeouts. BRPOP in the queue
// gets its own longer deadline from go-redis, so the short read timeout only
// bounds ordinary commands.
func NewRedis(opts Options) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})}
}

// Healthy reports whether the server answers PING. A nil handle is unhealthy.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool. It is safe on a nil handle.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
