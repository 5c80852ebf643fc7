package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

const (
	queueKeyPrefix  = "tasks:"
	resultKeyPrefix = "task-meta-"
)

// NewPool returns a Redis connection pool for the given redis:// URL.
func NewPool(url string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(url)
		},
		TestOnBorrow: func(c redis.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// Ping checks that the pool can reach Redis.
func Ping(ctx context.Context, pool *redis.Pool) error {
	conn, err := pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// RedisBroker implements Broker on a Redis list (LPUSH / BRPOP) with results
// stored as JSON strings that expire after resultTTL, at millisecond
// precision.
type RedisBroker struct {
	pool      *redis.Pool
	queue     string
	resultTTL time.Duration
}

// NewRedisBroker creates a broker reading and writing the named queue.
func NewRedisBroker(pool *redis.Pool, queue string, resultTTL time.Duration) *RedisBroker {
	return &RedisBroker{pool: pool, queue: queue, resultTTL: resultTTL}
}

// Name returns the queue name.
func (b *RedisBroker) Name() string {
	return b.queue
}

// Publish pushes msg onto the head of the queue list.
func (b *RedisBroker) Publish(ctx context.Context, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message %s: %w", msg.ID, err)
	}

	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "LPUSH", b.queueKey(), payload); err != nil {
		return fmt.Errorf("publish message %s: %w", msg.ID, err)
	}
	return nil
}

// Consume pops from the tail of the queue list, blocking for up to timeout
// (rounded up to whole seconds).
func (b *RedisBroker) Consume(ctx context.Context, timeout time.Duration) (*Message, error) {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	secs := int64((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}

	reply, err := redis.ByteSlices(redis.DoContext(conn, ctx, "BRPOP", b.queueKey(), secs))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume from %s: %w", b.queue, err)
	}
	if len(reply) != 2 {
		return nil, fmt.Errorf("consume from %s: unexpected reply of length %d", b.queue, len(reply))
	}

	var msg Message
	if err := json.Unmarshal(reply[1], &msg); err != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrMalformedMessage, b.queue, err)
	}
	return &msg, nil
}

// SetResult stores res under its task id.
func (b *RedisBroker) SetResult(ctx context.Context, res *Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", res.ID, err)
	}

	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	args := redis.Args{}.Add(resultKey(res.ID), payload)
	if b.resultTTL > 0 {
		ms := int64((b.resultTTL + time.Millisecond - 1) / time.Millisecond)
		args = args.Add("PX", ms)
	}
	if _, err := redis.DoContext(conn, ctx, "SET", args...); err != nil {
		return fmt.Errorf("store result %s: %w", res.ID, err)
	}
	return nil
}

// GetResult loads the result stored for id.
func (b *RedisBroker) GetResult(ctx context.Context, id string) (*Result, error) {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	payload, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", resultKey(id)))
	if errors.Is(err, redis.ErrNil) {
		return nil, fmt.Errorf("%w %s", ErrNoResult, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", id, err)
	}

	var res Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &res, nil
}

func (b *RedisBroker) queueKey() string {
	return queueKeyPrefix + b.queue
}

func resultKey(id string) string {
	return resultKeyPrefix + id
}
