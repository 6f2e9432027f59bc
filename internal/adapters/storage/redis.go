package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/evently/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix  = "evently:"
	defaultRedisChannel = "evently:changes"
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: parse redis url: %w", ErrConnect, err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return client, nil
}

// redisMessage is the payload published on the change channel.
type redisMessage struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// Redis stores keys under a prefix and announces every write on a pub/sub
// channel so other clients of the same server can follow the session.
type Redis struct {
	client  *redis.Client
	prefix  string
	channel string
	origin  string
	log     logger.Logger

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
}

// NewRedis wraps an existing client. Close closes the client as well.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client:  client,
		prefix:  defaultRedisPrefix,
		channel: defaultRedisChannel,
		origin:  uuid.NewString(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Get implements KV.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.isClosed() {
		return nil, false, ErrClosed
	}
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Set implements KV.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if r.isClosed() {
		return ErrClosed
	}
	if err := validKey(key); err != nil {
		return err
	}
	msg, err := json.Marshal(redisMessage{Origin: r.origin, Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.prefix+key, value, 0)
		p.Publish(ctx, r.channel, msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements KV.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if r.isClosed() {
		return ErrClosed
	}
	if err := validKey(key); err != nil {
		return err
	}
	msg, err := json.Marshal(redisMessage{Origin: r.origin, Key: key, Removed: true})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.prefix+key)
		p.Publish(ctx, r.channel, msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Watch implements KV.
func (r *Redis) Watch(ctx context.Context) (<-chan Change, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	sub := r.client.Subscribe(ctx, r.channel)
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	// Wait for the subscription confirmation so no change published after
	// Watch returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}

	out := make(chan Change, watchBuffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var payload redisMessage
				if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
					r.log.Warn(ctx, "ignoring malformed change message", logger.String("channel", r.channel), logger.Error(err))
					continue
				}
				if payload.Origin == r.origin || payload.Key == "" {
					continue
				}
				select {
				case out <- Change{Key: payload.Key, Value: payload.Value, Removed: payload.Removed}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close implements KV.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return r.client.Close()
}
