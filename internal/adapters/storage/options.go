package storage

import "github.com/okian/evently/pkg/logger"

// FileOption configures a File store.
type FileOption func(*File)

// WithFileLogger sets the logger used by the watch loop.
func WithFileLogger(l logger.Logger) FileOption {
	return func(f *File) {
		if l != nil {
			f.log = l
		}
	}
}

// WithFileMode sets the permission bits of value files.
func WithFileMode(mode uint32) FileOption {
	return func(f *File) {
		if mode != 0 {
			f.mode = mode
		}
	}
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRedisPrefix sets the key namespace. Defaults to "evently:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisChannel sets the pub/sub channel carrying change notifications.
func WithRedisChannel(channel string) RedisOption {
	return func(r *Redis) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithRedisLogger sets the logger used by the subscription loop.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(r *Redis) {
		if l != nil {
			r.log = l
		}
	}
}
