// Package session owns the logged-in identity: a typed store over the durable
// "user" record and a Context that every consumer reads the session through.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/evently/internal/adapters/storage"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/logger"
	"github.com/okian/evently/pkg/metrics"
)

// Key is the storage key holding the serialized session.
const Key = "user"

// Store reads and writes the session record.
type Store struct {
	kv  storage.KV
	log logger.Logger
}

// NewStore creates a store over kv.
func NewStore(kv storage.KV, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{kv: kv, log: log}
}

// KV returns the underlying storage.
func (s *Store) KV() storage.KV { return s.kv }

// Get returns the stored session. A value that is not a JSON object is
// treated as no session at all; the error return is reserved for storage
// failures.
func (s *Store) Get(ctx context.Context) (model.Session, bool, error) {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return model.Session{}, false, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return model.Session{}, false, nil
	}
	sess, ok := s.decode(ctx, raw)
	return sess, ok, nil
}

func (s *Store) decode(ctx context.Context, raw []byte) (model.Session, bool) {
	sess, err := model.DecodeSession(raw)
	if err != nil {
		metrics.RecordSessionMalformed()
		s.log.Warn(ctx, "ignoring malformed stored session", logger.Int("bytes", len(raw)), logger.Error(err))
		return model.Session{}, false
	}
	return sess, true
}

// Set replaces the stored session.
func (s *Store) Set(ctx context.Context, sess model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
