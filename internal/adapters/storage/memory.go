package storage

import (
	"context"
	"sync"
)

// memoryBackend is the state shared by every handle of one in-memory store.
type memoryBackend struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[*memoryWatcher]struct{}
}

type memoryWatcher struct {
	owner *Memory
	ch    chan Change
	once  sync.Once
}

func (w *memoryWatcher) close() {
	w.once.Do(func() { close(w.ch) })
}

// Memory is an in-process KV. Handles created with Handle share the data and
// see each other's writes through Watch.
type Memory struct {
	backend *memoryBackend

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		backend: &memoryBackend{
			data:     make(map[string][]byte),
			watchers: make(map[*memoryWatcher]struct{}),
		},
		done: make(chan struct{}),
	}
}

// Handle returns another view of the same data, standing in for a second
// process sharing the storage.
func (m *Memory) Handle() *Memory {
	return &Memory{backend: m.backend, done: make(chan struct{})}
}

func (m *Memory) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Get implements KV.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.isClosed() {
		return nil, false, ErrClosed
	}
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	m.backend.mu.RLock()
	defer m.backend.mu.RUnlock()
	v, ok := m.backend.data[key]
	return cloneBytes(v), ok, nil
}

// Set implements KV.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if m.isClosed() {
		return ErrClosed
	}
	if err := validKey(key); err != nil {
		return err
	}
	m.backend.mu.Lock()
	m.backend.data[key] = cloneBytes(value)
	m.broadcast(Change{Key: key, Value: value})
	m.backend.mu.Unlock()
	return nil
}

// Delete implements KV.
func (m *Memory) Delete(_ context.Context, key string) error {
	if m.isClosed() {
		return ErrClosed
	}
	if err := validKey(key); err != nil {
		return err
	}
	m.backend.mu.Lock()
	if _, ok := m.backend.data[key]; ok {
		delete(m.backend.data, key)
		m.broadcast(Change{Key: key, Removed: true})
	}
	m.backend.mu.Unlock()
	return nil
}

// broadcast must be called with the backend lock held. Slow watchers lose
// changes instead of blocking writers.
func (m *Memory) broadcast(c Change) {
	for w := range m.backend.watchers {
		if w.owner == m {
			continue
		}
		out := c
		out.Value = cloneBytes(c.Value)
		select {
		case w.ch <- out:
		default:
		}
	}
}

// Watch implements KV.
func (m *Memory) Watch(ctx context.Context) (<-chan Change, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	w := &memoryWatcher{owner: m, ch: make(chan Change, watchBuffer)}
	m.backend.mu.Lock()
	m.backend.watchers[w] = struct{}{}
	m.backend.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			m.removeWatcher(w)
		case <-m.done:
		}
	}()
	return w.ch, nil
}

func (m *Memory) removeWatcher(w *memoryWatcher) {
	m.backend.mu.Lock()
	delete(m.backend.watchers, w)
	m.backend.mu.Unlock()
	w.close()
}

// Close implements KV. Other handles stay usable.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.backend.mu.Lock()
	var mine []*memoryWatcher
	for w := range m.backend.watchers {
		if w.owner == m {
			mine = append(mine, w)
		}
	}
	for _, w := range mine {
		delete(m.backend.watchers, w)
	}
	m.backend.mu.Unlock()
	for _, w := range mine {
		w.close()
	}
	return nil
}
