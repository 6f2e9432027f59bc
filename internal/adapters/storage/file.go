package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/okian/evently/pkg/logger"
)

const (
	fileExt      = ".json"
	tempPattern  = ".evently-*.tmp"
	defaultPerms = 0o600
)

// ownWrite remembers the last write this handle made to a key so the watch
// loop can skip the echo.
type ownWrite struct {
	value   []byte
	removed bool
}

// File stores each key as <dir>/<key>.json and reports changes made by other
// processes through fsnotify.
type File struct {
	dir  string
	mode uint32
	log  logger.Logger

	mu      sync.Mutex
	own     map[string]ownWrite
	closed  bool
	closeCh chan struct{}
}

// NewFile creates the directory if needed and returns a store rooted there.
func NewFile(dir string, opts ...FileOption) (*File, error) {
	if dir == "" {
		return nil, errors.New("storage: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	f := &File{
		dir:     dir,
		mode:    defaultPerms,
		log:     logger.Nop(),
		own:     make(map[string]ownWrite),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Dir returns the root directory.
func (f *File) Dir() string { return f.dir }

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}

func (f *File) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Get implements KV.
func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	if f.isClosed() {
		return nil, false, ErrClosed
	}
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Set implements KV. The value is written to a temp file and renamed into
// place so readers never observe a partial write.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	if f.isClosed() {
		return ErrClosed
	}
	if err := validKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Chmod(fs.FileMode(f.mode)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	f.mu.Lock()
	f.own[key] = ownWrite{value: cloneBytes(value)}
	f.mu.Unlock()

	if err := os.Rename(tmpName, f.path(key)); err != nil {
		f.forget(key)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete implements KV.
func (f *File) Delete(_ context.Context, key string) error {
	if f.isClosed() {
		return ErrClosed
	}
	if err := validKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	f.own[key] = ownWrite{removed: true}
	f.mu.Unlock()

	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		f.forget(key)
		return nil
	}
	if err != nil {
		f.forget(key)
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (f *File) forget(key string) {
	f.mu.Lock()
	delete(f.own, key)
	f.mu.Unlock()
}

// isEcho reports whether c is the notification of this handle's own last
// write, consuming the record when it is.
func (f *File) isEcho(c Change) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.own[c.Key]
	if !ok {
		return false
	}
	if w.removed != c.Removed || !bytes.Equal(w.value, c.Value) {
		return false
	}
	delete(f.own, c.Key)
	return true
}

// Watch implements KV.
func (f *File) Watch(ctx context.Context) (<-chan Change, error) {
	if f.isClosed() {
		return nil, ErrClosed
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", f.dir, err)
	}
	if err := w.Add(f.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", f.dir, err)
	}

	out := make(chan Change, watchBuffer)
	go f.watchLoop(ctx, w, out)
	return out, nil
}

func (f *File) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- Change) {
	defer close(out)
	defer func() { _ = w.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.closeCh:
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.log.Warn(ctx, "storage watch error", logger.String("dir", f.dir), logger.Error(err))
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			c, ok := f.changeFor(ev)
			if !ok || f.isEcho(c) {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			case <-f.closeCh:
				return
			}
		}
	}
}

// changeFor maps a filesystem event to a key change. Temp files and
// unrelated names are ignored.
func (f *File) changeFor(ev fsnotify.Event) (Change, bool) {
	base := filepath.Base(ev.Name)
	if !strings.HasSuffix(base, fileExt) || strings.HasPrefix(base, ".") {
		return Change{}, false
	}
	key := strings.TrimSuffix(base, fileExt)

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if _, err := os.Stat(ev.Name); errors.Is(err, fs.ErrNotExist) {
			return Change{Key: key, Removed: true}, true
		}
		return Change{}, false
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		data, err := os.ReadFile(ev.Name)
		if errors.Is(err, fs.ErrNotExist) {
			return Change{Key: key, Removed: true}, true
		}
		if err != nil {
			f.log.Warn(context.Background(), "storage read after change failed", logger.String("key", key), logger.Error(err))
			return Change{}, false
		}
		return Change{Key: key, Value: data}, true
	default:
		return Change{}, false
	}
}

// Close implements KV.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.closeCh)
	return nil
}
