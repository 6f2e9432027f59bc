package session

import (
	"context"
	"sync"

	"github.com/okian/evently/internal/adapters/storage"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/logger"
	"github.com/okian/evently/pkg/metrics"
)

const subscriberBuffer = 8

// Source tells where a session update came from.
type Source string

// Update sources.
const (
	SourceLoad   Source = "load"
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Update is delivered to subscribers whenever the identity changes.
type Update struct {
	Session  model.Session
	LoggedIn bool
	Source   Source
}

// Context is the session every consumer reads. It mirrors the stored record
// and follows writes made by other processes once started.
type Context struct {
	store *Store
	log   logger.Logger

	mu       sync.RWMutex
	current  model.Session
	loggedIn bool
	subs     map[int]chan Update
	nextSub  int
	started  bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewContext creates an anonymous context over store.
func NewContext(store *Store, log logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	return &Context{
		store: store,
		log:   log,
		subs:  make(map[int]chan Update),
	}
}

// Load reads the stored session once.
func (c *Context) Load(ctx context.Context) error {
	sess, ok, err := c.store.Get(ctx)
	if err != nil {
		return err
	}
	c.apply(sess, ok, SourceLoad)
	return nil
}

// Start subscribes to storage changes, loads the stored session and then
// follows changes made elsewhere until Close.
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	// Subscribe before reading so a write landing in between is still seen.
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	changes, err := c.store.KV().Watch(wctx)
	if err != nil {
		cancel()
		return err
	}
	if err := c.Load(ctx); err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.follow(wctx, changes, done)
	return nil
}

func (c *Context) follow(ctx context.Context, changes <-chan storage.Change, done chan struct{}) {
	defer close(done)
	for ch := range changes {
		if ch.Key != Key {
			continue
		}
		if ch.Removed {
			metrics.RecordSessionChange("remote_clear")
			c.log.Info(ctx, "session cleared elsewhere")
			c.apply(model.Session{}, false, SourceRemote)
			continue
		}
		sess, ok := c.store.decode(ctx, ch.Value)
		metrics.RecordSessionChange("remote_set")
		c.log.Info(ctx, "session changed elsewhere", logger.Bool("logged_in", ok))
		c.apply(sess, ok, SourceRemote)
	}
}

// Current returns the session and whether one is present.
func (c *Context) Current() (model.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.loggedIn
}

// LoggedIn reports whether a session is present.
func (c *Context) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

// SetSession persists sess and makes it current.
func (c *Context) SetSession(ctx context.Context, sess model.Session) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.store.Set(ctx, sess); err != nil {
		return err
	}
	metrics.RecordSessionChange("login")
	c.apply(sess, true, SourceLocal)
	return nil
}

// Logout removes the stored session and turns the context anonymous at once.
// Requests already in flight are left to finish.
func (c *Context) Logout(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	metrics.RecordSessionChange("logout")
	c.apply(model.Session{}, false, SourceLocal)
	return nil
}

// Subscribe returns a channel of identity updates and a function that ends
// the subscription. A subscriber that falls behind misses updates; Current
// is always authoritative.
func (c *Context) Subscribe() (<-chan Update, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Update, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Context) apply(sess model.Session, loggedIn bool, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.current = sess
	c.loggedIn = loggedIn
	u := Update{Session: sess, LoggedIn: loggedIn, Source: src}
	for _, ch := range c.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (c *Context) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close stops following storage and ends every subscription. The stored
// record is left as is.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
