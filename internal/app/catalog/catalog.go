// Package catalog keeps the event list shown by the events, create and match
// views.
package catalog

import (
	"context"
	"sync"

	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/logger"
)

// Fetcher reads the event collection.
type Fetcher interface {
	FetchEvents(ctx context.Context) ([]model.Event, error)
}

// Catalog holds the last successfully fetched event list.
type Catalog struct {
	fetcher Fetcher
	log     logger.Logger

	mu     sync.RWMutex
	events []model.Event
}

// New creates an empty catalog.
func New(fetcher Fetcher, log logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{fetcher: fetcher, log: log, events: []model.Event{}}
}

// Load fetches the full collection and stores it verbatim. On failure the
// list is emptied and the error returned.
func (c *Catalog) Load(ctx context.Context) error {
	events, err := c.fetcher.FetchEvents(ctx)
	if err != nil {
		c.log.Error(ctx, "error fetching events", logger.Error(err))
		c.mu.Lock()
		c.events = []model.Event{}
		c.mu.Unlock()
		return err
	}
	if events == nil {
		events = []model.Event{}
	}
	c.mu.Lock()
	c.events = append([]model.Event(nil), events...)
	c.mu.Unlock()
	c.log.Debug(ctx, "events loaded", logger.Int("count", len(events)))
	return nil
}

// Events returns a copy of the current list in backend order.
func (c *Catalog) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Event{}, c.events...)
}

// Find returns the event with the given id.
func (c *Catalog) Find(id int64) (model.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}
