// Package importer submits events and participants from a batch file to the
// backend with a pool of concurrent workers.
package importer

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/evently/internal/domain/dedupe"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/logger"
	"github.com/okian/evently/pkg/metrics"
)

// Item kinds and results reported in metrics.
const (
	KindEvent = "event"
	KindUser  = "user"

	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultFailed    = "failed"
)

const workerChannelMultiplier = 2

// Submitter is the part of the backend an import needs.
type Submitter interface {
	CreateEvent(ctx context.Context, in model.EventInput) (model.CreatedEvent, error)
	RegisterUser(ctx context.Context, in model.Registration) (model.RegisteredUser, error)
}

// Counts holds the per-kind outcome of an import.
type Counts struct {
	Submitted int `json:"submitted"`
	Created   int `json:"created"`
	Duplicate int `json:"duplicate"`
	Invalid   int `json:"invalid"`
	Failed    int `json:"failed"`
}

// Stats summarizes an import run.
type Stats struct {
	Events    Counts        `json:"events"`
	Users     Counts        `json:"users"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// Importer runs bulk imports.
type Importer struct {
	submitter Submitter
	workers   int
	deduper   dedupe.Deduper
	log       logger.Logger
}

// Option applies a configuration option to the Importer.
type Option func(*Importer)

// WithWorkers sets the number of concurrent submissions.
func WithWorkers(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithDeduper replaces the duplicate tracker, for example to share one across
// several runs.
func WithDeduper(d dedupe.Deduper) Option {
	return func(i *Importer) {
		if d != nil {
			i.deduper = d
		}
	}
}

// WithLogger sets the importer logger.
func WithLogger(l logger.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.log = l
		}
	}
}

// New creates an importer.
func New(submitter Submitter, opts ...Option) *Importer {
	i := &Importer{
		submitter: submitter,
		workers:   runtime.NumCPU() * 2,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.deduper == nil {
		i.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	}
	return i
}

type job struct {
	kind  string
	key   string
	event model.EventInput
	user  model.Registration
}

type counters struct {
	submitted, created, duplicate, invalid, failed atomic.Int64
}

func (c *counters) snapshot() Counts {
	return Counts{
		Submitted: int(c.submitted.Load()),
		Created:   int(c.created.Load()),
		Duplicate: int(c.duplicate.Load()),
		Invalid:   int(c.invalid.Load()),
		Failed:    int(c.failed.Load()),
	}
}

// Run submits every record of b. Records repeated within the batch are
// submitted once; records failing validation are not sent. Run returns the
// context error when it was cancelled before finishing.
func (i *Importer) Run(ctx context.Context, b Batch) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	i.log.Info(ctx, "starting import",
		logger.Int("events", len(b.Events)),
		logger.Int("users", len(b.Users)),
		logger.Int("workers", i.workers))

	var events, users counters
	jobs := make(chan job, i.workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for w := 0; w < i.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				c := &events
				if j.kind == KindUser {
					c = &users
				}
				result := i.submit(ctx, j)
				c.submitted.Add(1)
				switch result {
				case ResultCreated:
					c.created.Add(1)
				case ResultFailed:
					c.failed.Add(1)
				}
			}
		}()
	}

	enqueue := func(j job, c *counters) bool {
		if err := model.Validate(payloadOf(j)); err != nil {
			c.invalid.Add(1)
			metrics.RecordImportItem(j.kind, ResultInvalid)
			i.log.Warn(ctx, "skipping invalid record", logger.String("kind", j.kind), logger.String("key", j.key), logger.Error(err))
			return true
		}
		if i.deduper.SeenAndRecord(ctx, j.key) {
			c.duplicate.Add(1)
			metrics.RecordImportItem(j.kind, ResultDuplicate)
			i.log.Debug(ctx, "skipping duplicate record", logger.String("kind", j.kind), logger.String("key", j.key))
			return true
		}
		select {
		case jobs <- j:
			return true
		case <-ctx.Done():
			i.deduper.Unrecord(ctx, j.key)
			return false
		}
	}

	func() {
		defer close(jobs)
		for _, r := range b.Events {
			in := r.Input()
			if !enqueue(job{kind: KindEvent, key: dedupe.EventKey(in.Name, in.Date, in.Location), event: in}, &events) {
				return
			}
		}
		for _, r := range b.Users {
			in := r.Registration()
			if !enqueue(job{kind: KindUser, key: dedupe.UserKey(in.Email), user: in}, &users) {
				return
			}
		}
	}()

	wg.Wait()

	stats.Events = events.snapshot()
	stats.Users = users.snapshot()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	i.log.Info(ctx, "import completed",
		logger.Int("eventsCreated", stats.Events.Created),
		logger.Int("eventsDuplicate", stats.Events.Duplicate),
		logger.Int("eventsFailed", stats.Events.Failed),
		logger.Int("usersRegistered", stats.Users.Created),
		logger.Int("usersDuplicate", stats.Users.Duplicate),
		logger.Int("usersFailed", stats.Users.Failed),
		logger.Duration("duration", stats.Duration))

	return stats, ctx.Err()
}

func payloadOf(j job) any {
	if j.kind == KindUser {
		return j.user
	}
	return j.event
}

// submit sends one record. A failed record is forgotten by the deduper so a
// later run can retry it.
func (i *Importer) submit(ctx context.Context, j job) string {
	var err error
	switch j.kind {
	case KindUser:
		var out model.RegisteredUser
		out, err = i.submitter.RegisterUser(ctx, j.user)
		if err == nil {
			i.log.Debug(ctx, "user registered", logger.String("email", j.user.Email), logger.Int64("user_id", out.UserID))
		}
	default:
		var out model.CreatedEvent
		out, err = i.submitter.CreateEvent(ctx, j.event)
		if err == nil {
			i.log.Debug(ctx, "event created", logger.String("name", j.event.Name), logger.Int64("event_id", out.EventID))
		}
	}
	if err != nil {
		i.deduper.Unrecord(ctx, j.key)
		metrics.RecordImportItem(j.kind, ResultFailed)
		i.log.Warn(ctx, "import submission failed", logger.String("kind", j.kind), logger.String("key", j.key), logger.Error(err))
		return ResultFailed
	}
	metrics.RecordImportItem(j.kind, ResultCreated)
	return ResultCreated
}
