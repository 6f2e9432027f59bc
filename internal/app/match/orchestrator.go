// Package match drives the "select event, verify session, request match,
// show teams" interaction.
//
// A match request is only issued when a session is present; otherwise the
// user is sent to the login route. Each request for an event carries a
// generation token and its response is applied only while that token is the
// event's latest and the orchestrator is open. Across events the response
// that completes last replaces the team list.
package match

import (
	"context"
	"sync"

	"github.com/okian/evently/internal/adapters/notify"
	"github.com/okian/evently/internal/app/nav"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/logger"
	"github.com/okian/evently/pkg/metrics"
)

// FailureMessage is published when a match request fails.
const FailureMessage = "Error matching users"

// RequestState is the per-event request state.
type RequestState string

// Request states.
const (
	StateIdle    RequestState = "idle"
	StateLoading RequestState = "loading"
	StateDone    RequestState = "done"
)

// Outcome tells what FindTeams did.
type Outcome string

// FindTeams outcomes.
const (
	OutcomeRedirected Outcome = "redirected"
	OutcomeBusy       Outcome = "busy"
	OutcomeApplied    Outcome = "applied"
	OutcomeFailed     Outcome = "failed"
	OutcomeStale      Outcome = "stale"
	OutcomeDiscarded  Outcome = "discarded"
)

// Matcher issues match requests.
type Matcher interface {
	MatchUsers(ctx context.Context, eventID int64) (model.MatchResult, error)
}

// SessionGuard reports whether a session is present.
type SessionGuard interface {
	LoggedIn() bool
}

// Catalog supplies the selectable events.
type Catalog interface {
	Load(ctx context.Context) error
	Events() []model.Event
}

// Notifier receives user-facing notifications.
type Notifier interface {
	Publish(ctx context.Context, level notify.Level, message string) bool
}

type discardNotifier struct{}

func (discardNotifier) Publish(context.Context, notify.Level, string) bool { return false }

// Orchestrator holds the match view state.
type Orchestrator struct {
	matcher   Matcher
	session   SessionGuard
	catalog   Catalog
	navigator nav.Navigator
	notifier  Notifier
	log       logger.Logger
	supersede bool

	mu        sync.Mutex
	states    map[int64]RequestState
	tokens    map[int64]uint64
	teams     []model.Team
	message   string
	lastEvent int64
	closed    bool
}

// New creates an orchestrator in the awaiting-selection state.
func New(matcher Matcher, session SessionGuard, catalog Catalog, navigator nav.Navigator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		matcher:   matcher,
		session:   session,
		catalog:   catalog,
		navigator: navigator,
		notifier:  discardNotifier{},
		log:       logger.Nop(),
		states:    make(map[int64]RequestState),
		tokens:    make(map[int64]uint64),
		teams:     []model.Team{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load fetches the selectable events.
func (o *Orchestrator) Load(ctx context.Context) error {
	return o.catalog.Load(ctx)
}

// Events returns the selectable events.
func (o *Orchestrator) Events() []model.Event {
	return o.catalog.Events()
}

// FindTeams runs one match interaction for eventID. The returned error is
// the backend error when the outcome is OutcomeFailed, ErrAlreadyMatching
// for OutcomeBusy and ErrClosed when called after Close.
func (o *Orchestrator) FindTeams(ctx context.Context, eventID int64) (Outcome, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return OutcomeDiscarded, ErrClosed
	}
	if !o.session.LoggedIn() {
		o.mu.Unlock()
		o.log.Info(ctx, "match requires login, redirecting", logger.Int64("event_id", eventID))
		o.navigator.Navigate(ctx, nav.RouteLogin)
		metrics.RecordMatchOutcome(string(OutcomeRedirected))
		return OutcomeRedirected, nil
	}
	if o.states[eventID] == StateLoading && !o.supersede {
		o.mu.Unlock()
		metrics.RecordMatchOutcome(string(OutcomeBusy))
		return OutcomeBusy, ErrAlreadyMatching
	}
	o.tokens[eventID]++
	token := o.tokens[eventID]
	o.states[eventID] = StateLoading
	o.mu.Unlock()

	res, err := o.matcher.MatchUsers(ctx, eventID)

	outcome := o.settle(eventID, token, res, err)
	metrics.RecordMatchOutcome(string(outcome))

	switch outcome {
	case OutcomeFailed:
		o.log.Error(ctx, "match request failed", logger.Int64("event_id", eventID), logger.Error(err))
		o.notifier.Publish(ctx, notify.LevelError, FailureMessage)
		return outcome, err
	case OutcomeApplied:
		metrics.RecordTeamsReceived(len(res.Teams))
		o.log.Info(ctx, "teams applied", logger.Int64("event_id", eventID), logger.Int("teams", len(res.Teams)))
	default:
		o.log.Debug(ctx, "match response dropped",
			logger.Int64("event_id", eventID),
			logger.String("outcome", string(outcome)),
			logger.Any("token", token))
	}
	return outcome, nil
}

// settle applies a response under the lock and reports what happened to it.
func (o *Orchestrator) settle(eventID int64, token uint64, res model.MatchResult, err error) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return OutcomeDiscarded
	}
	if o.tokens[eventID] != token {
		return OutcomeStale
	}
	if err != nil {
		o.states[eventID] = StateIdle
		return OutcomeFailed
	}
	o.states[eventID] = StateDone
	o.teams = model.CloneTeams(res.Normalize().Teams)
	o.message = res.Message
	o.lastEvent = eventID
	return OutcomeApplied
}

// Teams returns a copy of the displayed team list.
func (o *Orchestrator) Teams() []model.Team {
	o.mu.Lock()
	defer o.mu.Unlock()
	return model.CloneTeams(o.teams)
}

// Message returns the backend message of the last applied response, such as
// the notice that too few participants are registered.
func (o *Orchestrator) Message() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.message
}

// LastEvent returns the event whose teams are displayed, or 0.
func (o *Orchestrator) LastEvent() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastEvent
}

// State returns the request state of eventID.
func (o *Orchestrator) State(eventID int64) RequestState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[eventID]; ok {
		return s
	}
	return StateIdle
}

// Loading reports whether eventID has a request in flight.
func (o *Orchestrator) Loading(eventID int64) bool {
	return o.State(eventID) == StateLoading
}

// Close releases the orchestrator. Responses arriving afterwards are
// discarded.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}
