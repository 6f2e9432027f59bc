// Package service wires the client components together and implements the
// page-level flows: login, logout, profile, event creation, registration,
// demo seeding, user listing and team matching.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/evently/internal/adapters/notify"
	"github.com/okian/evently/internal/adapters/storage"
	"github.com/okian/evently/internal/app/catalog"
	"github.com/okian/evently/internal/app/match"
	"github.com/okian/evently/internal/app/nav"
	"github.com/okian/evently/internal/app/session"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/pkg/logger"
)

// User-facing notification texts.
const (
	MsgLoginOK          = "Login successful"
	MsgLoginFailed      = "Invalid credentials"
	MsgEventCreated     = "Event created: %d"
	MsgEventFailed      = "Error creating event, check logs"
	MsgRegistered       = "Registered: %d"
	MsgRegisterFailed   = "Error registering, check logs"
	MsgSeedFailed       = "Error seeding demo data"
	MsgLoggedOut        = "Logged out"
	defaultNotifyBuffer = 64
)

// Sentinel errors for the service.
var (
	ErrNoBackend  = errors.New("service has no backend")
	ErrNotStarted = errors.New("service not started")
)

// Backend is every backend operation the flows use.
type Backend interface {
	CreateEvent(ctx context.Context, in model.EventInput) (model.CreatedEvent, error)
	RegisterUser(ctx context.Context, in model.Registration) (model.RegisteredUser, error)
	FetchEvents(ctx context.Context) ([]model.Event, error)
	FetchUsers(ctx context.Context) ([]model.User, error)
	MatchUsers(ctx context.Context, eventID int64) (model.MatchResult, error)
	SeedDemo(ctx context.Context) (model.SeedResult, error)
	Login(ctx context.Context, creds model.Credentials) (model.Session, error)
}

// Service owns the client components for one process.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	backend   Backend
	kv        storage.KV
	navigator nav.Navigator

	// Components built by Start
	session   *session.Context
	catalog   *catalog.Catalog
	matcher   *match.Orchestrator
	notes     *notify.Queue
	ownsNotes bool

	// Configuration
	notifyBuffer int
	follow       bool
	supersede    bool

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBackend sets the backend client.
func WithBackend(b Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithStorage sets the storage holding the session record. Defaults to an
// in-memory store.
func WithStorage(kv storage.KV) Option {
	return func(s *Service) {
		if kv != nil {
			s.kv = kv
		}
	}
}

// WithNavigator sets the navigation side effect.
func WithNavigator(n nav.Navigator) Option {
	return func(s *Service) {
		if n != nil {
			s.navigator = n
		}
	}
}

// WithNotifications sets the notification queue. The caller keeps ownership.
func WithNotifications(q *notify.Queue) Option {
	return func(s *Service) {
		if q != nil {
			s.notes = q
		}
	}
}

// WithNotifyBuffer sets the capacity of the queue created when none is given.
func WithNotifyBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notifyBuffer = n
		}
	}
}

// WithFollow makes Start subscribe to session changes made by other
// processes. Without it the session is read once.
func WithFollow(enabled bool) Option {
	return func(s *Service) {
		s.follow = enabled
	}
}

// WithSupersedingMatches lets a repeated match for a loading event replace
// the one in flight.
func WithSupersedingMatches(enabled bool) Option {
	return func(s *Service) {
		s.supersede = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Components are built by Start.
func New(opts ...Option) *Service {
	s := &Service{
		navigator:    &nav.Recorder{},
		notifyBuffer: defaultNotifyBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and loads the stored session.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.backend == nil {
		return ErrNoBackend
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.kv == nil {
		s.kv = storage.NewMemory()
	}
	if s.notes == nil {
		s.notes = notify.NewQueue(notify.WithCapacity(s.notifyBuffer))
		s.ownsNotes = true
	}

	s.session = session.NewContext(session.NewStore(s.kv, s.logger.Named("session")), s.logger.Named("session"))
	var err error
	if s.follow {
		err = s.session.Start(ctx)
	} else {
		err = s.session.Load(ctx)
	}
	if err != nil {
		_ = s.session.Close()
		return fmt.Errorf("load session: %w", err)
	}

	s.catalog = catalog.New(s.backend, s.logger.Named("catalog"))
	s.matcher = match.New(s.backend, s.session, s.catalog, s.navigator,
		match.WithNotifier(s.notes),
		match.WithLogger(s.logger.Named("match")),
		match.WithSupersede(s.supersede),
	)

	s.started = true
	_, loggedIn := s.session.Current()
	s.logger.Info(ctx, "client service started",
		logger.Bool("logged_in", loggedIn),
		logger.Bool("follow", s.follow),
		logger.Int("notify_buffer", s.notifyBuffer))
	return nil
}

// Stop releases the components. The storage is closed as well.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	_ = s.matcher.Close()
	_ = s.session.Close()
	if s.ownsNotes {
		_ = s.notes.Close()
	}
	if err := s.kv.Close(); err != nil {
		s.logger.Warn(context.Background(), "failed to close storage", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "client service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Session returns the session context.
func (s *Service) Session() *session.Context { return s.session }

// Catalog returns the event catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Matcher returns the match orchestrator.
func (s *Service) Matcher() *match.Orchestrator { return s.matcher }

// Notifications returns the notification queue.
func (s *Service) Notifications() *notify.Queue { return s.notes }

// Login exchanges credentials for a session, stores it and moves to the
// profile.
func (s *Service) Login(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if err := s.ready(); err != nil {
		return model.Session{}, err
	}
	sess, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.Error(ctx, "login failed", logger.String("username", creds.Username), logger.Error(err))
		s.notes.Publish(ctx, notify.LevelError, MsgLoginFailed)
		return model.Session{}, err
	}
	if err := s.session.SetSession(ctx, sess); err != nil {
		s.logger.Error(ctx, "storing session failed", logger.Error(err))
		return model.Session{}, err
	}
	s.notes.Publish(ctx, notify.LevelSuccess, MsgLoginOK)
	s.navigator.Navigate(ctx, nav.RouteProfile)
	return sess, nil
}

// Logout clears the session and moves home. Match requests in flight are
// not cancelled.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.session.Logout(ctx); err != nil {
		s.logger.Error(ctx, "logout failed", logger.Error(err))
		return err
	}
	s.notes.Publish(ctx, notify.LevelInfo, MsgLoggedOut)
	s.navigator.Navigate(ctx, nav.RouteHome)
	return nil
}

// Profile returns the current session.
func (s *Service) Profile() (model.Session, bool) {
	if s.ready() != nil {
		return model.Session{}, false
	}
	return s.session.Current()
}

// CreateEvent submits the create-event form.
func (s *Service) CreateEvent(ctx context.Context, in model.EventInput) (model.CreatedEvent, error) {
	if err := s.ready(); err != nil {
		return model.CreatedEvent{}, err
	}
	out, err := s.backend.CreateEvent(ctx, in)
	if err != nil {
		s.logger.Error(ctx, "create event failed", logger.String("name", in.Name), logger.Error(err))
		s.notes.Publish(ctx, notify.LevelError, MsgEventFailed)
		return model.CreatedEvent{}, err
	}
	s.notes.Publish(ctx, notify.LevelSuccess, fmt.Sprintf(MsgEventCreated, out.EventID))
	return out, nil
}

// Register submits the registration form.
func (s *Service) Register(ctx context.Context, in model.Registration) (model.RegisteredUser, error) {
	if err := s.ready(); err != nil {
		return model.RegisteredUser{}, err
	}
	out, err := s.backend.RegisterUser(ctx, in)
	if err != nil {
		s.logger.Error(ctx, "registration failed", logger.String("email", in.Email), logger.Error(err))
		s.notes.Publish(ctx, notify.LevelError, MsgRegisterFailed)
		return model.RegisteredUser{}, err
	}
	s.notes.Publish(ctx, notify.LevelSuccess, fmt.Sprintf(MsgRegistered, out.UserID))
	return out, nil
}

// Seed asks the backend for demo data.
func (s *Service) Seed(ctx context.Context) (model.SeedResult, error) {
	if err := s.ready(); err != nil {
		return model.SeedResult{}, err
	}
	out, err := s.backend.SeedDemo(ctx)
	if err != nil {
		s.logger.Error(ctx, "seed demo failed", logger.Error(err))
		s.notes.Publish(ctx, notify.LevelError, MsgSeedFailed)
		return model.SeedResult{}, err
	}
	s.notes.Publish(ctx, notify.LevelSuccess, out.Message)
	return out, nil
}

// Users lists registered participants.
func (s *Service) Users(ctx context.Context) ([]model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	users, err := s.backend.FetchUsers(ctx)
	if err != nil {
		s.logger.Error(ctx, "error fetching users", logger.Error(err))
		return nil, err
	}
	return users, nil
}

// Events loads the catalog afresh and returns it.
func (s *Service) Events(ctx context.Context) ([]model.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.catalog.Load(ctx); err != nil {
		return nil, err
	}
	return s.catalog.Events(), nil
}

// FindTeams runs the match interaction for one event.
func (s *Service) FindTeams(ctx context.Context, eventID int64) (match.Outcome, error) {
	if err := s.ready(); err != nil {
		return match.OutcomeDiscarded, err
	}
	return s.matcher.FindTeams(ctx, eventID)
}

// GetStats returns client statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"follow":       s.follow,
		"notifyBuffer": s.notifyBuffer,
	}
	if s.started {
		sess, loggedIn := s.session.Current()
		stats["loggedIn"] = loggedIn
		if loggedIn {
			stats["user"] = sess.Name
		}
		stats["events"] = len(s.catalog.Events())
		stats["teams"] = len(s.matcher.Teams())
		stats["notificationBacklog"] = s.notes.Len()
	}
	return stats
}
