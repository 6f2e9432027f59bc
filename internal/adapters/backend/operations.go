package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/evently/internal/domain/model"
)

// Operation names used in errors, logs and metrics.
const (
	OpCreateEvent  = "create_event"
	OpRegisterUser = "register"
	OpFetchEvents  = "events"
	OpFetchUsers   = "users"
	OpMatchUsers   = "match_users"
	OpSeedDemo     = "seed_demo"
	OpLogin        = "login"
	OpPing         = "ping"
)

// emptyBody is sent where the backend expects a JSON body but reads nothing.
var emptyBody = struct{}{}

func validate(op string, v any) error {
	if err := model.Validate(v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRequest, op, err)
	}
	return nil
}

// CreateEvent posts a new event.
func (c *Client) CreateEvent(ctx context.Context, in model.EventInput) (model.CreatedEvent, error) {
	if err := validate(OpCreateEvent, in); err != nil {
		return model.CreatedEvent{}, err
	}
	var out model.CreatedEvent
	if err := c.do(ctx, OpCreateEvent, http.MethodPost, "/create_event", nil, in, &out); err != nil {
		return model.CreatedEvent{}, err
	}
	return out, nil
}

// RegisterUser registers a participant, optionally with account credentials.
func (c *Client) RegisterUser(ctx context.Context, in model.Registration) (model.RegisteredUser, error) {
	if err := validate(OpRegisterUser, in); err != nil {
		return model.RegisteredUser{}, err
	}
	var out model.RegisteredUser
	if err := c.do(ctx, OpRegisterUser, http.MethodPost, "/register", nil, in, &out); err != nil {
		return model.RegisteredUser{}, err
	}
	return out, nil
}

// FetchEvents returns the full event collection in backend order.
func (c *Client) FetchEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	if err := c.do(ctx, OpFetchEvents, http.MethodGet, "/events", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Event{}
	}
	return out, nil
}

// FetchUsers returns every registered participant.
func (c *Client) FetchUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.do(ctx, OpFetchUsers, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.User{}
	}
	return out, nil
}

// MatchUsers asks the backend to partition participants into teams for an
// event. The result's team list is never nil.
func (c *Client) MatchUsers(ctx context.Context, eventID int64) (model.MatchResult, error) {
	q := url.Values{"event_id": []string{strconv.FormatInt(eventID, 10)}}
	var out model.MatchResult
	if err := c.do(ctx, OpMatchUsers, http.MethodPost, "/match_users", q, emptyBody, &out); err != nil {
		return model.MatchResult{}, err
	}
	return out.Normalize(), nil
}

// SeedDemo asks the backend to insert its demo events and users.
func (c *Client) SeedDemo(ctx context.Context) (model.SeedResult, error) {
	var out model.SeedResult
	if err := c.do(ctx, OpSeedDemo, http.MethodPost, "/seed_demo", nil, emptyBody, &out); err != nil {
		return model.SeedResult{}, err
	}
	return out, nil
}

// Login exchanges credentials for the session object the backend issues.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if err := validate(OpLogin, creds); err != nil {
		return model.Session{}, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, OpLogin, http.MethodPost, "/login", nil, creds, &raw); err != nil {
		return model.Session{}, err
	}
	s, err := model.DecodeSession(raw)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %s: %w", ErrDecode, OpLogin, err)
	}
	return s, nil
}

// Ping checks that the backend answers on its root path.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, OpPing, http.MethodGet, "/", nil, nil, nil)
}
