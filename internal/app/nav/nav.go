// Package nav names the client's routes and the capability to move between
// them.
package nav

import (
	"context"
	"sync"
)

// Route is a client-side location.
type Route string

// Routes of the client.
const (
	RouteHome      Route = "/"
	RouteEvents    Route = "/events"
	RouteDashboard Route = "/dashboard"
	RouteCreate    Route = "/create"
	RouteMatch     Route = "/match"
	RouteRegister  Route = "/register"
	RouteLogin     Route = "/login"
	RouteProfile   Route = "/profile"
)

// Routes lists every known route.
func Routes() []Route {
	return []Route{RouteHome, RouteEvents, RouteDashboard, RouteCreate, RouteMatch, RouteRegister, RouteLogin, RouteProfile}
}

// Navigator performs a navigation side effect.
type Navigator interface {
	Navigate(ctx context.Context, to Route)
}

// Func adapts a function to Navigator.
type Func func(ctx context.Context, to Route)

// Navigate implements Navigator.
func (f Func) Navigate(ctx context.Context, to Route) { f(ctx, to) }

// Recorder is a Navigator that remembers every navigation.
type Recorder struct {
	mu      sync.Mutex
	history []Route
}

// Navigate implements Navigator.
func (r *Recorder) Navigate(_ context.Context, to Route) {
	r.mu.Lock()
	r.history = append(r.history, to)
	r.mu.Unlock()
}

// History returns the navigations in order.
func (r *Recorder) History() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.history...)
}

// Current returns the last route navigated to, or RouteHome.
func (r *Recorder) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return RouteHome
	}
	return r.history[len(r.history)-1]
}
