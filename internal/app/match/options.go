package match

import "github.com/okian/evently/pkg/logger"

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSupersede lets FindTeams re-issue a request for an event that is still
// loading. The earlier response is then dropped as stale.
func WithSupersede(enabled bool) Option {
	return func(o *Orchestrator) {
		o.supersede = enabled
	}
}

// WithNotifier sets where failure notifications are published.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}
