// Package cli implements the evently command line: one command per page of
// the client, rendered to a writer.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/evently/internal/adapters/backend"
	"github.com/okian/evently/internal/adapters/notify"
	"github.com/okian/evently/internal/adapters/storage"
	service "github.com/okian/evently/internal/app"
	"github.com/okian/evently/internal/app/nav"
	"github.com/okian/evently/internal/config"
	"github.com/okian/evently/pkg/logger"
)

// App is one invocation of the client: storage, backend and service.
type App struct {
	cfg    *config.Config
	out    io.Writer
	log    logger.Logger
	kv     storage.KV
	client *backend.Client
	notes  *notify.Queue
	svc    *service.Service
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

type openOptions struct {
	kv     storage.KV
	follow bool
	log    logger.Logger
}

// WithKV uses kv instead of the storage selected by the configuration.
func WithKV(kv storage.KV) OpenOption {
	return func(o *openOptions) { o.kv = kv }
}

// WithFollow keeps the session in sync with other processes.
func WithFollow(enabled bool) OpenOption {
	return func(o *openOptions) { o.follow = enabled }
}

// WithLogger sets the logger used by every component.
func WithLogger(l logger.Logger) OpenOption {
	return func(o *openOptions) { o.log = l }
}

// Open builds and starts the client components from cfg.
func Open(ctx context.Context, cfg *config.Config, out io.Writer, opts ...OpenOption) (*App, error) {
	o := &openOptions{log: logger.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	kv := o.kv
	if kv == nil {
		var err error
		if kv, err = OpenStorage(ctx, cfg, o.log); err != nil {
			return nil, err
		}
	}

	client, err := backend.New(cfg.BaseURL,
		backend.WithTimeout(time.Duration(cfg.RequestTimeoutMS)*time.Millisecond),
		backend.WithLogger(o.log.Named("backend")),
	)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		out:    out,
		log:    o.log,
		kv:     kv,
		client: client,
		notes:  notify.NewQueue(notify.WithCapacity(cfg.NotifyBuffer)),
	}
	a.svc = service.New(
		service.WithBackend(client),
		service.WithStorage(kv),
		service.WithNavigator(nav.Func(a.navigate)),
		service.WithNotifications(a.notes),
		service.WithFollow(o.follow),
		service.WithLogger(o.log),
	)
	if err := a.svc.Start(ctx); err != nil {
		_ = kv.Close()
		_ = a.notes.Close()
		return nil, err
	}
	return a, nil
}

// OpenStorage opens the session storage named by cfg.SessionBackend.
func OpenStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.KV, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return storage.NewMemory(), nil
	case config.SessionBackendFile:
		f, err := storage.NewFile(cfg.SessionDir, storage.WithFileLogger(log.Named("storage")))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return f, nil
	case config.SessionBackendRedis:
		client, err := storage.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return storage.NewRedis(client, storage.WithRedisLogger(log.Named("storage"))), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStorage, cfg.SessionBackend)
	}
}

// Service returns the running client service.
func (a *App) Service() *service.Service { return a.svc }

// Close stops the service, which also closes the storage.
func (a *App) Close() {
	a.svc.Stop()
	_ = a.notes.Close()
}

func (a *App) navigate(_ context.Context, to nav.Route) {
	fmt.Fprintf(a.out, "-> %s\n", to)
}

// flush prints and clears pending notifications.
func (a *App) flush() error {
	return RenderNotifications(a.out, a.notes.Drain())
}

// Run parses args and executes one command. Usage errors are reported before
// any storage or backend is touched.
func Run(ctx context.Context, cfg *config.Config, args []string, out io.Writer, opts ...OpenOption) error {
	if len(args) == 0 {
		ShowHelp(out)
		return nil
	}
	name := strings.TrimSpace(args[0])
	if name == "help" || name == "-h" || name == "--help" {
		ShowHelp(out)
		return nil
	}
	cmd, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	act, err := cmd.parse(args[1:], cfg)
	if err != nil {
		return err
	}

	if cmd.follow {
		opts = append(opts, WithFollow(true))
	}
	a, err := Open(ctx, cfg, out, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	runErr := act(ctx, a)
	if err := a.flush(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
