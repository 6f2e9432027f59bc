package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/okian/evently/internal/adapters/http/api"
	"github.com/okian/evently/internal/adapters/notify"
	"github.com/okian/evently/internal/app/match"
	"github.com/okian/evently/internal/app/session"
	"github.com/okian/evently/internal/config"
	"github.com/okian/evently/internal/domain/dedupe"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/internal/importer"
	"github.com/okian/evently/pkg/logger"
)

// action runs a parsed command against an open App.
type action func(ctx context.Context, a *App) error

type command struct {
	name    string
	summary string
	follow  bool
	parse   func(args []string, cfg *config.Config) (action, error)
}

var commands = map[string]command{}

func register(c command) { commands[c.name] = c }

func lookup(name string) (command, bool) {
	c, ok := commands[name]
	return c, ok
}

// Commands returns the command names in order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected argument %q", ErrUsage, fs.Name(), fs.Arg(0))
	}
	return nil
}

func noFlags(name string) func([]string, *config.Config) (action, error) {
	return func(args []string, _ *config.Config) (action, error) {
		return nil, parseFlags(newFlagSet(name), args)
	}
}

func init() { //nolint:gochecknoinits // command table
	register(command{name: "events", summary: "List all events", parse: parseEvents})
	register(command{name: "users", summary: "List registered participants", parse: parseUsers})
	register(command{name: "create-event", summary: "Create an event", parse: parseCreateEvent})
	register(command{name: "register", summary: "Register as a participant", parse: parseRegister})
	register(command{name: "login", summary: "Log in and store the session", parse: parseLogin})
	register(command{name: "logout", summary: "Clear the stored session", parse: parseLogout})
	register(command{name: "whoami", summary: "Show the logged-in profile", parse: parseWhoami})
	register(command{name: "match", summary: "Find teams for an event", parse: parseMatch})
	register(command{name: "seed", summary: "Load demo data into the backend", parse: parseSeed})
	register(command{name: "import", summary: "Bulk-submit events and users from a YAML or JSON file", parse: parseImport})
	register(command{name: "watch", summary: "Follow session changes and serve local status", follow: true, parse: parseWatch})
}

func parseEvents(args []string, cfg *config.Config) (action, error) {
	if _, err := noFlags("events")(args, cfg); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *App) error {
		events, err := a.svc.Events(ctx)
		if err != nil {
			return err
		}
		return RenderEvents(a.out, events)
	}, nil
}

func parseUsers(args []string, cfg *config.Config) (action, error) {
	if _, err := noFlags("users")(args, cfg); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *App) error {
		users, err := a.svc.Users(ctx)
		if err != nil {
			return err
		}
		return RenderUsers(a.out, users)
	}, nil
}

func parseCreateEvent(args []string, _ *config.Config) (action, error) {
	fs := newFlagSet("create-event")
	var in model.EventInput
	fs.StringVar(&in.Name, "name", "", "event name")
	fs.StringVar(&in.Date, "date", "", "event date")
	fs.StringVar(&in.Location, "location", "", "event location")
	fs.StringVar(&in.Description, "description", "", "event description")
	fs.StringVar(&in.RequiredSkills, "skills", "", "comma-separated required skills")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := model.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: create-event: %w", ErrUsage, err)
	}
	return func(ctx context.Context, a *App) error {
		_, err := a.svc.CreateEvent(ctx, in)
		return err
	}, nil
}

func parseRegister(args []string, _ *config.Config) (action, error) {
	fs := newFlagSet("register")
	var in model.Registration
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.Skills, "skills", "", "comma-separated skills")
	fs.StringVar(&in.Experience, "experience", "", "experience level")
	fs.StringVar(&in.GitHub, "github", "", "GitHub profile URL")
	fs.StringVar(&in.Username, "username", "", "account username")
	fs.StringVar(&in.Password, "password", "", "account password")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := model.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: register: %w", ErrUsage, err)
	}
	return func(ctx context.Context, a *App) error {
		_, err := a.svc.Register(ctx, in)
		return err
	}, nil
}

func parseLogin(args []string, _ *config.Config) (action, error) {
	fs := newFlagSet("login")
	var creds model.Credentials
	fs.StringVar(&creds.Username, "username", "", "account username")
	fs.StringVar(&creds.Password, "password", "", "account password")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := model.Validate(creds); err != nil {
		return nil, fmt.Errorf("%w: login: %w", ErrUsage, err)
	}
	return func(ctx context.Context, a *App) error {
		sess, err := a.svc.Login(ctx, creds)
		if err != nil {
			return err
		}
		return RenderProfile(a.out, sess, true)
	}, nil
}

func parseLogout(args []string, cfg *config.Config) (action, error) {
	if _, err := noFlags("logout")(args, cfg); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *App) error {
		return a.svc.Logout(ctx)
	}, nil
}

func parseWhoami(args []string, cfg *config.Config) (action, error) {
	if _, err := noFlags("whoami")(args, cfg); err != nil {
		return nil, err
	}
	return func(_ context.Context, a *App) error {
		sess, ok := a.svc.Profile()
		return RenderProfile(a.out, sess, ok)
	}, nil
}

// parseMatch lists the events to choose from when no event is given, like
// the match page does before a selection.
func parseMatch(args []string, _ *config.Config) (action, error) {
	fs := newFlagSet("match")
	eventID := fs.Int64("event", 0, "id of the event to match")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if *eventID < 0 {
		return nil, fmt.Errorf("%w: match: negative event id", ErrUsage)
	}
	return func(ctx context.Context, a *App) error {
		m := a.svc.Matcher()
		if *eventID == 0 {
			if err := m.Load(ctx); err != nil {
				return err
			}
			if err := RenderEvents(a.out, m.Events()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(a.out, "pass -event <id> to find teams")
			return err
		}

		// The loading line only shows once the session guard will let the
		// request through.
		if a.svc.Session().LoggedIn() {
			fmt.Fprintln(a.out, TextMatching)
		}
		outcome, err := a.svc.FindTeams(ctx, *eventID)
		switch outcome {
		case match.OutcomeRedirected:
			return ErrLoginRequired
		case match.OutcomeApplied:
			return RenderTeams(a.out, m.Teams(), m.Message())
		default:
			return err
		}
	}, nil
}

func parseSeed(args []string, cfg *config.Config) (action, error) {
	if _, err := noFlags("seed")(args, cfg); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *App) error {
		res, err := a.svc.Seed(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "%s (events: %d, users: %d)\n", res.Message, res.Events, res.Users)
		return err
	}, nil
}

func parseImport(args []string, cfg *config.Config) (action, error) {
	fs := newFlagSet("import")
	path := fs.String("file", "", "YAML or JSON file with events and users")
	workers := fs.Int("workers", cfg.ImportWorkers, "concurrent submissions")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(*path) == "" {
		return nil, fmt.Errorf("%w: import: -file is required", ErrUsage)
	}
	batch, err := importer.LoadFile(*path)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *App) error {
		imp := importer.New(a.client,
			importer.WithWorkers(*workers),
			importer.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))),
			importer.WithLogger(a.log.Named("importer")),
		)
		stats, err := imp.Run(ctx, batch)
		if rerr := RenderImportStats(a.out, stats); rerr != nil {
			return rerr
		}
		return err
	}, nil
}

func parseWatch(args []string, cfg *config.Config) (action, error) {
	fs := newFlagSet("watch")
	addr := fs.String("serve", cfg.MetricsAddr, "address of the local status server; empty disables it")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *App) error {
		return a.watch(ctx, *addr)
	}, nil
}

// watch prints session changes and notifications until ctx is done.
func (a *App) watch(ctx context.Context, addr string) error {
	updates, unsubscribe := a.svc.Session().Subscribe()
	defer unsubscribe()

	if err := a.client.Ping(ctx); err != nil {
		a.log.Warn(ctx, "backend unreachable", logger.String("base_url", a.client.BaseURL()), logger.Error(err))
	}
	sess, ok := a.svc.Profile()
	if err := RenderProfile(a.out, sess, ok); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	if addr != "" {
		srv := api.NewServer(a.svc,
			api.WithTeams(a.svc.Matcher()),
			api.WithLogger(a.log.Named("api")),
		)
		go func() { serveErr <- srv.Serve(ctx, addr) }()
	}

	return follow(ctx, a.out, updates, a.notes.Notifications(), serveErr)
}

// follow renders session updates and notifications until ctx is done, the
// update stream ends or the status server fails. A closed notification
// channel is no longer read.
func follow(ctx context.Context, out io.Writer, updates <-chan session.Update, notes <-chan notify.Notification, serveErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErr:
			return err
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := RenderUpdate(out, u); err != nil {
				return err
			}
		case n, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			if err := RenderNotifications(out, []notify.Notification{n}); err != nil {
				return err
			}
		}
	}
}
