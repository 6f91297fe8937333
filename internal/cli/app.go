// Package cli is the blognode command line: one process per command, with the
// session carried between runs by the configured store.
//
//	blognode register | login | logout | whoami
//	blognode profile --bio "hi"
//	blognode post --title "Hello" --content-file post.md [--draft]
//	blognode feed --tab trending
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sakif/blognode/internal/client"
	"github.com/sakif/blognode/internal/config"
	"github.com/sakif/blognode/internal/identity"
	"github.com/sakif/blognode/internal/session"
	"github.com/sakif/blognode/internal/storage"
	boltstore "github.com/sakif/blognode/internal/storage/bolt"
	sqlitestore "github.com/sakif/blognode/internal/storage/sqlite"
	"github.com/sakif/blognode/internal/views"
)

// ErrUsage is returned for an unknown command or bad flags. Usage has already
// been printed.
var ErrUsage = errors.New("usage")

// postBackend is what the post and feed commands talk to.
type postBackend interface {
	views.Publisher
	views.FeedSource
}

// App wires the session manager and views to a store and an identity backend.
type App struct {
	cfg    config.Client
	logger *slog.Logger

	stdin io.Reader
	in    *bufio.Reader
	out   io.Writer

	store   storage.Store
	session *session.Manager
	posts   postBackend
	remote  *client.Client // nil when running against the mock identity
}

// New opens the configured store and restores any saved session. Close the App
// when done.
func New(ctx context.Context, cfg config.Client, logger *slog.Logger, stdin io.Reader, stdout io.Writer) (*App, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	a, err := newApp(ctx, cfg, store, logger, stdin, stdout)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func newApp(ctx context.Context, cfg config.Client, store storage.Store, logger *slog.Logger, stdin io.Reader, stdout io.Writer) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		stdin:  stdin,
		in:     newReader(stdin),
		out:    stdout,
		store:  store,
	}

	var ids session.IdentityService
	var mockPosts *identity.MockPosts
	if cfg.ServerURL != "" {
		a.remote = client.New(cfg.ServerURL, store, cfg.Timeout, logger)
		ids = a.remote
		a.posts = a.remote
	} else {
		logger.Debug("no server configured, using mock identity")
		mock, err := identity.NewStoredMock(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("cli: loading mock accounts: %w", err)
		}
		ids = mock
		mockPosts = identity.NewMockPosts()
		a.posts = mockPosts
	}

	a.session = session.New(store, ids, logger)
	if mockPosts != nil {
		mockPosts.SetAuthor(a.session.CurrentUser)
	}
	if err := a.session.Restore(ctx); err != nil {
		return nil, fmt.Errorf("cli: restoring session: %w", err)
	}
	return a, nil
}

func openStore(cfg config.Client) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewMemory(), nil
	case config.StoreBolt, config.StoreSQLite:
	default:
		return nil, fmt.Errorf("cli: unknown store %q", cfg.Store)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("cli: creating data dir: %w", err)
	}
	if cfg.Store == config.StoreBolt {
		return boltstore.New(cfg.StorePath())
	}
	return sqlitestore.New(cfg.StorePath())
}

func (a *App) Close() error {
	return a.store.Close()
}

// commands maps each command name to its handler and one line of help.
var commands = []struct {
	name string
	help string
	run  func(a *App, ctx context.Context, args []string) error
}{
	{"register", "create an account and log in", (*App).register},
	{"login", "log in with email and password", (*App).login},
	{"logout", "forget the saved session", (*App).logout},
	{"whoami", "show the logged-in profile", (*App).whoami},
	{"profile", "update profile fields", (*App).profile},
	{"post", "save a draft or publish a post", (*App).post},
	{"feed", "list the community feed", (*App).feed},
}

// Run executes one command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	for _, c := range commands {
		if c.name == args[0] {
			a.logger.Debug("running command", slog.String("command", c.name))
			return c.run(a, ctx, args[1:])
		}
	}

	fmt.Fprintf(a.out, "unknown command %q\n\n", args[0])
	a.usage()
	return ErrUsage
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: blognode <command> [flags]")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(a.out, "  %-9s %s\n", c.name, c.help)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Run 'blognode <command> -h' for the flags of a command.")
}
