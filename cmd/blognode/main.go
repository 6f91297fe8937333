// Command blognode is the BlogNode command line client.
//
// Without BLOGNODE_SERVER it runs against a built-in mock identity, which accepts
// any email and password. Accounts registered with the mock are kept in the
// session store, so a later login finds them; any other email signs in as the
// demo user. Posts written in mock mode last only for the one command.
//
//	blognode login --email you@example.com
//	BLOGNODE_SERVER=http://localhost:8080 blognode register
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/blognode/internal/cli"
	"github.com/sakif/blognode/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "blognode:", err)
		return 1
	}

	cfg, err := config.ClientFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "blognode:", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.New(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		return 1
	}
	defer app.Close()

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		fmt.Fprintln(os.Stderr, "blognode:", err)
		return 1
	}
	return 0
}
