// Package main is the entry point for the dialdesk CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dialdesk/internal/auth"
	"dialdesk/internal/backend/rest"
	"dialdesk/internal/cli"
	"dialdesk/internal/commands"
	"dialdesk/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService, cli.WithInput(os.Stdin))

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newService builds the REST backend. DIALDESK_TOKEN takes precedence over
// the stored token. A 401 drops the stored token only when it was the one sent.
func newService(ctx context.Context, env *commands.Env) (service.Service, error) {
	opts := []rest.Option{rest.WithLogger(env.Log)}

	token := env.Config.Token
	if token == "" {
		if env.Session == nil {
			return nil, auth.ErrNotLoggedIn
		}
		var err error
		if token, err = env.Session.Token(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, rest.WithUnauthorizedHook(func() {
			if err := env.Session.Invalidate(context.WithoutCancel(ctx)); err != nil {
				env.Log.Debug("drop stored token", "err", err)
			}
		}))
	}

	client, err := rest.New(ctx, env.Config, token, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}
