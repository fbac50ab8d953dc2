// Package cli parses the command line and dispatches to registered commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"dialdesk/internal/auth"
	"dialdesk/internal/commands"
	"dialdesk/internal/config"
	"dialdesk/internal/exitcode"
	"dialdesk/internal/localstate"
	"dialdesk/internal/logger"
	"dialdesk/internal/poller"
	"dialdesk/internal/service"
)

// ServiceFactory creates a Service for an environment whose config, state
// and session are already set. Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, env *commands.Env) (service.Service, error)

// StateOpener opens the local state store. The returned func releases it.
type StateOpener func(ctx context.Context, cfg *config.Config) (localstate.Store, func() error, error)

// OpenSQLiteState opens state.db in the config directory.
func OpenSQLiteState(ctx context.Context, cfg *config.Config) (localstate.Store, func() error, error) {
	store, err := localstate.OpenSQLite(ctx, cfg.StatePath())
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry  *commands.Registry
	factory   ServiceFactory
	openState StateOpener
	in        io.Reader
	sleep     poller.SleepFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStateOpener replaces the sqlite state store.
func WithStateOpener(fn StateOpener) Option {
	return func(d *Dispatcher) { d.openState = fn }
}

// WithInput sets the reader used for prompts and piped tokens.
func WithInput(r io.Reader) Option {
	return func(d *Dispatcher) { d.in = r }
}

// WithSleep replaces the poll interval clock.
func WithSleep(fn poller.SleepFunc) Option {
	return func(d *Dispatcher) { d.sleep = fn }
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		factory:   factory,
		openState: OpenSQLiteState,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "tasks" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "tasks", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	env := &commands.Env{
		Config: cfg,
		Log:    logger.New(errOut, debug),
		In:     d.in,
		Sleep:  d.sleep,
	}

	if needsState(cmd, cfg) {
		if err := cfg.EnsureDir(); err != nil {
			fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
			return exitcode.UserError
		}
		store, release, err := d.openState(ctx, cfg)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to open local state: %v\n", err)
			return exitcode.UserError
		}
		defer func() {
			if err := release(); err != nil {
				env.Log.Debug("close local state", "err", err)
			}
		}()
		env.State = store
		env.Session = auth.NewSession(store)
	}

	env.Connect = func(ctx context.Context) (service.Service, error) {
		if d.factory == nil {
			return nil, commands.ErrNoBackend
		}
		return d.factory(ctx, env)
	}
	env.Normalize()

	if cmd.NeedsAuth() {
		svc, err := env.Connect(ctx)
		if err != nil {
			if isAuthError(err) {
				fmt.Fprintf(errOut, "error: %v\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
		env.Service = svc
	}

	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()

	// Missing flag value
	if strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		flagPart := strings.TrimSpace(parts[len(parts)-1])
		return "flag needs an argument: " + flagPart
	}

	// Unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		return "unknown flag: " + strings.TrimPrefix(errStr, "flag provided but not defined: ")
	}

	return errStr
}

// needsState reports whether the local state store is opened for cmd.
func needsState(cmd commands.Command, cfg *config.Config) bool {
	if _, free := cmd.(commands.StateFree); free {
		return false
	}
	if _, optional := cmd.(commands.StateOptional); optional {
		return cfg.HasState()
	}
	return true
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrNotLoggedIn) ||
		errors.Is(err, auth.ErrExpired) ||
		errors.Is(err, service.ErrUnauthorized)
}
