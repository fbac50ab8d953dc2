// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"dialdesk/internal/auth"
	"dialdesk/internal/cache"
	"dialdesk/internal/config"
	"dialdesk/internal/localstate"
	"dialdesk/internal/logger"
	"dialdesk/internal/output"
	"dialdesk/internal/poller"
	"dialdesk/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires authentication.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// env.Service is nil if NeedsAuth() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// StateFree is implemented by commands that never touch local state,
// so the dispatcher does not open it for them.
type StateFree interface {
	StateFree()
}

// StateOptional is implemented by commands that have nothing to do when no
// local state exists yet, so the dispatcher does not create it for them.
type StateOptional interface {
	StateOptional()
}

// Env carries everything a command runs against.
type Env struct {
	// Config is always provided (config dir, API settings).
	Config *config.Config

	// Service is the authenticated backend, set for NeedsAuth commands.
	Service service.Service

	// State is the durable client-local store.
	State localstate.Store

	// Session holds the auth token.
	Session *auth.Session

	// Log is the debug logger; never nil after Normalize.
	Log *slog.Logger

	// In is read for interactive prompts and piped tokens.
	In io.Reader

	// Sleep is the poll interval clock. Nil means real time.
	Sleep poller.SleepFunc

	// Counts is the task-by-status view shared by the commands of one run.
	Counts *cache.TaskCounts

	// Connect builds the authenticated backend on demand, for commands
	// that only sometimes need it.
	Connect func(ctx context.Context) (service.Service, error)
}

// ErrNoBackend is returned by Env.Connect when no backend is configured.
var ErrNoBackend = errors.New("no backend configured")

// Normalize fills unset optional fields with safe defaults.
func (e *Env) Normalize() *Env {
	e.Log = logger.OrDiscard(e.Log)
	if e.In == nil {
		e.In = eofReader{}
	}
	if e.Sleep == nil {
		e.Sleep = poller.Sleep
	}
	if e.Session == nil && e.State != nil {
		e.Session = auth.NewSession(e.State)
	}
	if e.Connect == nil {
		e.Connect = func(context.Context) (service.Service, error) {
			if e.Service != nil {
				return e.Service, nil
			}
			return nil, ErrNoBackend
		}
	}
	return e
}

// TaskCounts returns env.Counts, creating it over env.Service on first use.
func (e *Env) TaskCounts() *cache.TaskCounts {
	if e.Counts == nil {
		e.Counts = cache.NewTaskCounts(e.Service, cache.DefaultTTL)
	}
	return e.Counts
}

// refreshCounts moves one task between statuses in the counts view, then
// re-fetches the view so the local adjustment never outlives the call.
func (e *Env) refreshCounts(ctx context.Context, from, to service.TaskStatus, errOut io.Writer) {
	counts := e.TaskCounts()
	counts.Adjust(from, to)
	if _, err := counts.Fetch(ctx); err != nil {
		output.NewWriterNotifier(errOut, errOut, e.Config.Quiet).
			Info(fmt.Sprintf("warning: task counts not refreshed: %v", err))
	}
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
