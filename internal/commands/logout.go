package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"dialdesk/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "dialdesk logout" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}
func (c *LogoutCmd) StateOptional()                 {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if env.Session == nil || !env.Session.LoggedIn(ctx) {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	// Revoking server-side is best effort; local credentials go regardless.
	if svc, err := env.Connect(ctx); err == nil {
		if err := svc.Logout(ctx); err != nil {
			env.Log.Debug("server logout failed", "err", err)
		}
	} else {
		env.Log.Debug("skipping server logout", "err", err)
	}

	if err := env.Session.Invalidate(ctx); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
