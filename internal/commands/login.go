package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"dialdesk/internal/auth"
	"dialdesk/internal/exitcode"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command. The token comes from --token or
// the first line of standard input.
type LoginCmd struct {
	token string
}

// SetToken sets the token (for testing).
func (c *LoginCmd) SetToken(t string) { c.token = t }

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Store an API token" }
func (c *LoginCmd) Usage() string     { return "dialdesk login [--token <token>] (or pipe the token on stdin)" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.token, "token", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if env.Session == nil {
		fmt.Fprintln(errOut, "error: local state unavailable")
		return exitcode.AuthError
	}

	token := c.token
	if token == "" {
		if !env.Config.Quiet {
			fmt.Fprint(errOut, "Paste your API token: ")
		}
		line, err := bufio.NewReader(env.In).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(errOut, "error: failed to read token: %v\n", err)
			return exitcode.AuthError
		}
		token = line
	}

	if err := env.Config.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	switch err := env.Session.Save(ctx, token); {
	case errors.Is(err, auth.ErrEmptyToken):
		fmt.Fprintln(errOut, "error: token required")
		return exitcode.UserError
	case errors.Is(err, auth.ErrExpired):
		fmt.Fprintln(errOut, "error: token has expired")
		return exitcode.AuthError
	case err != nil:
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
