package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"dialdesk/internal/actions"
	"dialdesk/internal/exitcode"
	"dialdesk/internal/output"
)

func init() {
	Register(&ActionsCmd{})
	Register(&SendCmd{})
	Register(&DismissCmd{})
}

// actionID extracts the single action id argument.
func actionID(args []string, errOut io.Writer) (string, bool) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: action id required")
		return "", false
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return "", false
	}
	return strings.TrimSpace(args[0]), true
}

func newActionPresenter(env *Env, out, errOut io.Writer) *actions.Presenter {
	return actions.New(env.Service,
		actions.WithLogger(env.Log),
		actions.WithNotifier(output.NewWriterNotifier(out, errOut, env.Config.Quiet)))
}

// ActionsCmd implements the actions command.
type ActionsCmd struct{}

func (c *ActionsCmd) Name() string      { return "actions" }
func (c *ActionsCmd) Aliases() []string { return []string{"inbox"} }
func (c *ActionsCmd) Synopsis() string  { return "List suggested relationship actions" }
func (c *ActionsCmd) Usage() string     { return "dialdesk actions" }
func (c *ActionsCmd) NeedsAuth() bool   { return true }

func (c *ActionsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ActionsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	items, err := newActionPresenter(env, out, errOut).Load(ctx)
	if err != nil {
		return report(errOut, err)
	}
	if len(items) == 0 {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "no suggested actions")
		}
		return exitcode.Success
	}
	for i, a := range items {
		output.FormatAction(out, i+1, a)
	}
	return exitcode.Success
}

// SendCmd implements the send command: approve an action, then execute it.
type SendCmd struct{}

func (c *SendCmd) Name() string      { return "send" }
func (c *SendCmd) Aliases() []string { return nil }
func (c *SendCmd) Synopsis() string  { return "Approve and send a suggested action" }
func (c *SendCmd) Usage() string     { return "dialdesk send <action-id>" }
func (c *SendCmd) NeedsAuth() bool   { return true }

func (c *SendCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SendCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	id, ok := actionID(args, errOut)
	if !ok {
		return exitcode.UserError
	}

	res, err := newActionPresenter(env, out, errOut).ApproveAndSend(ctx, id)
	if err != nil {
		// Step failures were surfaced by the presenter; guard errors were not.
		if res.Outcome == 0 {
			return report(errOut, err)
		}
		return exitCodeFor(err)
	}
	if !env.Config.Quiet {
		fmt.Fprintln(out, res.Outcome)
	}
	return exitcode.Success
}

// DismissCmd implements the dismiss command.
type DismissCmd struct{}

func (c *DismissCmd) Name() string      { return "dismiss" }
func (c *DismissCmd) Aliases() []string { return nil }
func (c *DismissCmd) Synopsis() string  { return "Dismiss a suggested action" }
func (c *DismissCmd) Usage() string     { return "dialdesk dismiss <action-id>" }
func (c *DismissCmd) NeedsAuth() bool   { return true }

func (c *DismissCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DismissCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	id, ok := actionID(args, errOut)
	if !ok {
		return exitcode.UserError
	}
	if err := newActionPresenter(env, out, errOut).Dismiss(ctx, id); err != nil {
		// Already surfaced by the presenter.
		return exitCodeFor(err)
	}
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
