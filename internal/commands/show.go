package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"dialdesk/internal/exitcode"
	"dialdesk/internal/lifecycle"
	"dialdesk/internal/output"
	"dialdesk/internal/service"
)

func init() {
	Register(&ShowCmd{})
	Register(&ApproveCmd{})
	Register(&RejectCmd{})
}

// taskID extracts the single task id argument.
func taskID(args []string, errOut io.Writer) (string, bool) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: task id required")
		return "", false
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return "", false
	}
	return strings.TrimSpace(args[0]), true
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return []string{"status"} }
func (c *ShowCmd) Synopsis() string  { return "Show a task" }
func (c *ShowCmd) Usage() string     { return "dialdesk show <task-id>" }
func (c *ShowCmd) NeedsAuth() bool   { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	id, ok := taskID(args, errOut)
	if !ok {
		return exitcode.UserError
	}
	pres, err := lifecycle.Load(ctx, env.Service, id, lifecycle.WithLogger(env.Log))
	if err != nil {
		return report(errOut, err)
	}
	pres.Render(out)
	return exitcode.Success
}

// ApproveCmd implements the approve command.
type ApproveCmd struct {
	wait bool
}

// SetWait sets whether to wait for the task after approving (for testing).
func (c *ApproveCmd) SetWait(v bool) { c.wait = v }

func (c *ApproveCmd) Name() string      { return "approve" }
func (c *ApproveCmd) Aliases() []string { return nil }
func (c *ApproveCmd) Synopsis() string  { return "Approve a task awaiting confirmation" }
func (c *ApproveCmd) Usage() string     { return "dialdesk approve [--wait] <task-id>" }
func (c *ApproveCmd) NeedsAuth() bool   { return true }

func (c *ApproveCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.wait, "wait", false, "")
	fs.BoolVar(&c.wait, "w", false, "")
}

func (c *ApproveCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return decide(ctx, env, args, true, c.wait, out, errOut)
}

// RejectCmd implements the reject command.
type RejectCmd struct{}

func (c *RejectCmd) Name() string      { return "reject" }
func (c *RejectCmd) Aliases() []string { return nil }
func (c *RejectCmd) Synopsis() string  { return "Reject a task awaiting confirmation" }
func (c *RejectCmd) Usage() string     { return "dialdesk reject <task-id>" }
func (c *RejectCmd) NeedsAuth() bool   { return true }

func (c *RejectCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RejectCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return decide(ctx, env, args, false, false, out, errOut)
}

// decide is the shared implementation for approve and reject.
func decide(ctx context.Context, env *Env, args []string, approve, wait bool, out, errOut io.Writer) int {
	id, ok := taskID(args, errOut)
	if !ok {
		return exitcode.UserError
	}

	notify := output.NewWriterNotifier(out, errOut, env.Config.Quiet)
	pres, err := lifecycle.Load(ctx, env.Service, id,
		lifecycle.WithLogger(env.Log),
		lifecycle.WithNotifier(notify),
		lifecycle.WithChangeHook(func(prev, next service.Task) {
			env.refreshCounts(ctx, prev.Status, next.Status, errOut)
		}))
	if err != nil {
		return report(errOut, err)
	}

	if approve {
		err = pres.Approve(ctx)
	} else {
		err = pres.Reject(ctx)
	}
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotAwaiting) {
			return report(errOut, err)
		}
		// Confirm and refresh failures were already surfaced by the presenter.
		return exitCodeFor(err)
	}

	if wait {
		return newWatch(env, false, false).run(ctx, pres.Task(), out, errOut)
	}
	pres.Render(out)
	return exitcode.Success
}
