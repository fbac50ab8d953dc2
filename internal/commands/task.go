package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"dialdesk/internal/chat"
	"dialdesk/internal/exitcode"
	"dialdesk/internal/service"
)

func init() {
	Register(&TaskCmd{})
}

// TaskCmd implements the task command: submit an instruction and wait for it.
type TaskCmd struct {
	autoApprove bool
	interactive bool
	noWait      bool
	context     string
	phone       string
	email       string
	project     string
}

// SetAutoApprove sets auto-approve (for testing).
func (c *TaskCmd) SetAutoApprove(v bool) { c.autoApprove = v }

// SetInteractive sets interactive confirmation (for testing).
func (c *TaskCmd) SetInteractive(v bool) { c.interactive = v }

// SetNoWait sets fire-and-forget submission (for testing).
func (c *TaskCmd) SetNoWait(v bool) { c.noWait = v }

// SetContext sets the free-form context (for testing).
func (c *TaskCmd) SetContext(v string) { c.context = v }

func (c *TaskCmd) Name() string      { return "task" }
func (c *TaskCmd) Aliases() []string { return []string{"do"} }
func (c *TaskCmd) Synopsis() string  { return "Submit an instruction and wait for the result" }
func (c *TaskCmd) Usage() string {
	return "dialdesk task [--auto-approve] [--interactive] [--no-wait] [--context <text>] [--phone <e164>] [--email <addr>] [--project <id>] <instruction...>"
}
func (c *TaskCmd) NeedsAuth() bool { return true }

func (c *TaskCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.autoApprove, "auto-approve", false, "")
	fs.BoolVar(&c.autoApprove, "y", false, "")
	fs.BoolVar(&c.interactive, "interactive", false, "")
	fs.BoolVar(&c.interactive, "i", false, "")
	fs.BoolVar(&c.noWait, "no-wait", false, "")
	fs.StringVar(&c.context, "context", "", "")
	fs.StringVar(&c.phone, "phone", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.project, "project", "", "")
}

func (c *TaskCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	instruction := strings.Join(args, " ")
	if strings.TrimSpace(instruction) == "" {
		fmt.Fprintln(errOut, "error: instruction required")
		return exitcode.UserError
	}

	req := service.CreateTaskRequest{
		Task:       instruction,
		Context:    c.context,
		ActorPhone: firstNonEmpty(c.phone, env.Config.ActorPhone),
		ActorEmail: firstNonEmpty(c.email, env.Config.ActorEmail),
		ProjectID:  firstNonEmpty(c.project, env.Config.ProjectID),
	}
	return submit(ctx, env, req, newWatch(env, c.autoApprove, c.interactive), c.noWait, out, errOut)
}

// submit threads req into the chat session unless it names one, creates the
// task and, unless noWait is set, watches it to a resting state.
func submit(ctx context.Context, env *Env, req service.CreateTaskRequest, w *watch, noWait bool, out, errOut io.Writer) int {
	if req.ChatSessionID == "" && env.State != nil {
		boot := chat.NewBootstrapper(env.Service, env.State,
			chat.WithHistoryLimit(env.Config.HistoryLimit),
			chat.WithLogger(env.Log))
		id, err := boot.SessionID(ctx)
		if err != nil {
			// Tasks are never submitted outside the session.
			return report(errOut, err)
		}
		req.ChatSessionID = id
	}

	task, err := env.Service.CreateTask(ctx, req)
	if err != nil {
		return report(errOut, err)
	}
	env.Log.Debug("task created", "task_id", task.ID, "status", task.Status)
	env.refreshCounts(ctx, "", task.Status, errOut)

	if noWait {
		fmt.Fprintf(out, "%s %s\n", task.ID, task.Status)
		return exitcode.Success
	}
	return w.run(ctx, task, out, errOut)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
