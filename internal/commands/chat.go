package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"dialdesk/internal/chat"
	"dialdesk/internal/exitcode"
	"dialdesk/internal/output"
	"dialdesk/internal/service"
)

func init() {
	Register(&ChatCmd{})
}

// ChatCmd implements the chat command. Messages are submitted as tasks in
// the persistent chat session.
type ChatCmd struct {
	newSession  bool
	history     bool
	autoApprove bool
}

// SetNew sets whether to start a fresh session (for testing).
func (c *ChatCmd) SetNew(v bool) { c.newSession = v }

// SetHistory sets whether to print the session history (for testing).
func (c *ChatCmd) SetHistory(v bool) { c.history = v }

func (c *ChatCmd) Name() string      { return "chat" }
func (c *ChatCmd) Aliases() []string { return nil }
func (c *ChatCmd) Synopsis() string  { return "Talk to the assistant in the current chat session" }
func (c *ChatCmd) Usage() string {
	return "dialdesk chat [--new] [--history] [--auto-approve] [<message...>]"
}
func (c *ChatCmd) NeedsAuth() bool { return true }

func (c *ChatCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.newSession, "new", false, "")
	fs.BoolVar(&c.history, "history", false, "")
	fs.BoolVar(&c.autoApprove, "auto-approve", false, "")
	fs.BoolVar(&c.autoApprove, "y", false, "")
}

func (c *ChatCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	message := strings.Join(args, " ")
	if strings.TrimSpace(message) == "" && !c.history && !c.newSession {
		fmt.Fprintln(errOut, "error: message required")
		return exitcode.UserError
	}
	if env.State == nil {
		fmt.Fprintln(errOut, "error: local state unavailable")
		return exitcode.UserError
	}

	boot := chat.NewBootstrapper(env.Service, env.State,
		chat.WithHistoryLimit(env.Config.HistoryLimit),
		chat.WithLogger(env.Log))

	var sess service.ChatSession
	var err error
	if c.newSession {
		sess, err = boot.Reset(ctx)
	} else {
		sess, err = boot.Session(ctx)
	}
	if err != nil {
		return report(errOut, err)
	}
	if c.newSession && !env.Config.Quiet {
		fmt.Fprintf(errOut, "new session %s\n", sess.ID)
	}

	if c.history {
		for _, m := range sess.Messages {
			output.FormatChatMessage(out, m)
		}
	}
	if strings.TrimSpace(message) == "" {
		return exitcode.Success
	}

	req := service.CreateTaskRequest{
		Task:          message,
		ChatSessionID: sess.ID,
		ActorPhone:    env.Config.ActorPhone,
		ActorEmail:    env.Config.ActorEmail,
		ProjectID:     env.Config.ProjectID,
	}
	return submit(ctx, env, req, newWatch(env, c.autoApprove, true), false, out, errOut)
}
