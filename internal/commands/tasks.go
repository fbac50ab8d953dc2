package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"dialdesk/internal/exitcode"
	"dialdesk/internal/output"
	"dialdesk/internal/service"
)

// DefaultTaskLimit is the number of tasks listed without --limit.
const DefaultTaskLimit = 20

func init() {
	Register(&TasksCmd{})
}

// TasksCmd implements the tasks command.
// Handles both `dialdesk` (no args) and `dialdesk tasks`.
type TasksCmd struct {
	status string
	limit  int
}

// SetStatus sets the status filter (for testing).
func (c *TasksCmd) SetStatus(s string) { c.status = s }

// SetLimit sets the row limit (for testing).
func (c *TasksCmd) SetLimit(n int) { c.limit = n }

func (c *TasksCmd) Name() string      { return "tasks" }
func (c *TasksCmd) Aliases() []string { return []string{"ls"} }
func (c *TasksCmd) Synopsis() string  { return "List recent tasks" }
func (c *TasksCmd) Usage() string     { return "dialdesk tasks [--status <status>] [--limit <n>]" }
func (c *TasksCmd) NeedsAuth() bool   { return true }

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.status, "s", "", "")
	fs.IntVar(&c.limit, "limit", DefaultTaskLimit, "")
	fs.IntVar(&c.limit, "n", DefaultTaskLimit, "")
}

func (c *TasksCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	status := service.TaskStatus(c.status)
	if status != "" && !status.Valid() {
		fmt.Fprintf(errOut, "error: invalid status: %s\n", c.status)
		return exitcode.UserError
	}
	if c.limit < 1 {
		fmt.Fprintf(errOut, "error: invalid limit: %d\n", c.limit)
		return exitcode.UserError
	}

	tasks, err := env.Service.ListTasks(ctx, service.TaskFilter{Status: status, Limit: c.limit})
	if err != nil {
		return report(errOut, err)
	}

	if status == "" && len(tasks) > 0 && !env.Config.Quiet {
		counts, err := env.TaskCounts().Get(ctx)
		if err != nil {
			return report(errOut, err)
		}
		output.FormatCounts(out, counts)
	}

	for _, task := range tasks {
		output.FormatTaskLine(out, task)
	}
	if len(tasks) == 0 && !env.Config.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
