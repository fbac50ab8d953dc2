package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"dialdesk/internal/exitcode"
	"dialdesk/internal/lifecycle"
	"dialdesk/internal/output"
	"dialdesk/internal/poller"
	"dialdesk/internal/service"
)

// watch drives a task to a resting state and prints its final view.
// With interactive set, a task paused for confirmation prompts on env.In
// and polling resumes after an approval.
type watch struct {
	env         *Env
	autoApprove bool
	interactive bool
	in          *bufio.Reader
}

func newWatch(env *Env, autoApprove, interactive bool) *watch {
	return &watch{env: env, autoApprove: autoApprove, interactive: interactive, in: bufio.NewReader(env.In)}
}

func (w *watch) presenter(ctx context.Context, task service.Task, errOut io.Writer) *lifecycle.Presenter {
	quiet := w.env.Config.Quiet
	return lifecycle.New(w.env.Service, task,
		lifecycle.WithLogger(w.env.Log),
		lifecycle.WithNotifier(output.NewWriterNotifier(errOut, errOut, quiet)),
		lifecycle.WithChangeHook(func(prev, next service.Task) {
			w.env.refreshCounts(ctx, prev.Status, next.Status, errOut)
			if !quiet {
				fmt.Fprintf(errOut, "%s: %s\n", next.ID, next.Status)
			}
		}),
	)
}

func (w *watch) run(ctx context.Context, task service.Task, out, errOut io.Writer) int {
	pres := w.presenter(ctx, task, errOut)
	p := poller.New(w.env.Service,
		poller.WithSleep(w.env.Sleep),
		poller.WithLogger(w.env.Log),
		poller.WithObserver(func(_ int, t service.Task) { pres.Update(t) }),
	)

	current := task
	for {
		got, err := p.Advance(ctx, current, w.autoApprove)
		pres.Update(got)
		if err != nil {
			var timeout *poller.TimeoutError
			if errors.As(err, &timeout) {
				fmt.Fprintf(errOut, "error: task %s still %s after %d checks (run: dialdesk show %s)\n",
					timeout.TaskID, timeout.Last.Status, timeout.Attempts, timeout.TaskID)
				return exitcode.Timeout
			}
			return report(errOut, err)
		}
		if got.Status != service.StatusAwaitingConfirmation || !w.interactive {
			break
		}

		pres.Render(out)
		approve, decided, err := w.ask(out)
		if err != nil {
			return report(errOut, err)
		}
		if !decided {
			return exitcode.AwaitingConfirmation
		}
		if approve {
			err = pres.Approve(ctx)
		} else {
			err = pres.Reject(ctx)
		}
		if err != nil {
			// The presenter already surfaced the failure.
			return exitCodeFor(err)
		}
		current = pres.Task()
	}

	pres.Render(out)
	return exitCodeForState(pres.State())
}

// ask prompts until it reads y or n. A blank line or end of input leaves the
// task undecided.
func (w *watch) ask(out io.Writer) (approve, decided bool, err error) {
	for {
		fmt.Fprint(out, "approve? [y/n]: ")
		line, err := w.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, true, nil
		case "n", "no":
			return false, true, nil
		}
		if err == io.EOF || answer == "" {
			fmt.Fprintln(out)
			return false, false, nil
		}
		if err != nil {
			return false, false, err
		}
		fmt.Fprintln(out, "please answer y or n")
	}
}

// exitCodeForState maps where a task came to rest to the exit code.
func exitCodeForState(s lifecycle.State) int {
	switch s {
	case lifecycle.StateFailed:
		return exitcode.TaskFailed
	case lifecycle.StateAwaitingConfirmation:
		return exitcode.AwaitingConfirmation
	}
	return exitcode.Success
}
