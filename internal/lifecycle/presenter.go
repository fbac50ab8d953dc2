// Package lifecycle presents a single task and mediates its confirmation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"dialdesk/internal/logger"
	"dialdesk/internal/output"
	"dialdesk/internal/service"
)

// State is the presentation state derived from a task status.
type State int

const (
	StatePending State = iota
	StateAwaitingConfirmation
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StateOf maps a task status to its presentation state.
func StateOf(status service.TaskStatus) State {
	switch status {
	case service.StatusAwaitingConfirmation:
		return StateAwaitingConfirmation
	case service.StatusCompleted:
		return StateCompleted
	case service.StatusFailed, service.StatusRejected:
		return StateFailed
	}
	return StatePending
}

var (
	// ErrConfirmInFlight is returned when a decision is already being sent.
	ErrConfirmInFlight = errors.New("a confirmation for this task is already in progress")

	// ErrNotAwaiting is returned when confirming a task that is not paused.
	ErrNotAwaiting = errors.New("task is not awaiting confirmation")
)

// Controls reports which decision controls are enabled.
type Controls struct {
	Approve bool
	Reject  bool
}

// ChangeFunc is called after every observed status change.
type ChangeFunc func(prev, next service.Task)

// Presenter wraps one task. It only ever shows statuses read from the
// backend and sends at most one confirmation at a time.
type Presenter struct {
	svc    service.TaskService
	notify output.Notifier
	change ChangeFunc
	log    *slog.Logger

	mu         sync.Mutex
	task       service.Task
	confirming bool
	// sent is set once the backend accepted a decision and cleared by the
	// next snapshot adopted, so a failed refresh cannot re-open the controls.
	sent bool
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithNotifier sets where confirmation failures are surfaced.
func WithNotifier(n output.Notifier) Option {
	return func(p *Presenter) { p.notify = n }
}

// WithChangeHook sets a function called on every status change.
func WithChangeHook(fn ChangeFunc) Option {
	return func(p *Presenter) { p.change = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) { p.log = l }
}

// New creates a Presenter for a task snapshot.
func New(svc service.TaskService, task service.Task, opts ...Option) *Presenter {
	p := &Presenter{svc: svc, task: task, notify: output.Discard}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logger.OrDiscard(p.log)
	return p
}

// Load fetches a task and wraps it.
func Load(ctx context.Context, svc service.TaskService, taskID string, opts ...Option) (*Presenter, error) {
	task, err := svc.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return New(svc, task, opts...), nil
}

// Task returns the current snapshot.
func (p *Presenter) Task() service.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task
}

// State returns the presentation state of the current snapshot.
func (p *Presenter) State() State {
	return StateOf(p.Task().Status)
}

// Controls reports whether approve/reject can be used right now.
func (p *Presenter) Controls() Controls {
	p.mu.Lock()
	defer p.mu.Unlock()
	on := p.task.Status == service.StatusAwaitingConfirmation && !p.confirming && !p.sent
	return Controls{Approve: on, Reject: on}
}

// Approve sends an approval and refreshes the task.
func (p *Presenter) Approve(ctx context.Context) error {
	return p.confirm(ctx, true)
}

// Reject sends a rejection and refreshes the task.
func (p *Presenter) Reject(ctx context.Context) error {
	return p.confirm(ctx, false)
}

func (p *Presenter) confirm(ctx context.Context, approve bool) error {
	p.mu.Lock()
	if p.confirming || p.sent {
		p.mu.Unlock()
		return ErrConfirmInFlight
	}
	if p.task.Status != service.StatusAwaitingConfirmation {
		status := p.task.Status
		p.mu.Unlock()
		return fmt.Errorf("%w (status %s)", ErrNotAwaiting, status)
	}
	p.confirming = true
	id := p.task.ID
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.confirming = false
		p.mu.Unlock()
	}()

	p.log.Debug("confirming task", "task_id", id, "approve", approve)
	if _, err := p.svc.ConfirmTask(ctx, id, approve); err != nil {
		p.notify.Error(fmt.Sprintf("could not %s task %s: %v", verb(approve), id, err))
		return err
	}
	p.mu.Lock()
	p.sent = true
	p.mu.Unlock()

	// The confirm response is not trusted for display; read back the task.
	return p.Refresh(ctx)
}

func verb(approve bool) string {
	if approve {
		return "approve"
	}
	return "reject"
}

// Refresh re-reads the task from the backend.
func (p *Presenter) Refresh(ctx context.Context) error {
	p.mu.Lock()
	id := p.task.ID
	p.mu.Unlock()

	task, err := p.svc.GetTask(ctx, id)
	if err != nil {
		p.notify.Error(fmt.Sprintf("could not refresh task %s: %v", id, err))
		return err
	}
	p.Update(task)
	return nil
}

// Update adopts a snapshot fetched elsewhere, such as by the poller.
func (p *Presenter) Update(task service.Task) {
	p.mu.Lock()
	prev := p.task
	p.task = task
	p.sent = false
	p.mu.Unlock()

	if prev.Status == task.Status {
		return
	}
	if !service.Reachable(prev.Status, task.Status) {
		p.log.Warn("unexpected status change", "task_id", task.ID, "from", prev.Status, "to", task.Status)
	}
	if p.change != nil {
		p.change(prev, task)
	}
}

// Render writes the view for the current state.
func (p *Presenter) Render(w io.Writer) {
	task := p.Task()
	controls := p.Controls()

	output.FormatTaskHeader(w, task)
	switch StateOf(task.Status) {
	case StatePending:
		fmt.Fprintln(w, "working...")

	case StateAwaitingConfirmation:
		if len(task.PolicyReasons) > 0 {
			fmt.Fprintln(w, "needs confirmation:")
			for _, r := range task.PolicyReasons {
				fmt.Fprintf(w, "  - %s\n", r)
			}
		}
		if len(task.PlannedToolCalls) > 0 {
			fmt.Fprintln(w, "planned actions:")
			for i, call := range task.PlannedToolCalls {
				output.FormatToolCall(w, i+1, call)
			}
		}
		if controls.Approve {
			fmt.Fprintf(w, "approve: dialdesk approve %s\n", task.ID)
			fmt.Fprintf(w, "reject:  dialdesk reject %s\n", task.ID)
		} else {
			fmt.Fprintln(w, "confirmation in progress...")
		}

	case StateCompleted:
		if task.Result == nil {
			fmt.Fprintln(w, "(no result)")
			return
		}
		fmt.Fprintln(w, task.Result.Response)
		if len(task.Result.Raw) > 0 {
			fmt.Fprintf(w, "result: %s\n", task.Result.Raw)
		}

	case StateFailed:
		msg := task.Error
		if msg == "" {
			msg = "task " + string(task.Status)
		}
		fmt.Fprintf(w, "error: %s\n", msg)
	}
}
