// Package poller drives a submitted task to a terminal status by polling.
//
// Fetch and confirm calls for one task are strictly sequential: confirm is only
// valid from awaiting_confirmation, and reordering it with a fetch could send a
// stale confirmation. Independent pollers share no state.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dialdesk/internal/logger"
	"dialdesk/internal/service"
)

const (
	// MaxAttempts bounds the number of fetches for one task.
	MaxAttempts = 30

	// Interval is the wait between attempts.
	Interval = time.Second
)

// TimeoutError reports that the attempt budget ran out before the task reached
// a terminal status. The task may still resolve server-side later.
type TimeoutError struct {
	TaskID   string
	Attempts int
	Last     service.Task
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s still %s after %d attempts", e.TaskID, e.Last.Status, e.Attempts)
}

// ConfirmError reports that auto-approval failed. Unlike a failed task,
// the task may still be salvageable by a manual confirm.
type ConfirmError struct {
	TaskID string
	Err    error
}

func (e *ConfirmError) Error() string {
	return fmt.Sprintf("auto-approve task %s: %v", e.TaskID, e.Err)
}

func (e *ConfirmError) Unwrap() error { return e.Err }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-time SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poller polls a single task at a time per Advance call.
type Poller struct {
	svc         service.TaskService
	maxAttempts int
	interval    time.Duration
	sleep       SleepFunc
	observe     func(attempt int, task service.Task)
	log         *slog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithSleep replaces the delay between attempts (for testing).
func WithSleep(fn SleepFunc) Option {
	return func(p *Poller) { p.sleep = fn }
}

// WithObserver registers fn to receive every fetched task, in order.
func WithObserver(fn func(attempt int, task service.Task)) Option {
	return func(p *Poller) { p.observe = fn }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.log = logger.OrDiscard(l) }
}

// New creates a Poller with the fixed attempt budget and interval.
func New(svc service.TaskService, opts ...Option) *Poller {
	p := &Poller{
		svc:         svc,
		maxAttempts: MaxAttempts,
		interval:    Interval,
		sleep:       Sleep,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Advance drives task until it is terminal, or paused at awaiting_confirmation
// when autoApprove is false.
//
// With autoApprove, a task awaiting confirmation is confirmed and then re-fetched
// on the next attempt; the confirm response itself is not trusted as final.
// Errors: transport/API errors from a fetch are returned as-is, a failed
// auto-confirm is a *ConfirmError, an exhausted budget is a *TimeoutError and
// a cancelled ctx returns ctx.Err(). A task that ends failed or rejected is
// returned without error.
func (p *Poller) Advance(ctx context.Context, task service.Task, autoApprove bool) (service.Task, error) {
	if task.ID == "" {
		return task, service.ErrIDRequired
	}
	if task.Status.Terminal() {
		return task, nil
	}
	if task.Status == service.StatusAwaitingConfirmation && !autoApprove {
		return task, nil
	}

	last := task
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		current, err := p.svc.GetTask(ctx, task.ID)
		if err != nil {
			return last, fmt.Errorf("poll task %s: %w", task.ID, err)
		}
		if !service.Reachable(last.Status, current.Status) {
			p.log.Warn("unexpected status change", "task_id", task.ID, "from", last.Status, "to", current.Status)
		}
		p.log.Debug("poll", "task_id", task.ID, "attempt", attempt, "status", current.Status)
		if p.observe != nil {
			p.observe(attempt, current)
		}
		last = current

		switch {
		case current.Status.Terminal():
			return current, nil
		case current.Status == service.StatusAwaitingConfirmation:
			if !autoApprove {
				return current, nil
			}
			if _, err := p.svc.ConfirmTask(ctx, task.ID, true); err != nil {
				return current, &ConfirmError{TaskID: task.ID, Err: err}
			}
			p.log.Debug("auto-approved", "task_id", task.ID, "attempt", attempt)
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return last, err
		}
	}
	return last, &TimeoutError{TaskID: task.ID, Attempts: p.maxAttempts, Last: last}
}
