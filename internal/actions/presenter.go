// Package actions presents the command center's suggested relationship actions.
package actions

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"dialdesk/internal/logger"
	"dialdesk/internal/output"
	"dialdesk/internal/service"
)

// ErrInFlight is returned when an action already has a call in progress.
var ErrInFlight = errors.New("action is already being processed")

// Outcome is the result of the approve-then-send sequence.
type Outcome int

const (
	// Sent means both steps succeeded.
	Sent Outcome = iota + 1
	// ApproveFailed means approval failed and no send was attempted.
	ApproveFailed
	// ApprovedNotSent means the action is approved but the send failed.
	ApprovedNotSent
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case ApproveFailed:
		return "approve failed"
	case ApprovedNotSent:
		return "approved but not sent"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// SendResult describes how far ApproveAndSend got.
type SendResult struct {
	ActionID string
	Outcome  Outcome
	Err      error
}

// Presenter holds the ranked action list and guards each action against
// concurrent calls.
type Presenter struct {
	svc    service.ActionService
	notify output.Notifier
	log    *slog.Logger

	mu       sync.Mutex
	items    []service.RelationshipAction
	inflight map[string]bool
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithNotifier sets where failures are surfaced.
func WithNotifier(n output.Notifier) Option {
	return func(p *Presenter) { p.notify = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) { p.log = l }
}

// New creates an empty Presenter.
func New(svc service.ActionService, opts ...Option) *Presenter {
	p := &Presenter{
		svc:      svc,
		notify:   output.Discard,
		inflight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logger.OrDiscard(p.log)
	return p
}

// Rank orders actions by priority score, highest first. Ties are broken by
// contact name and otherwise keep backend order.
func Rank(items []service.RelationshipAction) []service.RelationshipAction {
	ranked := slices.Clone(items)
	slices.SortStableFunc(ranked, func(a, b service.RelationshipAction) int {
		if c := cmp.Compare(b.PriorityScore, a.PriorityScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ContactName, b.ContactName)
	})
	return ranked
}

// Load fetches and ranks the pending actions, replacing the current list.
func (p *Presenter) Load(ctx context.Context) ([]service.RelationshipAction, error) {
	items, err := p.svc.ListActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	ranked := Rank(items)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = ranked
	return slices.Clone(ranked), nil
}

// Actions returns the current ranked list.
func (p *Presenter) Actions() []service.RelationshipAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// Enabled reports whether the controls for an action can be used.
func (p *Presenter) Enabled(actionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.inflight[actionID]
}

func (p *Presenter) acquire(actionID string) error {
	if actionID == "" {
		return service.ErrIDRequired
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[actionID] {
		return ErrInFlight
	}
	p.inflight[actionID] = true
	return nil
}

func (p *Presenter) release(actionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, actionID)
}

func (p *Presenter) remove(actionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = slices.DeleteFunc(p.items, func(a service.RelationshipAction) bool { return a.ID == actionID })
}

// ApproveAndSend approves an action and then executes it. Both calls are made
// on every invocation, including a retry after a failed send; how the backend
// answers a repeated approve is its own business. The returned error is
// ErrInFlight when another call holds the action, otherwise the failing
// step's error, which is also recorded in the result.
func (p *Presenter) ApproveAndSend(ctx context.Context, actionID string) (SendResult, error) {
	if err := p.acquire(actionID); err != nil {
		return SendResult{ActionID: actionID}, err
	}
	defer p.release(actionID)

	if err := p.svc.ApproveAction(ctx, actionID); err != nil {
		p.notify.Error(fmt.Sprintf("could not approve action %s: %v", actionID, err))
		return SendResult{ActionID: actionID, Outcome: ApproveFailed, Err: err}, err
	}
	p.log.Debug("action approved", "action_id", actionID)

	if err := p.svc.ExecuteAction(ctx, actionID); err != nil {
		p.notify.Error(fmt.Sprintf("action %s was approved but not sent: %v", actionID, err))
		return SendResult{ActionID: actionID, Outcome: ApprovedNotSent, Err: err}, err
	}

	p.remove(actionID)
	return SendResult{ActionID: actionID, Outcome: Sent}, nil
}

// Dismiss dismisses an action and removes it from the list.
func (p *Presenter) Dismiss(ctx context.Context, actionID string) error {
	if err := p.acquire(actionID); err != nil {
		return err
	}
	defer p.release(actionID)

	if err := p.svc.DismissAction(ctx, actionID); err != nil {
		p.notify.Error(fmt.Sprintf("could not dismiss action %s: %v", actionID, err))
		return err
	}
	p.remove(actionID)
	return nil
}
