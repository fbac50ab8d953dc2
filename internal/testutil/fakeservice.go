// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"dialdesk/internal/service"
)

// Action states tracked by FakeService.
const (
	ActionPending   = "pending"
	ActionApproved  = "approved"
	ActionSent      = "sent"
	ActionDismissed = "dismissed"
)

// RejectedMessage is the error text FakeService sets on rejected tasks.
const RejectedMessage = "rejected by user"

// Step returns a scripted task snapshot with the given status.
func Step(status service.TaskStatus) service.Task {
	return service.Task{Status: status}
}

// Completed returns a completed snapshot whose result carries response.
func Completed(response string) service.Task {
	raw := fmt.Sprintf(`{"response":%q}`, response)
	return service.Task{
		Status: service.StatusCompleted,
		Result: &service.TaskResult{Response: response, Raw: []byte(raw)},
	}
}

// Failed returns a failed snapshot with the given error text.
func Failed(msg string) service.Task {
	return service.Task{Status: service.StatusFailed, Error: msg}
}

// Awaiting returns an awaiting_confirmation snapshot.
func Awaiting(reasons []string, calls ...service.ToolCall) service.Task {
	return service.Task{
		Status:           service.StatusAwaitingConfirmation,
		PolicyReasons:    reasons,
		PlannedToolCalls: calls,
	}
}

type fakeTask struct {
	current service.Task
	script  []service.Task
}

// FakeService is an in-memory implementation of service.Service for testing.
//
// Each task follows a script: every GetTask returns the next scripted snapshot,
// except that a task never moves past awaiting_confirmation until confirmed.
// Approving moves it to processing and the script resumes; rejecting ends it.
type FakeService struct {
	mu       sync.Mutex
	nextID   int
	tasks    map[string]*fakeTask
	order    []string
	scripts  [][]service.Task
	actions  []service.RelationshipAction
	states   map[string]string
	sessions map[string]service.ChatSession

	// Calls logs every method call in order, e.g. "get t-1", "confirm t-1 true".
	Calls []string

	// CreateRequests records every CreateTask request that reached the fake.
	CreateRequests []service.CreateTaskRequest

	inflight    int
	maxInflight int

	// OnCall, if set, runs for every logged call outside the lock.
	OnCall func(call string)

	// BeforeConfirm, if set, runs at the start of ConfirmTask outside the lock.
	BeforeConfirm func()

	// Error injection for testing
	CreateTaskErr        error
	GetTaskErr           error
	ConfirmTaskErr       error
	ListTasksErr         error
	ListActionsErr       error
	ApproveActionErr     error
	ExecuteActionErr     error
	DismissActionErr     error
	CreateChatSessionErr error
	GetChatSessionErr    error
	LogoutErr            error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		tasks:    make(map[string]*fakeTask),
		states:   make(map[string]string),
		sessions: make(map[string]service.ChatSession),
	}
}

// AddTask registers a task at its initial snapshot followed by a script.
func (f *FakeService) AddTask(task service.Task, script ...service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(task, script)
}

func (f *FakeService) addLocked(task service.Task, script []service.Task) {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	f.tasks[task.ID] = &fakeTask{current: task, script: script}
	f.order = append(f.order, task.ID)
}

// QueueScript sets the lifecycle of the next created task. The first snapshot
// is what CreateTask returns; without a queued script a task starts planning
// and stays there.
func (f *FakeService) QueueScript(initial service.Task, script ...service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, append([]service.Task{initial}, script...))
}

// Task returns the current server-side snapshot of a task.
func (f *FakeService) Task(id string) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return service.Task{}, false
	}
	return t.current, true
}

// AddAction registers a pending suggested action.
func (f *FakeService) AddAction(a service.RelationshipAction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	f.states[a.ID] = ActionPending
}

// ActionState returns the state of an action ("" if unknown).
func (f *FakeService) ActionState(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[id]
}

// AddSession registers an existing chat session.
func (f *FakeService) AddSession(sess service.ChatSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.ID] = sess
}

// CallCount returns how many logged calls start with prefix.
func (f *FakeService) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// MaxInflight returns the highest number of calls that ran at once.
func (f *FakeService) MaxInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

// enter records a call and returns a func that marks it finished.
func (f *FakeService) enter(call string) func() {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	onCall := f.OnCall
	f.mu.Unlock()
	if onCall != nil {
		onCall(call)
	}
	return func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}
}

func conflict(msg string) error {
	return &service.APIError{Status: http.StatusConflict, Code: "invalid_state", Message: msg}
}

func notFound(what string) error {
	return &service.APIError{Status: http.StatusNotFound, Code: "not_found", Message: what + " not found"}
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	if err := req.Validate(); err != nil {
		return service.Task{}, err
	}
	defer f.enter("create " + req.Task)()
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateRequests = append(f.CreateRequests, req)
	f.nextID++
	id := fmt.Sprintf("task-%d", f.nextID)

	script := []service.Task{Step(service.StatusPlanning)}
	if len(f.scripts) > 0 {
		script = f.scripts[0]
		f.scripts = f.scripts[1:]
	}
	initial := script[0]
	initial.ID = id
	initial.Task = req.Task
	f.addLocked(initial, script[1:])
	return f.tasks[id].current, nil
}

// GetTask implements service.Service.
func (f *FakeService) GetTask(ctx context.Context, taskID string) (service.Task, error) {
	defer f.enter("get " + taskID)()
	if f.GetTaskErr != nil {
		return service.Task{}, f.GetTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[taskID]
	if !ok {
		return service.Task{}, notFound("task")
	}
	if !t.current.Status.Terminal() && t.current.Status != service.StatusAwaitingConfirmation && len(t.script) > 0 {
		next := t.script[0]
		t.script = t.script[1:]
		next.ID = t.current.ID
		next.Task = t.current.Task
		next.CreatedAt = t.current.CreatedAt
		t.current = next
	}
	return t.current, nil
}

// ConfirmTask implements service.Service.
func (f *FakeService) ConfirmTask(ctx context.Context, taskID string, approve bool) (service.Task, error) {
	defer f.enter(fmt.Sprintf("confirm %s %t", taskID, approve))()
	if f.BeforeConfirm != nil {
		f.BeforeConfirm()
	}
	if f.ConfirmTaskErr != nil {
		return service.Task{}, f.ConfirmTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[taskID]
	if !ok {
		return service.Task{}, notFound("task")
	}
	if t.current.Status != service.StatusAwaitingConfirmation {
		return service.Task{}, conflict("task is not awaiting confirmation")
	}
	next := t.current
	next.PolicyReasons = nil
	if approve {
		next.Status = service.StatusProcessing
	} else {
		next.Status = service.StatusRejected
		next.PlannedToolCalls = nil
		next.Error = RejectedMessage
		t.script = nil
	}
	t.current = next
	return next, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, filter service.TaskFilter) ([]service.Task, error) {
	defer f.enter("list tasks")()
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []service.Task
	for i := len(f.order) - 1; i >= 0; i-- {
		t := f.tasks[f.order[i]].current
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		result = append(result, t)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// ListActions implements service.Service.
func (f *FakeService) ListActions(ctx context.Context) ([]service.RelationshipAction, error) {
	defer f.enter("list actions")()
	if f.ListActionsErr != nil {
		return nil, f.ListActionsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []service.RelationshipAction
	for _, a := range f.actions {
		if s := f.states[a.ID]; s == ActionPending || s == ActionApproved {
			a.Status = f.states[a.ID]
			result = append(result, a)
		}
	}
	return result, nil
}

// ApproveAction implements service.Service.
func (f *FakeService) ApproveAction(ctx context.Context, actionID string) error {
	defer f.enter("approve " + actionID)()
	if f.ApproveActionErr != nil {
		return f.ApproveActionErr
	}
	// Approving again is accepted, as the backend does.
	if f.ActionState(actionID) == ActionApproved {
		return nil
	}
	return f.moveAction(actionID, ActionPending, ActionApproved)
}

// ExecuteAction implements service.Service.
func (f *FakeService) ExecuteAction(ctx context.Context, actionID string) error {
	defer f.enter("execute " + actionID)()
	if f.ExecuteActionErr != nil {
		return f.ExecuteActionErr
	}
	return f.moveAction(actionID, ActionApproved, ActionSent)
}

// DismissAction implements service.Service.
func (f *FakeService) DismissAction(ctx context.Context, actionID string) error {
	defer f.enter("dismiss " + actionID)()
	if f.DismissActionErr != nil {
		return f.DismissActionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[actionID]
	if !ok {
		return notFound("action")
	}
	if s == ActionSent || s == ActionDismissed {
		return conflict("action already " + s)
	}
	f.states[actionID] = ActionDismissed
	return nil
}

func (f *FakeService) moveAction(id, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[id]
	if !ok {
		return notFound("action")
	}
	if s != from {
		return conflict(fmt.Sprintf("action is %s, not %s", s, from))
	}
	f.states[id] = to
	return nil
}

// CreateChatSession implements service.Service.
func (f *FakeService) CreateChatSession(ctx context.Context) (service.ChatSession, error) {
	defer f.enter("create session")()
	if f.CreateChatSessionErr != nil {
		return service.ChatSession{}, f.CreateChatSessionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := service.ChatSession{ID: uuid.NewString()}
	f.sessions[sess.ID] = sess
	return sess, nil
}

// GetChatSession implements service.Service.
func (f *FakeService) GetChatSession(ctx context.Context, sessionID string, limit int) (service.ChatSession, error) {
	defer f.enter("get session " + sessionID)()
	if f.GetChatSessionErr != nil {
		return service.ChatSession{}, f.GetChatSessionErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return service.ChatSession{}, notFound("session")
	}
	if limit > 0 && len(sess.Messages) > limit {
		sess.Messages = sess.Messages[len(sess.Messages)-limit:]
	}
	return sess, nil
}

// Logout implements service.Service.
func (f *FakeService) Logout(ctx context.Context) error {
	defer f.enter("logout")()
	return f.LogoutErr
}
