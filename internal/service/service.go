// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// TaskService is the task resource client. It owns no state.
type TaskService interface {
	// CreateTask submits a natural-language task.
	// Returns ErrTaskRequired without any network call if req.Task is blank.
	// The returned task may already be awaiting confirmation or terminal.
	CreateTask(ctx context.Context, req CreateTaskRequest) (Task, error)

	// GetTask fetches a task by id. It never mutates server state.
	GetTask(ctx context.Context, taskID string) (Task, error)

	// ConfirmTask approves or rejects a task paused at awaiting_confirmation.
	// Calling it on a task in any other state is backend-defined.
	ConfirmTask(ctx context.Context, taskID string, approve bool) (Task, error)

	// ListTasks returns recent tasks, newest first, in API order.
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
}

// ActionService is the relationship-ops action resource client.
type ActionService interface {
	// ListActions returns the pending suggested actions in API order.
	ListActions(ctx context.Context) ([]RelationshipAction, error)

	// ApproveAction marks intent to act on an action.
	ApproveAction(ctx context.Context, actionID string) error

	// ExecuteAction performs the send. Valid only after ApproveAction succeeded.
	ExecuteAction(ctx context.Context, actionID string) error

	// DismissAction discards an action. Terminal, no side effect.
	DismissAction(ctx context.Context, actionID string) error
}

// ChatService manages chat sessions used to group conversational tasks.
type ChatService interface {
	// CreateChatSession starts a new, empty session.
	CreateChatSession(ctx context.Context) (ChatSession, error)

	// GetChatSession returns a session with at most limit recent messages.
	GetChatSession(ctx context.Context, sessionID string, limit int) (ChatSession, error)
}

// Service defines the interface for backend operations.
// All backend calls go through this interface.
// Commands never import the HTTP client directly.
type Service interface {
	TaskService
	ActionService
	ChatService

	// Logout notifies the backend that the session ended.
	// Callers treat it as best-effort.
	Logout(ctx context.Context) error
}
