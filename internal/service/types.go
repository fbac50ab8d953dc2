// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TaskStatus is the server-reported lifecycle state of a task.
// Exactly one status holds at a time.
type TaskStatus string

const (
	StatusPlanning             TaskStatus = "planning"
	StatusProcessing           TaskStatus = "processing"
	StatusAwaitingConfirmation TaskStatus = "awaiting_confirmation"
	StatusCompleted            TaskStatus = "completed"
	StatusFailed               TaskStatus = "failed"
	StatusRejected             TaskStatus = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []TaskStatus{
	StatusPlanning,
	StatusProcessing,
	StatusAwaitingConfirmation,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s is an end state. Terminal tasks never change.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

// ToolCall is a single action the agent intends to execute.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// TaskResult is the payload of a completed task.
// Raw holds the payload exactly as the server sent it.
type TaskResult struct {
	Response string
	Raw      json.RawMessage
}

// UnmarshalJSON keeps the raw payload and extracts the optional response text.
func (r *TaskResult) UnmarshalJSON(data []byte) error {
	var shape struct {
		Response *string `json:"response"`
	}
	// Non-object payloads are kept verbatim without a response.
	if err := json.Unmarshal(data, &shape); err == nil && shape.Response != nil {
		r.Response = *shape.Response
	}
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the raw payload back unchanged.
func (r TaskResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(struct {
		Response string `json:"response,omitempty"`
	}{r.Response})
}

// Task is a unit of user intent submitted for AI execution.
type Task struct {
	ID               string      `json:"task_id"`
	Status           TaskStatus  `json:"status"`
	Task             string      `json:"task"`
	PlannedToolCalls []ToolCall  `json:"planned_tool_calls,omitempty"`
	PolicyReasons    []string    `json:"policy_reasons,omitempty"`
	Result           *TaskResult `json:"result,omitempty"`
	Error            string      `json:"error,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// ErrResultAndError is returned by Validate when a task carries both outcomes.
var ErrResultAndError = errors.New("task has both result and error")

// Validate checks the invariants the server guarantees for a task payload.
func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New("task has no id")
	}
	if !t.Status.Valid() {
		return errors.New("task has unknown status: " + string(t.Status))
	}
	if t.Result != nil && t.Error != "" {
		return ErrResultAndError
	}
	return nil
}

// CreateTaskRequest is the body of a task creation call.
type CreateTaskRequest struct {
	Task          string `json:"task"`
	Context       string `json:"context,omitempty"`
	ActorPhone    string `json:"actor_phone,omitempty"`
	ActorEmail    string `json:"actor_email,omitempty"`
	ChatSessionID string `json:"chat_session_id,omitempty"`
	ProjectID     string `json:"project_id,omitempty"`
}

// Validate rejects requests that must never reach the network.
func (r CreateTaskRequest) Validate() error {
	if strings.TrimSpace(r.Task) == "" {
		return ErrTaskRequired
	}
	return nil
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	Status TaskStatus
	Limit  int
}

// RelationshipAction is a suggested outreach action.
type RelationshipAction struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	ContactName   string   `json:"contact_name"`
	PriorityScore float64  `json:"priority_score"`
	RiskFlags     []string `json:"risk_flags"`
	DraftMessage  string   `json:"draft_message,omitempty"`
	DraftChannel  string   `json:"draft_channel,omitempty"`
	Status        string   `json:"status,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// ChatRole is the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatMessage is one entry in a chat session.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSession is a persisted conversation scope.
type ChatSession struct {
	ID       string        `json:"id"`
	Messages []ChatMessage `json:"messages"`
}
