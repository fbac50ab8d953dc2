// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, blank task, unknown command).
	UserError = 1

	// AuthError indicates a missing or expired session.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3

	// TaskFailed indicates the task ended failed or rejected.
	TaskFailed = 4

	// Timeout indicates the client gave up polling; the task may still resolve.
	Timeout = 5

	// AwaitingConfirmation indicates the task is paused for a human decision.
	AwaitingConfirmation = 6
)
