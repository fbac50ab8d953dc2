package lifecycle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialdesk/internal/lifecycle"
	"dialdesk/internal/output"
	"dialdesk/internal/service"
	"dialdesk/internal/testutil"
)

func awaitingTask() service.Task {
	return service.Task{
		ID:            "task-1",
		Status:        service.StatusAwaitingConfirmation,
		Task:          "call the landlord",
		PolicyReasons: []string{"external call"},
		PlannedToolCalls: []service.ToolCall{
			{Name: "place_call", Arguments: json.RawMessage(`{"to":"+15551234567"}`)},
		},
	}
}

func TestStateOf(t *testing.T) {
	cases := map[service.TaskStatus]lifecycle.State{
		service.StatusPlanning:             lifecycle.StatePending,
		service.StatusProcessing:           lifecycle.StatePending,
		service.StatusAwaitingConfirmation: lifecycle.StateAwaitingConfirmation,
		service.StatusCompleted:            lifecycle.StateCompleted,
		service.StatusFailed:               lifecycle.StateFailed,
		service.StatusRejected:             lifecycle.StateFailed,
	}
	for status, want := range cases {
		assert.Equal(t, want, lifecycle.StateOf(status), "status %s", status)
	}
}

func TestReject_ScenarioB(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(awaitingTask())

	var changes [][2]service.TaskStatus
	p := lifecycle.New(svc, awaitingTask(), lifecycle.WithChangeHook(func(prev, next service.Task) {
		changes = append(changes, [2]service.TaskStatus{prev.Status, next.Status})
	}))
	assert.Equal(t, lifecycle.Controls{Approve: true, Reject: true}, p.Controls())

	require.NoError(t, p.Reject(context.Background()))

	assert.Equal(t, []string{"confirm task-1 false", "get task-1"}, svc.Calls)
	assert.Equal(t, lifecycle.StateFailed, p.State())
	assert.Equal(t, service.StatusRejected, p.Task().Status)
	assert.Equal(t, lifecycle.Controls{}, p.Controls())
	assert.Equal(t, [][2]service.TaskStatus{{service.StatusAwaitingConfirmation, service.StatusRejected}}, changes)

	var buf bytes.Buffer
	p.Render(&buf)
	expected := "[rejected] task-1\ncall the landlord\nerror: rejected by user\n"
	assert.Equal(t, expected, buf.String())
}

func TestApprove_RefreshesFromServer(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(awaitingTask(), testutil.Completed("Call placed"))

	p := lifecycle.New(svc, awaitingTask())
	require.NoError(t, p.Approve(context.Background()))

	assert.Equal(t, []string{"confirm task-1 true", "get task-1"}, svc.Calls)
	assert.Equal(t, lifecycle.StateCompleted, p.State())
	require.NotNil(t, p.Task().Result)
	assert.Equal(t, "Call placed", p.Task().Result.Response)
}

func TestConfirm_SecondClickWhileInFlight(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(awaitingTask())

	p := lifecycle.New(svc, awaitingTask())

	var inner error
	var controls lifecycle.Controls
	svc.BeforeConfirm = func() {
		controls = p.Controls()
		inner = p.Reject(context.Background())
	}

	require.NoError(t, p.Approve(context.Background()))
	assert.ErrorIs(t, inner, lifecycle.ErrConfirmInFlight)
	assert.Equal(t, lifecycle.Controls{}, controls, "controls are disabled while a decision is in flight")
	assert.Equal(t, 1, svc.CallCount("confirm"))
}

func TestConfirm_FailureReEnablesControls(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(awaitingTask())
	svc.ConfirmTaskErr = &service.APIError{Status: 500, Code: "internal", Message: "policy engine down"}

	rec := &output.Recorder{}
	p := lifecycle.New(svc, awaitingTask(), lifecycle.WithNotifier(rec))

	err := p.Approve(context.Background())
	require.Error(t, err)
	assert.True(t, service.IsServerError(err))

	assert.Equal(t, lifecycle.StateAwaitingConfirmation, p.State())
	assert.Equal(t, lifecycle.Controls{Approve: true, Reject: true}, p.Controls())
	require.Len(t, rec.Errors, 1)
	assert.Contains(t, rec.Errors[0], "policy engine down")
	assert.Zero(t, svc.CallCount("get"), "no refresh after a failed confirm")
}

func TestConfirm_RefreshFailureKeepsControlsDisabled(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(awaitingTask(), testutil.Completed("Call placed"))
	svc.GetTaskErr = &service.APIError{Status: 503, Message: "unavailable"}

	rec := &output.Recorder{}
	p := lifecycle.New(svc, awaitingTask(), lifecycle.WithNotifier(rec))

	require.Error(t, p.Approve(context.Background()))
	assert.Equal(t, lifecycle.StateAwaitingConfirmation, p.State(), "last snapshot still shown")
	assert.Equal(t, lifecycle.Controls{}, p.Controls())
	require.Len(t, rec.Errors, 1)
	assert.Contains(t, rec.Errors[0], "could not refresh task")

	assert.ErrorIs(t, p.Approve(context.Background()), lifecycle.ErrConfirmInFlight)
	assert.ErrorIs(t, p.Reject(context.Background()), lifecycle.ErrConfirmInFlight)
	assert.Equal(t, 1, svc.CallCount("confirm"))

	svc.GetTaskErr = nil
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, lifecycle.StateCompleted, p.State())
}

func TestConfirm_NotAwaiting(t *testing.T) {
	svc := testutil.NewFakeService()
	p := lifecycle.New(svc, service.Task{ID: "t-1", Status: service.StatusProcessing})

	err := p.Approve(context.Background())
	assert.ErrorIs(t, err, lifecycle.ErrNotAwaiting)
	assert.Empty(t, svc.Calls)
}

func TestRefresh_NeverGuesses(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "t-1", Status: service.StatusPlanning}, testutil.Step(service.StatusProcessing))

	p, err := lifecycle.Load(context.Background(), svc, "t-1")
	require.NoError(t, err)
	assert.Equal(t, service.StatusProcessing, p.Task().Status)

	// No more scripted steps: status stays where the server says.
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, service.StatusProcessing, p.Task().Status)
	assert.Equal(t, lifecycle.StatePending, p.State())
}

func TestRender_Awaiting(t *testing.T) {
	p := lifecycle.New(testutil.NewFakeService(), awaitingTask())

	var buf bytes.Buffer
	p.Render(&buf)

	expected := "[awaiting_confirmation] task-1\n" +
		"call the landlord\n" +
		"needs confirmation:\n" +
		"  - external call\n" +
		"planned actions:\n" +
		"  1. place_call {\"to\":\"+15551234567\"}\n" +
		"approve: dialdesk approve task-1\n" +
		"reject:  dialdesk reject task-1\n"
	assert.Equal(t, expected, buf.String())
}

func TestRender_CompletedShowsResponseAndRawPayload(t *testing.T) {
	raw := `{"response":"Call placed\nto +1555","duration_s":42,"transcript":["hi"]}`
	var result service.TaskResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	task := service.Task{ID: "task-9", Status: service.StatusCompleted, Task: "call", Result: &result}
	p := lifecycle.New(testutil.NewFakeService(), task)

	var buf bytes.Buffer
	p.Render(&buf)

	expected := "[completed] task-9\ncall\nCall placed\nto +1555\nresult: " + raw + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestRender_FailedWithoutMessage(t *testing.T) {
	p := lifecycle.New(testutil.NewFakeService(), service.Task{ID: "t", Status: service.StatusFailed, Task: "x"})

	var buf bytes.Buffer
	p.Render(&buf)
	assert.Equal(t, "[failed] t\nx\nerror: task failed\n", buf.String())
}
