package service_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialdesk/internal/service"
)

func TestCanTransition_OnlyDocumentedEdges(t *testing.T) {
	allowed := map[[2]service.TaskStatus]bool{
		{service.StatusPlanning, service.StatusProcessing}:             true,
		{service.StatusProcessing, service.StatusAwaitingConfirmation}: true,
		{service.StatusProcessing, service.StatusCompleted}:            true,
		{service.StatusProcessing, service.StatusFailed}:               true,
		{service.StatusAwaitingConfirmation, service.StatusProcessing}: true,
		{service.StatusAwaitingConfirmation, service.StatusRejected}:   true,
	}

	for _, from := range service.AllStatuses {
		for _, to := range service.AllStatuses {
			want := allowed[[2]service.TaskStatus{from, to}]
			assert.Equal(t, want, service.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, from := range service.AllStatuses {
		if !from.Terminal() {
			continue
		}
		for _, to := range service.AllStatuses {
			if to == from {
				continue
			}
			assert.False(t, service.Reachable(from, to), "%s must not reach %s", from, to)
		}
	}
}

func TestReachable_SkippedStates(t *testing.T) {
	assert.True(t, service.Reachable(service.StatusPlanning, service.StatusCompleted))
	assert.True(t, service.Reachable(service.StatusPlanning, service.StatusAwaitingConfirmation))
	assert.True(t, service.Reachable(service.StatusAwaitingConfirmation, service.StatusCompleted))
	assert.False(t, service.Reachable(service.StatusProcessing, service.StatusPlanning))
	assert.True(t, service.Reachable(service.StatusProcessing, service.StatusRejected))
}

func TestTaskResult_KeepsRawPayload(t *testing.T) {
	payload := `{"task_id":"t1","status":"completed","task":"call +15551234567","result":{"response":"Call placed","call":{"sid":"CA1",  "duration":42}}}`

	var task service.Task
	require.NoError(t, json.Unmarshal([]byte(payload), &task))

	require.NotNil(t, task.Result)
	assert.Equal(t, "Call placed", task.Result.Response)
	assert.Equal(t, `{"response":"Call placed","call":{"sid":"CA1",  "duration":42}}`, string(task.Result.Raw))
	assert.NoError(t, task.Validate())
}

func TestTaskResult_NullIsAbsent(t *testing.T) {
	var task service.Task
	require.NoError(t, json.Unmarshal([]byte(`{"task_id":"t1","status":"failed","result":null,"error":"no answer"}`), &task))

	assert.Nil(t, task.Result)
	assert.NoError(t, task.Validate())
}

func TestTaskValidate_ResultAndError(t *testing.T) {
	task := service.Task{
		ID:     "t1",
		Status: service.StatusCompleted,
		Result: &service.TaskResult{Response: "ok"},
		Error:  "boom",
	}
	assert.ErrorIs(t, task.Validate(), service.ErrResultAndError)
}

func TestCreateTaskRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, service.CreateTaskRequest{Task: "  \n"}.Validate(), service.ErrTaskRequired)
	assert.NoError(t, service.CreateTaskRequest{Task: "call mom"}.Validate())
}

func TestAPIError_Unwrap(t *testing.T) {
	err := error(&service.APIError{Status: 401, Code: "token_expired", Message: "expired"})
	assert.True(t, errors.Is(err, service.ErrUnauthorized))
	assert.Equal(t, "expired (token_expired, status 401)", err.Error())

	err = &service.APIError{Status: 500}
	assert.True(t, service.IsServerError(err))
	assert.Equal(t, "Internal Server Error (status 500)", err.Error())
}
