package agentops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGateway records effects in order and lets tests inject failures per
// operation.
type fakeGateway struct {
	summary *taskrouter.TaskSummary
	findErr error

	createdSid string
	created    []taskrouter.CreateTaskParams

	updates []string

	delTransErr error
	delRecErr   error

	ops []string
}

func (f *fakeGateway) FindTask(ctx context.Context, id string) (*taskrouter.TaskSummary, error) {
	f.ops = append(f.ops, "find:"+id)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.summary, nil
}

func (f *fakeGateway) CancelTask(ctx context.Context, taskSid, reason string) taskrouter.BestEffort {
	f.ops = append(f.ops, "cancel:"+taskSid)
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) CompleteTask(ctx context.Context, taskSid, reason string) taskrouter.BestEffort {
	f.ops = append(f.ops, fmt.Sprintf("complete:%s:%s", taskSid, reason))
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) CreateTask(ctx context.Context, p taskrouter.CreateTaskParams) (string, taskrouter.BestEffort) {
	f.ops = append(f.ops, "create:"+p.Channel)
	f.created = append(f.created, p)
	return f.createdSid, taskrouter.BestEffort{}
}

func (f *fakeGateway) UpdateTaskAttributes(ctx context.Context, taskSid, attributes string) taskrouter.BestEffort {
	f.ops = append(f.ops, "update:"+taskSid)
	f.updates = append(f.updates, attributes)
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) QueuePosition(ctx context.Context, t *taskrouter.TaskSummary) (int, error) {
	return -1, nil
}

func (f *fakeGateway) WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*taskrouter.WaitStats, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) RedirectCall(ctx context.Context, callSid, url string) taskrouter.BestEffort {
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) DeleteRecording(ctx context.Context, recordingSid string) taskrouter.BestEffort {
	f.ops = append(f.ops, "delRec:"+recordingSid)
	return taskrouter.BestEffort{Err: f.delRecErr}
}

func (f *fakeGateway) DeleteTranscription(ctx context.Context, transcriptionSid string) taskrouter.BestEffort {
	f.ops = append(f.ops, "delTrans:"+transcriptionSid)
	return taskrouter.BestEffort{Err: f.delTransErr}
}

func lastUpdate(t *testing.T, gw *fakeGateway) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, gw.updates)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(gw.updates[len(gw.updates)-1]), &m))
	return m
}

func TestSetUIPluginFlagsCallback(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, zap.NewNop())

	attrs := map[string]interface{}{
		"taskType":  "callback",
		"ui_plugin": map[string]interface{}{"cbCallButtonAccessibility": false},
	}
	res := svc.SetUIPluginFlags(context.Background(), "callback", "WT111", attrs, true)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "cbUpdateAttr", res.Type)

	persisted := lastUpdate(t, gw)
	ui := persisted["ui_plugin"].(map[string]interface{})
	assert.Equal(t, true, ui["cbCallButtonAccessibility"])
	// Unknown attribute keys survive the read-modify-write.
	assert.Equal(t, "callback", persisted["taskType"])
}

func TestSetUIPluginFlagsVoicemailInvertsRecordButton(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, zap.NewNop())

	res := svc.SetUIPluginFlags(context.Background(), "voicemail", "WT111",
		map[string]interface{}{}, false)
	assert.Equal(t, "success", res.Status)

	ui := lastUpdate(t, gw)["ui_plugin"].(map[string]interface{})
	assert.Equal(t, false, ui["vmCallButtonAccessibility"])
	assert.Equal(t, true, ui["vmRecordButtonAccessibility"])
}

func TestSetUIPluginFlagsUnknownType(t *testing.T) {
	svc := NewService(&fakeGateway{}, zap.NewNop())
	res := svc.SetUIPluginFlags(context.Background(), "fax", "WT111", nil, true)
	assert.Equal(t, "error", res.Status)
}

func TestRequeueOrderingAndAttributes(t *testing.T) {
	gw := &fakeGateway{createdSid: "WT222"}
	svc := NewService(gw, zap.NewNop())

	res := svc.Requeue(context.Background(), RequeueRequest{
		Type:        "callback",
		TaskSid:     "WT111",
		WorkflowSid: "WW111",
		State:       false,
		Attributes: map[string]interface{}{
			"taskType":       "callback",
			"to":             "+13035551212",
			"placeCallRetry": float64(2),
		},
	})
	require.Equal(t, "success", res.Status)

	// UI flag reset happens before the successor exists, and the original is
	// completed only after the successor was created.
	require.Equal(t, []string{
		"update:WT111",
		"create:callback",
		"complete:WT111:task transferred",
	}, gw.ops)

	require.Len(t, gw.created, 1)
	created := gw.created[0]
	assert.Equal(t, "callback", created.Channel)
	assert.Equal(t, 50, created.Priority)
	assert.Equal(t, "WW111", created.WorkflowSid)

	var attrs map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(created.Attributes), &attrs))
	assert.Equal(t, float64(3), attrs["placeCallRetry"])
	conv := attrs["conversations"].(map[string]interface{})
	assert.Equal(t, "WT111", conv["conversation_id"])
}

func TestRequeueKeepsExistingConversationLink(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, zap.NewNop())

	res := svc.Requeue(context.Background(), RequeueRequest{
		Type:        "voicemail",
		TaskSid:     "WT333",
		WorkflowSid: "WW111",
		Attributes: map[string]interface{}{
			"taskType":      "voicemail",
			"conversations": map[string]interface{}{"conversation_id": "WT111"},
		},
	})
	require.Equal(t, "success", res.Status)

	var attrs map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(gw.created[0].Attributes), &attrs))
	// The chain keeps pointing at the original task, not the latest hop.
	conv := attrs["conversations"].(map[string]interface{})
	assert.Equal(t, "WT111", conv["conversation_id"])
}

func TestRequeueWithoutRetryCounterDoesNotInventOne(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, zap.NewNop())

	res := svc.Requeue(context.Background(), RequeueRequest{
		Type:        "callback",
		TaskSid:     "WT111",
		WorkflowSid: "WW111",
		Attributes:  map[string]interface{}{"taskType": "callback"},
	})
	require.Equal(t, "success", res.Status)

	var attrs map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(gw.created[0].Attributes), &attrs))
	assert.NotContains(t, attrs, "placeCallRetry")
}

func TestDeleteRecordResources(t *testing.T) {
	gw := &fakeGateway{summary: &taskrouter.TaskSummary{
		TaskSid:    "WT111",
		Attributes: `{"taskType": "voicemail", "recordingSid": "RE1"}`,
	}}
	svc := NewService(gw, zap.NewNop())

	res := svc.DeleteRecordResources(context.Background(), "WT111", "TR1", "RE1")
	assert.Equal(t, "success", res.Status)

	persisted := lastUpdate(t, gw)
	assert.Equal(t, true, persisted["markDeleted"])
	assert.Equal(t, "voicemail", persisted["taskType"])

	assert.Contains(t, gw.ops, "delTrans:TR1")
	assert.Contains(t, gw.ops, "delRec:RE1")
}

func TestDeleteRecordResourcesToleratesPartialFailure(t *testing.T) {
	gw := &fakeGateway{
		summary:     &taskrouter.TaskSummary{TaskSid: "WT111", Attributes: "{}"},
		delTransErr: errors.New("transcription already gone"),
	}
	svc := NewService(gw, zap.NewNop())

	res := svc.DeleteRecordResources(context.Background(), "WT111", "TR1", "RE1")
	// Still a result, and the recording deletion was still attempted.
	require.Equal(t, "success", res.Status)
	outcome := res.Data.(map[string]interface{})
	assert.Equal(t, "error", outcome["delTransStatus"])
	assert.Equal(t, "success", outcome["delRecStatus"])
	assert.Equal(t, true, lastUpdate(t, gw)["markDeleted"])
}

func TestDeleteRecordResourcesToleratesMissingTask(t *testing.T) {
	gw := &fakeGateway{findErr: taskrouter.ErrTaskNotFound}
	svc := NewService(gw, zap.NewNop())

	res := svc.DeleteRecordResources(context.Background(), "WT111", "TR1", "RE1")
	assert.Equal(t, "success", res.Status)
	assert.Contains(t, gw.ops, "delTrans:TR1")
	assert.Contains(t, gw.ops, "delRec:RE1")
}
