// Package agentops implements the agent-facing task mutations behind the
// /inqueue-utils endpoint: UI button-flag toggles, task re-queueing and
// voicemail media cleanup. Attributes are handled as raw JSON maps so keys
// this service does not know about survive the read-modify-write.
package agentops

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"go.uber.org/zap"
)

// Requeued successor tasks always re-enter routing at this priority.
const requeuePriority = 50

// Result is the JSON status envelope returned to the agent desktop.
type Result struct {
	Status string      `json:"status"`
	Type   string      `json:"type"`
	Data   interface{} `json:"data,omitempty"`
}

// Service executes agent-initiated task mutations against the task gateway.
type Service struct {
	gateway taskrouter.Gateway
	log     *zap.Logger
}

// NewService wires the agent operations to the task gateway.
func NewService(gateway taskrouter.Gateway, log *zap.Logger) *Service {
	return &Service{gateway: gateway, log: log}
}

// SetUIPluginFlags flips the ui_plugin booleans the agent desktop reads.
// Callback tasks carry one flag; voicemail tasks carry the call-button flag
// and its inverse on the record button. The passed attributes map is mutated
// in place and persisted.
func (s *Service) SetUIPluginFlags(ctx context.Context, taskType, taskSid string, attributes map[string]interface{}, state bool) Result {
	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	uiPlugin, ok := attributes["ui_plugin"].(map[string]interface{})
	if !ok {
		uiPlugin = map[string]interface{}{}
		attributes["ui_plugin"] = uiPlugin
	}

	switch taskType {
	case taskrouter.TaskTypeCallback:
		uiPlugin["cbCallButtonAccessibility"] = state
	case taskrouter.TaskTypeVoicemail:
		uiPlugin["vmCallButtonAccessibility"] = state
		uiPlugin["vmRecordButtonAccessibility"] = !state
	default:
		return Result{Status: "error", Type: "cbUpdateAttr",
			Data: fmt.Sprintf("unknown task type %q", taskType)}
	}

	encoded, err := json.Marshal(attributes)
	if err != nil {
		s.log.Error("ui plugin update: encode attributes failed",
			zap.String("task_sid", taskSid), zap.Error(err))
		return Result{Status: "error", Type: "cbUpdateAttr", Data: err.Error()}
	}
	if res := s.gateway.UpdateTaskAttributes(ctx, taskSid, string(encoded)); !res.OK() {
		return Result{Status: "error", Type: "cbUpdateAttr", Data: res.Err.Error()}
	}
	return Result{Status: "success", Type: "cbUpdateAttr"}
}

// RequeueRequest describes an agent-initiated re-queue of a callback or
// voicemail task.
type RequeueRequest struct {
	Type        string
	TaskSid     string
	WorkflowSid string
	State       bool
	Attributes  map[string]interface{}
}

// Requeue creates a successor task from the original's attributes and
// completes the original. Ordering matters: UI flags are reset first, the
// successor is created second and the original is completed last, so the
// agent desktop never observes a window where neither task is actionable.
func (s *Service) Requeue(ctx context.Context, req RequeueRequest) Result {
	attrs := req.Attributes
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	// Carry the retry counter onto the successor.
	if retry, ok := intAttribute(attrs, "placeCallRetry"); ok {
		attrs["placeCallRetry"] = retry + 1
	}
	// Chain the successor to the original for reporting.
	if _, ok := attrs["conversations"]; !ok {
		attrs["conversations"] = map[string]interface{}{"conversation_id": req.TaskSid}
	}

	if res := s.SetUIPluginFlags(ctx, req.Type, req.TaskSid, attrs, req.State); res.Status != "success" {
		s.log.Warn("requeue: ui flag reset failed, continuing",
			zap.String("task_sid", req.TaskSid))
	}

	encoded, err := json.Marshal(attrs)
	if err != nil {
		s.log.Error("requeue: encode attributes failed",
			zap.String("task_sid", req.TaskSid), zap.Error(err))
		return Result{Status: "error", Type: "requeueTasks", Data: err.Error()}
	}

	channel, _ := attrs["taskType"].(string)
	newSid, created := s.gateway.CreateTask(ctx, taskrouter.CreateTaskParams{
		Channel:     channel,
		Priority:    requeuePriority,
		WorkflowSid: req.WorkflowSid,
		Attributes:  string(encoded),
	})
	if !created.OK() {
		return Result{Status: "error", Type: "requeueTasks", Data: created.Err.Error()}
	}

	if res := s.gateway.CompleteTask(ctx, req.TaskSid, "task transferred"); !res.OK() {
		return Result{Status: "error", Type: "requeueTasks", Data: res.Err.Error()}
	}
	return Result{Status: "success", Type: "requeueTasks",
		Data: map[string]interface{}{"newTaskSid": newSid}}
}

// DeleteRecordResources marks the task's attributes deleted and removes the
// transcription and recording media at the provider. The two deletions are
// independent; a failure in one never blocks the other, and the handler
// always returns a result.
func (s *Service) DeleteRecordResources(ctx context.Context, taskSid, transcriptionSid, recordingSid string) Result {
	attrs := map[string]interface{}{}
	summary, err := s.gateway.FindTask(ctx, taskSid)
	if err != nil {
		s.log.Error("delete resources: task lookup failed",
			zap.String("task_sid", taskSid), zap.Error(err))
	} else if summary.Attributes != "" {
		if err := json.Unmarshal([]byte(summary.Attributes), &attrs); err != nil {
			s.log.Warn("delete resources: unreadable attributes",
				zap.String("task_sid", taskSid), zap.Error(err))
			attrs = map[string]interface{}{}
		}
	}

	if _, ok := attrs["markDeleted"]; !ok {
		attrs["markDeleted"] = true
	}
	if encoded, err := json.Marshal(attrs); err == nil {
		s.gateway.UpdateTaskAttributes(ctx, taskSid, string(encoded))
	}

	outcome := map[string]interface{}{}
	trans := s.gateway.DeleteTranscription(ctx, transcriptionSid)
	if trans.OK() {
		outcome["delTransStatus"] = "success"
	} else {
		outcome["delTransStatus"] = "error"
	}
	rec := s.gateway.DeleteRecording(ctx, recordingSid)
	if rec.OK() {
		outcome["delRecStatus"] = "success"
	} else {
		outcome["delRecStatus"] = "error"
	}

	return Result{Status: "success", Type: "updateAttr", Data: outcome}
}

// intAttribute reads a numeric attribute that may arrive as a JSON number or
// a string.
func intAttribute(attrs map[string]interface{}, key string) (int, bool) {
	switch v := attrs[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}
