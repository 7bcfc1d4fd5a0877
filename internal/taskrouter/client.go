package taskrouter

import (
	"context"
	"fmt"
	"strings"

	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"github.com/twilio/twilio-go"
	voiceapi "github.com/twilio/twilio-go/rest/api/v2010"
	troapi "github.com/twilio/twilio-go/rest/taskrouter/v1"
	"go.uber.org/zap"
)

const (
	callSidPrefix = "CA"

	// The provider caps attribute searches; anything deeper than this in the
	// queue is reported as position -1.
	taskListLimit = 20
)

// Client is the Twilio-backed Gateway implementation. Construct one per
// server with explicit credentials; never hold it as ambient global state.
type Client struct {
	rest         *twilio.RestClient
	workspaceSid string
	log          *zap.Logger
}

// NewClient creates a Gateway over the Twilio REST API for one workspace.
func NewClient(accountSid, authToken, workspaceSid string) (*Client, error) {
	if accountSid == "" || authToken == "" {
		return nil, fmt.Errorf("taskrouter: account sid and auth token are required")
	}
	if workspaceSid == "" {
		return nil, fmt.Errorf("taskrouter: workspace sid is required")
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &Client{rest: rest, workspaceSid: workspaceSid, log: logger.Base()}, nil
}

var _ Gateway = (*Client)(nil)

// FindTask resolves a task by sid, or by the correlated call sid via an
// attribute search when the id has the call-identifier shape.
func (c *Client) FindTask(ctx context.Context, id string) (*TaskSummary, error) {
	if id == "" {
		return nil, ErrTaskNotFound
	}

	if strings.HasPrefix(id, callSidPrefix) {
		params := &troapi.ListTaskParams{}
		params.SetEvaluateTaskAttributes(fmt.Sprintf("call_sid = '%s'", id))
		params.SetLimit(taskListLimit)
		tasks, err := c.rest.TaskrouterV1.ListTask(c.workspaceSid, params)
		if err != nil {
			return nil, fmt.Errorf("list tasks by call sid: %w", err)
		}
		if len(tasks) == 0 {
			return nil, ErrTaskNotFound
		}
		return c.summarize(&tasks[0]), nil
	}

	task, err := c.rest.TaskrouterV1.FetchTask(c.workspaceSid, id)
	if err != nil {
		return nil, fmt.Errorf("fetch task %s: %w", id, err)
	}
	return c.summarize(task), nil
}

func (c *Client) summarize(t *troapi.TaskrouterV1Task) *TaskSummary {
	s := &TaskSummary{WorkspaceSid: c.workspaceSid}
	if t.Sid != nil {
		s.TaskSid = *t.Sid
	}
	if t.TaskQueueSid != nil {
		s.TaskQueueSid = *t.TaskQueueSid
	}
	if t.TaskQueueFriendlyName != nil {
		s.TaskQueueName = *t.TaskQueueFriendlyName
	}
	if t.WorkflowSid != nil {
		s.WorkflowSid = *t.WorkflowSid
	}
	if t.Attributes != nil {
		s.Attributes = *t.Attributes
	}
	return s
}

// CancelTask sets the task's assignment status to canceled. Failures are
// logged and carried in the result; the voice flows proceed regardless.
func (c *Client) CancelTask(ctx context.Context, taskSid, reason string) BestEffort {
	params := &troapi.UpdateTaskParams{}
	params.SetAssignmentStatus("canceled")
	params.SetReason(reason)
	if _, err := c.rest.TaskrouterV1.UpdateTask(c.workspaceSid, taskSid, params); err != nil {
		c.log.Error("cancel task failed",
			zap.String("task_sid", taskSid),
			zap.String("reason", reason),
			zap.Error(err))
		return BestEffort{Err: err}
	}
	return BestEffort{}
}

// CompleteTask marks the task completed; used when re-queueing.
func (c *Client) CompleteTask(ctx context.Context, taskSid, reason string) BestEffort {
	params := &troapi.UpdateTaskParams{}
	params.SetAssignmentStatus("completed")
	params.SetReason(reason)
	if _, err := c.rest.TaskrouterV1.UpdateTask(c.workspaceSid, taskSid, params); err != nil {
		c.log.Error("complete task failed",
			zap.String("task_sid", taskSid),
			zap.String("reason", reason),
			zap.Error(err))
		return BestEffort{Err: err}
	}
	return BestEffort{}
}

// CreateTask creates a task on the given workflow and returns its sid.
func (c *Client) CreateTask(ctx context.Context, p CreateTaskParams) (string, BestEffort) {
	params := &troapi.CreateTaskParams{}
	params.SetTaskChannel(p.Channel)
	params.SetPriority(p.Priority)
	params.SetWorkflowSid(p.WorkflowSid)
	params.SetAttributes(p.Attributes)

	task, err := c.rest.TaskrouterV1.CreateTask(c.workspaceSid, params)
	if err != nil {
		c.log.Error("create task failed",
			zap.String("channel", p.Channel),
			zap.String("workflow_sid", p.WorkflowSid),
			zap.Error(err))
		return "", BestEffort{Err: err}
	}
	sid := ""
	if task.Sid != nil {
		sid = *task.Sid
	}
	return sid, BestEffort{}
}

// UpdateTaskAttributes replaces the task's attributes JSON. Last writer wins.
func (c *Client) UpdateTaskAttributes(ctx context.Context, taskSid, attributes string) BestEffort {
	params := &troapi.UpdateTaskParams{}
	params.SetAttributes(attributes)
	if _, err := c.rest.TaskrouterV1.UpdateTask(c.workspaceSid, taskSid, params); err != nil {
		c.log.Error("update task attributes failed",
			zap.String("task_sid", taskSid),
			zap.Error(err))
		return BestEffort{Err: err}
	}
	return BestEffort{}
}

// QueuePosition lists the assignable tasks of the task's queue in routing
// order and returns the index of this task, or -1 when it is not among the
// first 20.
func (c *Client) QueuePosition(ctx context.Context, t *TaskSummary) (int, error) {
	params := &troapi.ListTaskParams{}
	params.SetAssignmentStatus([]string{"pending", "reserved"})
	params.SetTaskQueueName(t.TaskQueueName)
	params.SetOrdering("DateCreated:asc,Priority:desc")
	params.SetLimit(taskListLimit)

	tasks, err := c.rest.TaskrouterV1.ListTask(c.workspaceSid, params)
	if err != nil {
		return -1, fmt.Errorf("list queue tasks: %w", err)
	}
	for i := range tasks {
		if tasks[i].Sid != nil && *tasks[i].Sid == t.TaskSid {
			return i, nil
		}
	}
	return -1, nil
}

// WorkflowStats fetches cumulative wait-until-accepted statistics for the
// workflow over the trailing window.
func (c *Client) WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*WaitStats, error) {
	params := &troapi.FetchWorkflowCumulativeStatisticsParams{}
	params.SetMinutes(windowMinutes)

	resp, err := c.rest.TaskrouterV1.FetchWorkflowCumulativeStatistics(c.workspaceSid, workflowSid, params)
	if err != nil {
		return nil, fmt.Errorf("fetch workflow statistics: %w", err)
	}
	if resp.WaitDurationUntilAccepted == nil {
		return nil, fmt.Errorf("workflow statistics missing wait duration")
	}
	m, ok := (*resp.WaitDurationUntilAccepted).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected wait duration shape %T", *resp.WaitDurationUntilAccepted)
	}
	return &WaitStats{
		MinSeconds: statNumber(m, "min"),
		AvgSeconds: statNumber(m, "avg"),
		MaxSeconds: statNumber(m, "max"),
	}, nil
}

func statNumber(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

// RedirectCall points an in-progress call leg at a new webhook URL.
func (c *Client) RedirectCall(ctx context.Context, callSid, url string) BestEffort {
	params := &voiceapi.UpdateCallParams{}
	params.SetUrl(url)
	params.SetMethod("POST")
	if _, err := c.rest.Api.UpdateCall(callSid, params); err != nil {
		c.log.Error("redirect call failed",
			zap.String("call_sid", callSid),
			zap.String("url", url),
			zap.Error(err))
		return BestEffort{Err: err}
	}
	return BestEffort{}
}

// DeleteRecording removes the call-recording media resource.
func (c *Client) DeleteRecording(ctx context.Context, recordingSid string) BestEffort {
	if err := c.rest.Api.DeleteRecording(recordingSid, &voiceapi.DeleteRecordingParams{}); err != nil {
		c.log.Error("delete recording failed", zap.String("recording_sid", recordingSid), zap.Error(err))
		return BestEffort{Err: err}
	}
	return BestEffort{}
}

// DeleteTranscription removes the transcription resource.
func (c *Client) DeleteTranscription(ctx context.Context, transcriptionSid string) BestEffort {
	if err := c.rest.Api.DeleteTranscription(transcriptionSid, &voiceapi.DeleteTranscriptionParams{}); err != nil {
		c.log.Error("delete transcription failed", zap.String("transcription_sid", transcriptionSid), zap.Error(err))
		return BestEffort{Err: err}
	}
	return BestEffort{}
}
