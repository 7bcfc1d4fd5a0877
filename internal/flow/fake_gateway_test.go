package flow

import (
	"context"
	"fmt"

	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
)

// fakeGateway records every gateway effect in order so tests can assert both
// what happened and in which sequence.
type fakeGateway struct {
	summary *taskrouter.TaskSummary
	findErr error

	position int
	posErr   error

	createdSid string
	createErr  error
	created    []taskrouter.CreateTaskParams

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
	f.ops = append(f.ops, fmt.Sprintf("cancel:%s:%s", taskSid, reason))
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) CompleteTask(ctx context.Context, taskSid, reason string) taskrouter.BestEffort {
	f.ops = append(f.ops, fmt.Sprintf("complete:%s:%s", taskSid, reason))
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) CreateTask(ctx context.Context, p taskrouter.CreateTaskParams) (string, taskrouter.BestEffort) {
	f.ops = append(f.ops, "create:"+p.Channel)
	f.created = append(f.created, p)
	if f.createErr != nil {
		return "", taskrouter.BestEffort{Err: f.createErr}
	}
	return f.createdSid, taskrouter.BestEffort{}
}

func (f *fakeGateway) UpdateTaskAttributes(ctx context.Context, taskSid, attributes string) taskrouter.BestEffort {
	f.ops = append(f.ops, "update:"+taskSid)
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) QueuePosition(ctx context.Context, t *taskrouter.TaskSummary) (int, error) {
	f.ops = append(f.ops, "position:"+t.TaskSid)
	return f.position, f.posErr
}

func (f *fakeGateway) WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*taskrouter.WaitStats, error) {
	f.ops = append(f.ops, "stats:"+workflowSid)
	return &taskrouter.WaitStats{}, nil
}

func (f *fakeGateway) RedirectCall(ctx context.Context, callSid, url string) taskrouter.BestEffort {
	f.ops = append(f.ops, fmt.Sprintf("redirect:%s:%s", callSid, url))
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) DeleteRecording(ctx context.Context, recordingSid string) taskrouter.BestEffort {
	f.ops = append(f.ops, "delRec:"+recordingSid)
	return taskrouter.BestEffort{}
}

func (f *fakeGateway) DeleteTranscription(ctx context.Context, transcriptionSid string) taskrouter.BestEffort {
	f.ops = append(f.ops, "delTrans:"+transcriptionSid)
	return taskrouter.BestEffort{}
}

// fakeStats is a canned StatsProvider.
type fakeStats struct {
	stats *taskrouter.WaitStats
	err   error
}

func (f *fakeStats) WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*taskrouter.WaitStats, error) {
	return f.stats, f.err
}
