package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cxkit/inqueue-voice-service/internal/services/agentops"
	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// Agent-desktop operation modes multiplexed on the /inqueue-utils endpoint.
const (
	modeUIPlugin              = "UiPlugin"
	modeRequeueTasks          = "requeueTasks"
	modeDeleteRecordResources = "deleteRecordResources"
)

// UtilsHandler serves /inqueue-utils, the JSON endpoint the agent desktop
// calls to toggle UI flags, re-queue tasks and clean up voicemail media.
type UtilsHandler struct {
	service *agentops.Service
}

// NewUtilsHandler creates the agent utilities handler.
func NewUtilsHandler(service *agentops.Service) *UtilsHandler {
	return &UtilsHandler{service: service}
}

type utilsRequest struct {
	Mode          string                 `json:"mode"`
	Type          string                 `json:"type"`
	TaskSid       string                 `json:"taskSid"`
	WorkflowSid   string                 `json:"workflowSid"`
	State         bool                   `json:"state"`
	Attributes    map[string]interface{} `json:"attributes"`
	TranscriptSid string                 `json:"transcriptSid"`
	RecordingSid  string                 `json:"recordingSid"`
}

// Handle dispatches one agent operation by its mode field.
func (h *UtilsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req utilsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Base().Warn("inqueue-utils: bad request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest,
			agentops.Result{Status: "error", Type: "request", Data: "invalid request body"})
		return
	}

	ctx := r.Context()
	switch req.Mode {
	case modeUIPlugin:
		res := h.service.SetUIPluginFlags(ctx, req.Type, req.TaskSid, req.Attributes, req.State)
		writeJSON(w, http.StatusOK, res)
	case modeRequeueTasks:
		res := h.service.Requeue(ctx, agentops.RequeueRequest{
			Type:        req.Type,
			TaskSid:     req.TaskSid,
			WorkflowSid: req.WorkflowSid,
			State:       req.State,
			Attributes:  req.Attributes,
		})
		writeJSON(w, http.StatusOK, res)
	case modeDeleteRecordResources:
		res := h.service.DeleteRecordResources(ctx, req.TaskSid, req.TranscriptSid, req.RecordingSid)
		writeJSON(w, http.StatusOK, res)
	default:
		logger.Base().Warn("inqueue-utils: unknown mode", zap.String("mode", req.Mode))
		writeJSON(w, http.StatusBadRequest,
			agentops.Result{Status: "error", Type: "mode", Data: "unknown mode"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Base().Error("inqueue-utils: encode response failed", zap.Error(err))
	}
}
