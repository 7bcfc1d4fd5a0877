package handler

import (
	"net/http"

	"github.com/cxkit/inqueue-voice-service/internal/flow"
	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// CallbackHandler serves the /inqueue-callback webhook: number confirmation,
// new-number capture and callback task submission.
type CallbackHandler struct {
	flow *flow.Callback
}

// NewCallbackHandler creates the callback webhook handler.
func NewCallbackHandler(f *flow.Callback) *CallbackHandler {
	return &CallbackHandler{flow: f}
}

// Handle responds to one callback-flow webhook invocation.
func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	mode, err := flow.ParseCallbackMode(r.FormValue("mode"))
	if err != nil {
		logger.Base().Warn("callback: unknown mode, re-entering main",
			zap.String("mode", r.FormValue("mode")))
	}

	in := flow.CallbackInput{
		Mode:           mode,
		CallSid:        r.FormValue("CallSid"),
		TaskSid:        r.FormValue("taskSid"),
		Digits:         r.FormValue("Digits"),
		From:           r.FormValue("From"),
		CallbackNumber: r.FormValue("cbphone"),
	}

	elements, err := h.flow.Respond(r.Context(), in)
	if err != nil {
		logger.Base().Error("callback: flow failed", zap.Error(err))
	}
	writeTwiML(w, elements)
}
