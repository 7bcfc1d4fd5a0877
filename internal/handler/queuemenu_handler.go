package handler

import (
	"net/http"

	"github.com/cxkit/inqueue-voice-service/internal/flow"
	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// QueueMenuHandler serves the /queue-menu webhook: the top-level in-queue
// menu the voice platform polls while the caller holds.
type QueueMenuHandler struct {
	flow *flow.QueueMenu
}

// NewQueueMenuHandler creates the queue-menu webhook handler.
func NewQueueMenuHandler(f *flow.QueueMenu) *QueueMenuHandler {
	return &QueueMenuHandler{flow: f}
}

// Handle responds to one queue-menu webhook invocation.
func (h *QueueMenuHandler) Handle(w http.ResponseWriter, r *http.Request) {
	mode, err := flow.ParseQueueMenuMode(r.FormValue("mode"))
	if err != nil {
		// The platform default would leave the call hanging; re-enter the
		// menu instead.
		logger.Base().Warn("queue-menu: unknown mode, re-entering main",
			zap.String("mode", r.FormValue("mode")))
	}

	in := flow.QueueMenuInput{
		Mode:         mode,
		CallSid:      r.FormValue("CallSid"),
		TaskSid:      r.FormValue("taskSid"),
		Digits:       r.FormValue("Digits"),
		SkipGreeting: r.FormValue("skipGreeting") == "true",
	}

	elements, err := h.flow.Respond(r.Context(), in)
	if err != nil {
		logger.Base().Error("queue-menu: flow failed", zap.Error(err))
	}
	writeTwiML(w, elements)
}
