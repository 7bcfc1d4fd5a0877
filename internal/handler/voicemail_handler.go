package handler

import (
	"net/http"

	"github.com/cxkit/inqueue-voice-service/internal/flow"
	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// VoicemailHandler serves the /inqueue-voicemail webhook, including the
// asynchronous transcription callback that creates the voicemail task.
type VoicemailHandler struct {
	flow *flow.Voicemail
}

// NewVoicemailHandler creates the voicemail webhook handler.
func NewVoicemailHandler(f *flow.Voicemail) *VoicemailHandler {
	return &VoicemailHandler{flow: f}
}

// Handle responds to one voicemail-flow webhook invocation.
func (h *VoicemailHandler) Handle(w http.ResponseWriter, r *http.Request) {
	mode, err := flow.ParseVoicemailMode(r.FormValue("mode"))
	if err != nil {
		logger.Base().Warn("voicemail: unknown mode, re-entering pre-process",
			zap.String("mode", r.FormValue("mode")))
	}

	in := flow.VoicemailInput{
		Mode:                mode,
		CallSid:             r.FormValue("CallSid"),
		TaskSid:             r.FormValue("taskSid"),
		Caller:              r.FormValue("Caller"),
		Called:              r.FormValue("Called"),
		RecordingURL:        r.FormValue("RecordingUrl"),
		RecordingSid:        r.FormValue("RecordingSid"),
		TranscriptionSid:    r.FormValue("TranscriptionSid"),
		TranscriptionText:   r.FormValue("TranscriptionText"),
		TranscriptionStatus: r.FormValue("TranscriptionStatus"),
	}

	elements, err := h.flow.Respond(r.Context(), in)
	if err != nil {
		logger.Base().Error("voicemail: flow failed", zap.Error(err))
	}
	writeTwiML(w, elements)
}
