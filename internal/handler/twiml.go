package handler

import (
	"net/http"

	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// writeTwiML renders the verbs into a voice response document. A nil element
// slice produces an empty <Response/>, which the platform treats as "no
// further instructions".
func writeTwiML(w http.ResponseWriter, elements []twiml.Element) {
	doc, err := twiml.Voice(elements)
	if err != nil {
		logger.Base().Error("twiml render failed", zap.Error(err))
		http.Error(w, "twiml render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(doc))
}
