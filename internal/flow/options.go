// Package flow implements the caller-facing voice state machines: the
// in-queue menu, the callback request flow and the voicemail flow. Each flow
// is a typed mode enum plus a transition that turns one webhook invocation
// into TwiML verbs and task-gateway effects. The service is stateless between
// requests; the resolved task sid is threaded through every redirect URL.
package flow

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/twilio/twilio-go/twiml"
)

// ErrUnknownMode is returned when a webhook arrives with a mode value no flow
// defines. Handlers fall back to the flow's entry mode instead of leaving the
// call without a response.
var ErrUnknownMode = errors.New("flow: unknown mode")

// Webhook paths, shared between route registration and redirect URLs.
const (
	PathQueueMenu = "/queue-menu"
	PathCallback  = "/inqueue-callback"
	PathVoicemail = "/inqueue-voicemail"
)

// StatsProvider yields workflow wait statistics for the estimated-wait-time
// announcement. The task gateway satisfies it directly; a cache can wrap it.
type StatsProvider interface {
	WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*taskrouter.WaitStats, error)
}

// Options carries the per-environment tuning of the voice flows.
type Options struct {
	// BaseURL is the public https origin action and redirect URLs are built
	// on, without a trailing slash.
	BaseURL string

	Voice    string
	Language string

	// HoldMusicURL is a path under BaseURL, or an absolute URL.
	HoldMusicURL string

	EstimatedWaitTimeEnabled bool
	StatsWindowMinutes       int
	QueuePositionEnabled     bool

	CallbackPriority  int
	VoicemailPriority int

	CallbackAlertTone  string
	VoicemailAlertTone string

	TimeZone string

	// Now is the clock used for callTime stamps; nil means time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// say builds a Say verb with the configured TTS voice.
func (o Options) say(message string) *twiml.VoiceSay {
	return &twiml.VoiceSay{
		Message:  message,
		Voice:    o.Voice,
		Language: o.Language,
	}
}

// absolute resolves an asset path against BaseURL, passing absolute URLs
// through untouched.
func (o Options) absolute(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	return o.BaseURL + path
}

// route builds a webhook URL carrying the mode, the threaded task sid when
// known, and any extra parameters.
func (o Options) route(path, mode, taskSid string, extra url.Values) string {
	q := url.Values{}
	q.Set("mode", mode)
	if taskSid != "" {
		q.Set("taskSid", taskSid)
	}
	for key, vals := range extra {
		for _, v := range vals {
			q.Add(key, v)
		}
	}
	return o.BaseURL + path + "?" + q.Encode()
}
