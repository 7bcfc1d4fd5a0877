package flow

import (
	"context"
	"net/url"

	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// QueueMenuMode identifies the step of the in-queue menu flow.
type QueueMenuMode int

const (
	// QueueMenuMain greets the caller with wait estimates and gathers the
	// hold-menu trigger digit.
	QueueMenuMain QueueMenuMode = iota
	// QueueMenuMainProcess reacts to the trigger digit and presents the
	// three-option menu.
	QueueMenuMainProcess
	// QueueMenuMenuProcess dispatches the menu selection to the callback or
	// voicemail flow, or loops back to the queue.
	QueueMenuMenuProcess
)

func (m QueueMenuMode) String() string {
	switch m {
	case QueueMenuMain:
		return "main"
	case QueueMenuMainProcess:
		return "mainProcess"
	case QueueMenuMenuProcess:
		return "menuProcess"
	}
	return "unknown"
}

// ParseQueueMenuMode maps the webhook mode parameter onto the enum.
func ParseQueueMenuMode(s string) (QueueMenuMode, error) {
	switch s {
	case "main", "":
		return QueueMenuMain, nil
	case "mainProcess":
		return QueueMenuMainProcess, nil
	case "menuProcess":
		return QueueMenuMenuProcess, nil
	}
	return QueueMenuMain, ErrUnknownMode
}

// QueueMenuInput is one webhook invocation of the queue-menu flow.
type QueueMenuInput struct {
	Mode         QueueMenuMode
	CallSid      string
	TaskSid      string
	Digits       string
	SkipGreeting bool
}

// QueueMenu is the top-level in-queue menu state machine.
type QueueMenu struct {
	gateway taskrouter.Gateway
	stats   StatsProvider
	opts    Options
	log     *zap.Logger
}

// NewQueueMenu wires the queue-menu flow to its collaborators.
func NewQueueMenu(gateway taskrouter.Gateway, stats StatsProvider, opts Options, log *zap.Logger) *QueueMenu {
	return &QueueMenu{gateway: gateway, stats: stats, opts: opts, log: log}
}

// Respond executes one transition of the flow and returns the TwiML verbs for
// the response.
func (f *QueueMenu) Respond(ctx context.Context, in QueueMenuInput) ([]twiml.Element, error) {
	switch in.Mode {
	case QueueMenuMain:
		return f.main(ctx, in), nil
	case QueueMenuMainProcess:
		return f.mainProcess(in), nil
	case QueueMenuMenuProcess:
		return f.menuProcess(in), nil
	}
	return nil, ErrUnknownMode
}

// main announces wait time and queue position when enabled, then gathers one
// digit over hold music and loops back to itself on silence.
func (f *QueueMenu) main(ctx context.Context, in QueueMenuInput) []twiml.Element {
	taskSid := in.TaskSid
	waitMsg := ""
	posMsg := ""

	if f.opts.EstimatedWaitTimeEnabled || f.opts.QueuePositionEnabled {
		id := taskSid
		if id == "" {
			id = in.CallSid
		}
		summary, err := f.gateway.FindTask(ctx, id)
		if err != nil {
			f.log.Warn("queue-menu: task lookup failed",
				zap.String("id", id),
				zap.Error(err))
		} else {
			if taskSid == "" {
				taskSid = summary.TaskSid
			}
			if f.opts.EstimatedWaitTimeEnabled {
				stats, err := f.stats.WorkflowStats(ctx, summary.WorkflowSid, f.opts.StatsWindowMinutes)
				if err != nil {
					f.log.Warn("queue-menu: workflow stats unavailable",
						zap.String("workflow_sid", summary.WorkflowSid),
						zap.Error(err))
				} else {
					waitMsg = "The estimated wait time is " + WaitTimePhrase(stats.AvgWaitMinutes()) + "... ...."
				}
			}
			if f.opts.QueuePositionEnabled {
				pos, err := f.gateway.QueuePosition(ctx, summary)
				if err != nil {
					f.log.Warn("queue-menu: queue position unavailable",
						zap.String("task_sid", summary.TaskSid),
						zap.Error(err))
				} else {
					posMsg = QueuePositionPhrase(pos) + " "
				}
			}
		}
	}

	var elements []twiml.Element
	if !in.SkipGreeting {
		greeting := waitMsg + posMsg +
			"...Please wait while we direct your call to the next available specialist..."
		elements = append(elements, f.opts.say(greeting))
	}

	gather := &twiml.VoiceGather{
		Input:   "dtmf",
		Timeout: "2",
		Action:  f.opts.route(PathQueueMenu, "mainProcess", taskSid, nil),
		InnerElements: []twiml.Element{
			f.opts.say("To listen to a menu of options while on hold, press 1 at anytime."),
			&twiml.VoicePlay{Url: f.opts.absolute(f.opts.HoldMusicURL)},
		},
	}
	elements = append(elements, gather,
		&twiml.VoiceRedirect{Url: f.opts.route(PathQueueMenu, "main", taskSid, nil)})
	return elements
}

// mainProcess presents the three-option menu when the caller pressed 1, and
// otherwise apologizes and loops back to the queue without repeating the
// greeting.
func (f *QueueMenu) mainProcess(in QueueMenuInput) []twiml.Element {
	if in.Digits != "1" {
		return []twiml.Element{
			f.opts.say("I did not understand your selection."),
			&twiml.VoiceRedirect{Url: f.opts.route(PathQueueMenu, "main", in.TaskSid,
				url.Values{"skipGreeting": {"true"}})},
		}
	}

	message := "The following options are available..." +
		"Press 1 to remain on hold..." +
		"Press 2 to request a callback..." +
		"Press 3 to leave a voicemail message for the care team..." +
		"Press the star key to listen to these options again..."

	gather := &twiml.VoiceGather{
		Input:   "dtmf",
		Timeout: "1",
		Action:  f.opts.route(PathQueueMenu, "menuProcess", in.TaskSid, nil),
		InnerElements: []twiml.Element{
			f.opts.say(message),
			&twiml.VoicePlay{Url: f.opts.absolute(f.opts.HoldMusicURL)},
		},
	}
	return []twiml.Element{gather,
		&twiml.VoiceRedirect{Url: f.opts.route(PathQueueMenu, "main", in.TaskSid, nil)}}
}

// menuProcess routes the menu selection: 1 stay in queue, 2 callback flow,
// 3 voicemail flow, * replay the menu. Anything else replays the menu after
// an apology.
func (f *QueueMenu) menuProcess(in QueueMenuInput) []twiml.Element {
	replay := f.opts.route(PathQueueMenu, "mainProcess", in.TaskSid, url.Values{"Digits": {"1"}})

	switch in.Digits {
	case "1":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathQueueMenu, "main", in.TaskSid, url.Values{"skipGreeting": {"true"}}),
		}}
	case "2":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathCallback, "main", in.TaskSid, nil),
		}}
	case "3":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathVoicemail, "pre-process", in.TaskSid, nil),
		}}
	case "*":
		return []twiml.Element{&twiml.VoiceRedirect{Url: replay}}
	default:
		return []twiml.Element{
			f.opts.say("I did not understand your selection."),
			&twiml.VoiceRedirect{Url: replay},
		}
	}
}
