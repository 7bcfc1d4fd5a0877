package flow

import (
	"context"
	"net/url"

	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// CallbackMode identifies the step of the callback request flow.
type CallbackMode int

const (
	// CallbackMain confirms the calling number and offers entering another.
	CallbackMain CallbackMode = iota
	// CallbackMainProcess reacts to the confirmation digit.
	CallbackMainProcess
	// CallbackNewNumber reads back a freshly entered number for confirmation.
	CallbackNewNumber
	// CallbackNewNumberProcess reacts to the new-number confirmation digit.
	CallbackNewNumberProcess
	// CallbackSubmit cancels the original task and creates the callback task.
	CallbackSubmit
)

func (m CallbackMode) String() string {
	switch m {
	case CallbackMain:
		return "main"
	case CallbackMainProcess:
		return "mainProcess"
	case CallbackNewNumber:
		return "newNumber"
	case CallbackNewNumberProcess:
		return "newNumberProcess"
	case CallbackSubmit:
		return "submitCallback"
	}
	return "unknown"
}

// ParseCallbackMode maps the webhook mode parameter onto the enum.
func ParseCallbackMode(s string) (CallbackMode, error) {
	switch s {
	case "main", "":
		return CallbackMain, nil
	case "mainProcess":
		return CallbackMainProcess, nil
	case "newNumber":
		return CallbackNewNumber, nil
	case "newNumberProcess":
		return CallbackNewNumberProcess, nil
	case "submitCallback":
		return CallbackSubmit, nil
	}
	return CallbackMain, ErrUnknownMode
}

// CallbackInput is one webhook invocation of the callback flow.
type CallbackInput struct {
	Mode    CallbackMode
	CallSid string
	TaskSid string
	Digits  string
	// From is the caller's number as reported by the voice platform.
	From string
	// CallbackNumber is the confirmed target number threaded through the
	// flow as the cbphone parameter.
	CallbackNumber string
}

// Callback is the callback request state machine.
type Callback struct {
	gateway taskrouter.Gateway
	opts    Options
	log     *zap.Logger
}

// NewCallback wires the callback flow to its collaborators.
func NewCallback(gateway taskrouter.Gateway, opts Options, log *zap.Logger) *Callback {
	return &Callback{gateway: gateway, opts: opts, log: log}
}

// Respond executes one transition of the flow.
func (f *Callback) Respond(ctx context.Context, in CallbackInput) ([]twiml.Element, error) {
	switch in.Mode {
	case CallbackMain:
		return f.main(in), nil
	case CallbackMainProcess:
		return f.mainProcess(in), nil
	case CallbackNewNumber:
		return f.newNumber(in), nil
	case CallbackNewNumberProcess:
		return f.newNumberProcess(in), nil
	case CallbackSubmit:
		return f.submit(ctx, in), nil
	}
	return nil, ErrUnknownMode
}

// main confirms the number the caller dialed in from.
func (f *Callback) main(in CallbackInput) []twiml.Element {
	message := "You have requested a callback at " + FormatPhoneForSpeech(in.From) + "..." +
		"If this is correct, press 1..." +
		"Press 2 to be called at different number"

	gather := &twiml.VoiceGather{
		Input:   "dtmf",
		Timeout: "2",
		Action: f.opts.route(PathCallback, "mainProcess", in.TaskSid, url.Values{
			"CallSid": {in.CallSid},
			"cbphone": {in.From},
		}),
		InnerElements: []twiml.Element{f.opts.say(message)},
	}
	// Silence returns the caller to the hold queue instead of disconnecting.
	return []twiml.Element{gather,
		&twiml.VoiceRedirect{Url: f.opts.route(PathQueueMenu, "main", in.TaskSid, nil)}}
}

// mainProcess forwards to submission with the confirmed number, or starts
// new-number capture.
func (f *Callback) mainProcess(in CallbackInput) []twiml.Element {
	switch in.Digits {
	case "1":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathCallback, "submitCallback", in.TaskSid, url.Values{
				"CallSid": {in.CallSid},
				"cbphone": {in.CallbackNumber},
			}),
		}}
	case "2":
		message := "Using your keypad, enter in your phone number..." +
			"Press the pound sign when you are done..."
		gather := &twiml.VoiceGather{
			Input:       "dtmf",
			Timeout:     "10",
			FinishOnKey: "#",
			Action: f.opts.route(PathCallback, "newNumber", in.TaskSid, url.Values{
				"CallSid": {in.CallSid},
			}),
			InnerElements: []twiml.Element{f.opts.say(message)},
		}
		return []twiml.Element{gather,
			&twiml.VoiceRedirect{Url: f.opts.route(PathCallback, "main", in.TaskSid, nil)}}
	case "*":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathCallback, "main", in.TaskSid, url.Values{
				"skipGreeting": {"true"},
				"CallSid":      {in.CallSid},
			}),
		}}
	default:
		return []twiml.Element{
			f.opts.say("I did not understand your selection."),
			&twiml.VoiceRedirect{Url: f.opts.route(PathCallback, "main", in.TaskSid, nil)},
		}
	}
}

// newNumber reads the gathered digits back for confirmation.
func (f *Callback) newNumber(in CallbackInput) []twiml.Element {
	message := "You entered " + FormatPhoneForSpeech(in.Digits) + " ..." +
		"Press 1 if this is correct..." +
		"Press 2 to re-enter your number" +
		"Press the star key to return to the main menu"

	gather := &twiml.VoiceGather{
		Input:       "dtmf",
		Timeout:     "5",
		FinishOnKey: "#",
		Action: f.opts.route(PathCallback, "newNumberProcess", in.TaskSid, url.Values{
			"CallSid": {in.CallSid},
			"cbphone": {in.Digits},
		}),
		InnerElements: []twiml.Element{f.opts.say(message)},
	}
	return []twiml.Element{gather,
		&twiml.VoiceRedirect{Url: f.opts.route(PathCallback, "main", in.TaskSid, nil)}}
}

// newNumberProcess confirms, re-enters, or bails back to the queue menu.
func (f *Callback) newNumberProcess(in CallbackInput) []twiml.Element {
	switch in.Digits {
	case "1":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathCallback, "submitCallback", in.TaskSid, url.Values{
				"CallSid": {in.CallSid},
				"cbphone": {in.CallbackNumber},
			}),
		}}
	case "2":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathCallback, "mainProcess", in.TaskSid, url.Values{
				"CallSid": {in.CallSid},
				"Digits":  {"2"},
			}),
		}}
	case "*":
		return []twiml.Element{&twiml.VoiceRedirect{
			Url: f.opts.route(PathQueueMenu, "main", in.TaskSid, url.Values{
				"skipGreeting": {"true"},
			}),
		}}
	default:
		return []twiml.Element{
			f.opts.say("I did not understand your selection."),
			&twiml.VoiceRedirect{Url: f.opts.route(PathCallback, "main", in.TaskSid, nil)},
		}
	}
}

// submit cancels the originating task and creates the callback task, then
// confirms and hangs up. Gateway failures are logged; the caller always hears
// the confirmation rather than dead air.
func (f *Callback) submit(ctx context.Context, in CallbackInput) []twiml.Element {
	id := in.TaskSid
	if id == "" {
		id = in.CallSid
	}
	summary, err := f.gateway.FindTask(ctx, id)
	if err != nil {
		f.log.Error("callback submit: task lookup failed",
			zap.String("id", id),
			zap.Error(err))
	} else {
		f.gateway.CancelTask(ctx, summary.TaskSid, "Callback Requested")
		f.createCallbackTask(ctx, in, summary)
	}

	return []twiml.Element{
		f.opts.say("Your callback request has been delivered..."),
		f.opts.say("An available care specialist will reach out to contact you..."),
		f.opts.say("Thank you for your call."),
		&twiml.VoiceHangup{},
	}
}

func (f *Callback) createCallbackTask(ctx context.Context, in CallbackInput, summary *taskrouter.TaskSummary) {
	call, err := taskrouter.ParseCallAttributes(summary.Attributes)
	if err != nil {
		f.log.Warn("callback submit: unreadable call attributes",
			zap.String("task_sid", summary.TaskSid),
			zap.Error(err))
	}

	to := in.CallbackNumber
	if to == "" {
		to = call.Caller
	}
	callTime := taskrouter.NewCallTime(f.opts.now(), f.opts.TimeZone)

	attrs := taskrouter.TaskAttributes{
		TaskType:          taskrouter.TaskTypeCallback,
		Ringback:          f.opts.absolute(f.opts.CallbackAlertTone),
		To:                to,
		Direction:         "inbound",
		Name:              "Callback: " + to,
		From:              call.Called,
		CallTime:          &callTime,
		QueueTargetName:   summary.TaskQueueName,
		QueueTargetSid:    summary.TaskQueueSid,
		WorkflowTargetSid: summary.WorkflowSid,
		UIPlugin:          &taskrouter.UIPlugin{CbCallButtonAccessibility: taskrouter.BoolPtr(false)},
		PlaceCallRetry:    1,
		// Chain the callback to the inbound call for reporting.
		Conversations: &taskrouter.Conversations{ConversationID: summary.TaskSid},
	}
	encoded, err := attrs.Encode()
	if err != nil {
		f.log.Error("callback submit: encode attributes failed", zap.Error(err))
		return
	}

	if _, res := f.gateway.CreateTask(ctx, taskrouter.CreateTaskParams{
		Channel:     taskrouter.TaskTypeCallback,
		Priority:    f.opts.CallbackPriority,
		WorkflowSid: summary.WorkflowSid,
		Attributes:  encoded,
	}); !res.OK() {
		f.log.Error("callback submit: create task failed",
			zap.String("workflow_sid", summary.WorkflowSid),
			zap.Error(res.Err))
	}
}
