package flow

import (
	"context"
	"net/url"

	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// TranscriptionFailedText is stored on the voicemail task when the provider
// could not complete the transcription.
const TranscriptionFailedText = "Transcription failed"

// VoicemailMode identifies the step of the voicemail flow.
type VoicemailMode int

const (
	// VoicemailPreProcess redirects the held call into the recording step and
	// cancels the original queue task.
	VoicemailPreProcess VoicemailMode = iota
	// VoicemailMain records the message with transcription enabled.
	VoicemailMain
	// VoicemailSuccess thanks the caller and hangs up.
	VoicemailSuccess
	// VoicemailSubmit creates the voicemail task once the transcription
	// callback fires.
	VoicemailSubmit
)

func (m VoicemailMode) String() string {
	switch m {
	case VoicemailPreProcess:
		return "pre-process"
	case VoicemailMain:
		return "main"
	case VoicemailSuccess:
		return "success"
	case VoicemailSubmit:
		return "submitVoicemail"
	}
	return "unknown"
}

// ParseVoicemailMode maps the webhook mode parameter onto the enum.
func ParseVoicemailMode(s string) (VoicemailMode, error) {
	switch s {
	case "pre-process", "":
		return VoicemailPreProcess, nil
	case "main":
		return VoicemailMain, nil
	case "success":
		return VoicemailSuccess, nil
	case "submitVoicemail":
		return VoicemailSubmit, nil
	}
	return VoicemailPreProcess, ErrUnknownMode
}

// VoicemailInput is one webhook invocation of the voicemail flow. The
// recording and transcription fields are only present on the asynchronous
// provider callbacks.
type VoicemailInput struct {
	Mode    VoicemailMode
	CallSid string
	TaskSid string

	Caller string
	Called string

	RecordingURL        string
	RecordingSid        string
	TranscriptionSid    string
	TranscriptionText   string
	TranscriptionStatus string
}

// Voicemail is the voicemail request state machine. The recording step and
// the transcription callback are decoupled: the caller can hang up before the
// transcript exists, and the task is only created when the callback fires.
type Voicemail struct {
	gateway taskrouter.Gateway
	opts    Options
	log     *zap.Logger
}

// NewVoicemail wires the voicemail flow to its collaborators.
func NewVoicemail(gateway taskrouter.Gateway, opts Options, log *zap.Logger) *Voicemail {
	return &Voicemail{gateway: gateway, opts: opts, log: log}
}

// Respond executes one transition of the flow.
func (f *Voicemail) Respond(ctx context.Context, in VoicemailInput) ([]twiml.Element, error) {
	switch in.Mode {
	case VoicemailPreProcess:
		return f.preProcess(ctx, in), nil
	case VoicemailMain:
		return f.main(in), nil
	case VoicemailSuccess:
		return f.success(), nil
	case VoicemailSubmit:
		return f.submit(ctx, in), nil
	}
	return nil, ErrUnknownMode
}

// preProcess resolves the task, points the live call leg at the recording
// step and cancels the original queue task. The response body is empty; the
// redirect happens out of band through the provider API.
func (f *Voicemail) preProcess(ctx context.Context, in VoicemailInput) []twiml.Element {
	taskSid := in.TaskSid
	if taskSid == "" {
		summary, err := f.gateway.FindTask(ctx, in.CallSid)
		if err != nil {
			f.log.Error("voicemail pre-process: task lookup failed",
				zap.String("call_sid", in.CallSid),
				zap.Error(err))
		} else {
			taskSid = summary.TaskSid
		}
	}

	redirectURL := f.opts.route(PathVoicemail, "main", taskSid, nil)
	f.gateway.RedirectCall(ctx, in.CallSid, redirectURL)
	if taskSid != "" {
		f.gateway.CancelTask(ctx, taskSid, "Voicemail Request")
	}
	return nil
}

// main plays the prompt and records with transcription enabled. The action
// URL ends the interaction; the transcription callback creates the task.
func (f *Voicemail) main(in VoicemailInput) []twiml.Element {
	callSid := url.Values{"CallSid": {in.CallSid}}
	return []twiml.Element{
		f.opts.say("Please leave a message at the tone.  Press the star key when finished."),
		&twiml.VoiceRecord{
			Action:             f.opts.route(PathVoicemail, "success", in.TaskSid, callSid),
			TranscribeCallback: f.opts.route(PathVoicemail, "submitVoicemail", in.TaskSid, callSid),
			Method:             "GET",
			PlayBeep:           "true",
			Transcribe:         "true",
			Timeout:            "10",
			FinishOnKey:        "*",
		},
		f.opts.say("I did not capture your recording"),
	}
}

func (f *Voicemail) success() []twiml.Element {
	return []twiml.Element{
		f.opts.say("Your voicemail has been successfully received... goodbye"),
		&twiml.VoiceHangup{},
	}
}

// submit runs on the provider's transcription callback and creates the
// voicemail task carrying the recording and transcript.
func (f *Voicemail) submit(ctx context.Context, in VoicemailInput) []twiml.Element {
	id := in.TaskSid
	if id == "" {
		id = in.CallSid
	}
	summary, err := f.gateway.FindTask(ctx, id)
	if err != nil {
		f.log.Error("voicemail submit: task lookup failed",
			zap.String("id", id),
			zap.Error(err))
		return nil
	}

	text := TranscriptionFailedText
	if in.TranscriptionStatus == "completed" {
		text = in.TranscriptionText
	}
	callTime := taskrouter.NewCallTime(f.opts.now(), f.opts.TimeZone)

	attrs := taskrouter.TaskAttributes{
		TaskType:          taskrouter.TaskTypeVoicemail,
		Ringback:          f.opts.absolute(f.opts.VoicemailAlertTone),
		To:                in.Caller,
		Direction:         "inbound",
		Name:              "Voicemail: " + in.Caller,
		From:              in.Called,
		RecordingURL:      in.RecordingURL,
		RecordingSid:      in.RecordingSid,
		TranscriptionSid:  in.TranscriptionSid,
		TranscriptionText: text,
		CallTime:          &callTime,
		QueueTargetName:   summary.TaskQueueName,
		QueueTargetSid:    summary.TaskQueueSid,
		WorkflowTargetSid: summary.WorkflowSid,
		UIPlugin: &taskrouter.UIPlugin{
			VmCallButtonAccessibility:   taskrouter.BoolPtr(false),
			VmRecordButtonAccessibility: taskrouter.BoolPtr(true),
		},
		PlaceCallRetry: 1,
	}
	encoded, err := attrs.Encode()
	if err != nil {
		f.log.Error("voicemail submit: encode attributes failed", zap.Error(err))
		return nil
	}

	if _, res := f.gateway.CreateTask(ctx, taskrouter.CreateTaskParams{
		Channel:     taskrouter.TaskTypeVoicemail,
		Priority:    f.opts.VoicemailPriority,
		WorkflowSid: summary.WorkflowSid,
		Attributes:  encoded,
	}); !res.OK() {
		f.log.Error("voicemail submit: create task failed",
			zap.String("workflow_sid", summary.WorkflowSid),
			zap.Error(res.Err))
	}
	return nil
}
