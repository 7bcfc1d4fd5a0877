package taskrouter

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task type attribute values. The type is set at creation and never changes.
const (
	TaskTypeCallback  = "callback"
	TaskTypeVoicemail = "voicemail"
)

// CallTime is the server timestamp record stamped onto every task the flows
// create, in a fixed and a localized timezone rendering.
type CallTime struct {
	TimeRecvd       string `json:"time_recvd"`
	ServerTz        string `json:"server_tz"`
	ServerTimeLong  string `json:"server_time_long"`
	ServerTimeShort string `json:"server_time_short"`
}

// NewCallTime builds a CallTime for now in the given IANA timezone.
// An unknown zone falls back to UTC rather than failing the call.
func NewCallTime(now time.Time, timeZone string) CallTime {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		loc = time.UTC
		timeZone = "UTC"
	}
	local := now.In(loc)
	return CallTime{
		TimeRecvd:       now.UTC().Format(time.RFC3339),
		ServerTz:        timeZone,
		ServerTimeLong:  formatLong(local),
		ServerTimeShort: formatShort(local),
	}
}

// formatLong renders e.g. "Mar 27th 2020, 3:04:05 pm PDT".
func formatLong(t time.Time) string {
	return fmt.Sprintf("%s %s %d, %s",
		t.Format("Jan"), ordinalDay(t.Day()), t.Year(), t.Format("3:04:05 pm MST"))
}

// formatShort renders e.g. "03-27-2020, 3:04:05 pm PDT".
func formatShort(t time.Time) string {
	return fmt.Sprintf("%02d-%d-%d, %s",
		int(t.Month()), t.Day(), t.Year(), t.Format("3:04:05 pm MST"))
}

func ordinalDay(day int) string {
	suffix := "th"
	if day < 11 || day > 13 {
		switch day % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

// UIPlugin carries the accessibility flags the agent desktop reads to enable
// or disable its action buttons. Pointers distinguish "absent" from "false".
type UIPlugin struct {
	CbCallButtonAccessibility   *bool `json:"cbCallButtonAccessibility,omitempty"`
	VmCallButtonAccessibility   *bool `json:"vmCallButtonAccessibility,omitempty"`
	VmRecordButtonAccessibility *bool `json:"vmRecordButtonAccessibility,omitempty"`
}

// Conversations links a re-queued task back to its originating task for
// reporting.
type Conversations struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

// TaskAttributes is the attribute bag the flows write onto new callback and
// voicemail tasks. The agent-facing utilities mutate attributes as raw JSON
// maps instead, to preserve keys this struct does not know about.
type TaskAttributes struct {
	TaskType          string         `json:"taskType,omitempty"`
	Ringback          string         `json:"ringback,omitempty"`
	To                string         `json:"to,omitempty"`
	From              string         `json:"from,omitempty"`
	Direction         string         `json:"direction,omitempty"`
	Name              string         `json:"name,omitempty"`
	CallTime          *CallTime      `json:"callTime,omitempty"`
	QueueTargetName   string         `json:"queueTargetName,omitempty"`
	QueueTargetSid    string         `json:"queueTargetSid,omitempty"`
	WorkflowTargetSid string         `json:"workflowTargetSid,omitempty"`
	UIPlugin          *UIPlugin      `json:"ui_plugin,omitempty"`
	PlaceCallRetry    int            `json:"placeCallRetry,omitempty"`
	RecordingURL      string         `json:"recordingUrl,omitempty"`
	RecordingSid      string         `json:"recordingSid,omitempty"`
	TranscriptionSid  string         `json:"transcriptionSid,omitempty"`
	TranscriptionText string         `json:"transcriptionText,omitempty"`
	MarkDeleted       bool           `json:"markDeleted,omitempty"`
	Conversations     *Conversations `json:"conversations,omitempty"`
}

// Encode serializes the attributes for the task-routing API.
func (a TaskAttributes) Encode() (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode task attributes: %w", err)
	}
	return string(b), nil
}

// CallAttributes is the subset of an inbound voice task's attributes the
// flows read back when building a successor task.
type CallAttributes struct {
	Caller string `json:"caller"`
	Called string `json:"called"`
}

// ParseCallAttributes decodes the caller/called numbers from a voice task's
// raw attributes JSON.
func ParseCallAttributes(raw string) (CallAttributes, error) {
	var a CallAttributes
	if raw == "" {
		return a, nil
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return a, fmt.Errorf("parse call attributes: %w", err)
	}
	return a, nil
}

// BoolPtr returns a pointer to b, for populating UIPlugin flags.
func BoolPtr(b bool) *bool { return &b }
