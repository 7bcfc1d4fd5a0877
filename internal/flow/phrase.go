package flow

import (
	"fmt"
	"strings"
)

// WaitTimePhrase buckets the average wait in minutes into the spoken
// estimate. Only exactly four minutes is vague; everything else quotes the
// next whole minute.
func WaitTimePhrase(avgWaitMinutes int) string {
	switch {
	case avgWaitMinutes <= 0:
		return "less than a minute"
	case avgWaitMinutes == 4:
		return "more than 4 minutes"
	default:
		return fmt.Sprintf("less than %d minutes", avgWaitMinutes+1)
	}
}

// QueuePositionPhrase renders the caller's place in the queue. Position -1
// means the task was not within the first 20 assignable tasks.
func QueuePositionPhrase(position int) string {
	switch position {
	case 0:
		return "Your call is next in queue...."
	case 1:
		return "There is one caller ahead of you..."
	case -1:
		return "There are more than 20 callers ahead of you..."
	default:
		return fmt.Sprintf("There are %d callers ahead of you...", position)
	}
}

// FormatPhoneForSpeech prepares a phone number for TTS read-back: the leading
// "+" is stripped and each digit is separated by a pause marker so the voice
// reads them one at a time.
func FormatPhoneForSpeech(phoneNumber string) string {
	phoneNumber = strings.TrimPrefix(phoneNumber, "+")
	return strings.Join(strings.Split(phoneNumber, ""), "...")
}
