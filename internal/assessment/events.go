// Package assessment owns the session lifecycle: the controller state
// machine, the inbound widget event channel, and the submission latch that
// guarantees at most one persisted outcome per session.
package assessment

import "github.com/halcyonlabs/wellspring/pkg/models"

// EventType identifies an inbound event from the conversation widget or the
// user's own controls.
type EventType string

const (
	// Widget-originated events.
	EventSessionStarted    EventType = "session-started"
	EventTranscriptUpdated EventType = "transcript-updated"
	EventAudioSignal       EventType = "audio-signal"
	EventSessionEnded      EventType = "session-ended"
	EventError             EventType = "error"

	// User-originated events.
	EventFinishRequested  EventType = "finish-requested"
	EventAbandonRequested EventType = "abandon-requested"
)

// Event is one inbound message on the controller's channel. The controller's
// current state, not the sender, decides whether an event is accepted.
type Event struct {
	Type EventType

	// Text carries the transcript delta for transcript-updated events.
	Text string

	// Audio carries the signal for audio-signal events.
	Audio *models.AudioSignalSummary

	// FinalTranscript and DurationMs are optional session-ended payload
	// fields from the widget.
	FinalTranscript string
	DurationMs      int64

	// ErrorKind classifies error events.
	ErrorKind string
}
