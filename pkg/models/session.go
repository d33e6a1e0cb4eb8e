// Package models contains domain models for wellspring.
package models

import "time"

// AssessmentKind distinguishes the first full assessment from periodic ones.
type AssessmentKind string

const (
	KindBaseline AssessmentKind = "baseline"
	KindCheckin  AssessmentKind = "checkin"
)

// Valid reports whether the kind is one of the known assessment kinds.
func (k AssessmentKind) Valid() bool {
	return k == KindBaseline || k == KindCheckin
}

// SessionState is the lifecycle state of a conversation session.
type SessionState string

const (
	StateIdle                  SessionState = "idle"
	StateRequestingPermissions SessionState = "requesting_permissions"
	StateActive                SessionState = "active"
	StateFinalizing            SessionState = "finalizing"
	StateTerminal              SessionState = "terminal"
)

// ConversationSession is one end-to-end assessment attempt. It is owned
// exclusively by its session controller and becomes immutable once the
// terminal transition fires.
type ConversationSession struct {
	ID         string
	UserID     string
	Kind       AssessmentKind
	StartedAt  time.Time
	EndedAt    time.Time // zero until the session reaches a terminal state
	Transcript string
}

// AppendTranscript appends newly received transcript text. The transcript
// is append-only for the lifetime of the session.
func (s *ConversationSession) AppendTranscript(text string) {
	if text == "" {
		return
	}
	if s.Transcript != "" {
		s.Transcript += "\n"
	}
	s.Transcript += text
}

// Duration returns the elapsed session time. Before the session ends it is
// measured against the current clock.
func (s *ConversationSession) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

// SessionSnapshot is the frozen view of a session handed to the scorer at
// finalization. Scoring is a pure function of this snapshot.
type SessionSnapshot struct {
	Session   ConversationSession
	Clinical  *ClinicalResponses
	Visual    VisualSummary
	Frames    []Frame
	Audio     AudioSignalSummary
	AudioSeen bool
}
