package worker

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/halcyonlabs/wellspring/internal/assessment"
	"github.com/halcyonlabs/wellspring/internal/assessment/scoring"
	"github.com/halcyonlabs/wellspring/internal/db/sqlite"
	"github.com/halcyonlabs/wellspring/pkg/models"
)

// finishWait caps how long the finish handler waits for scoring and
// persistence to complete.
const finishWait = 30 * time.Second

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth reports service liveness.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.ready.Load() {
		status = "starting"
		code = http.StatusServiceUnavailable
	}
	if err := s.store.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status":          status,
		"version":         s.version,
		"uptime_seconds":  int(time.Since(s.startTime).Seconds()),
		"active_sessions": s.manager.ActiveCount(),
		"sse_clients":     s.sseBroadcaster.ClientCount(),
	})
}

type startSessionRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
}

// handleStartSession creates and activates a new assessment session.
func (s *Service) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	kind := models.AssessmentKind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "kind must be baseline or checkin")
		return
	}

	c, err := s.manager.StartSession(r.Context(), req.UserID, kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": c.SessionID(),
		"state":      string(c.State()),
	})
}

// handleGetSession returns the live status of a session.
func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, c.Status())
}

type eventRequest struct {
	Type            string                     `json:"type"`
	Text            string                     `json:"text,omitempty"`
	Audio           *models.AudioSignalSummary `json:"audio,omitempty"`
	FinalTranscript string                     `json:"final_transcript,omitempty"`
	DurationMs      int64                      `json:"duration_ms,omitempty"`
	ErrorKind       string                     `json:"error_kind,omitempty"`
}

// handlePostEvent forwards a widget event to the session's controller. The
// handler always accepts a well-formed event; whether it has any effect is
// the controller's decision based on its current state.
func (s *Service) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evtType := assessment.EventType(req.Type)
	switch evtType {
	case assessment.EventSessionStarted,
		assessment.EventTranscriptUpdated,
		assessment.EventAudioSignal,
		assessment.EventSessionEnded,
		assessment.EventError:
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	c.Post(assessment.Event{
		Type:            evtType,
		Text:            req.Text,
		Audio:           req.Audio,
		FinalTranscript: req.FinalTranscript,
		DurationMs:      req.DurationMs,
		ErrorKind:       req.ErrorKind,
	})
	w.WriteHeader(http.StatusAccepted)
}

// handleFinishSession requests finalization and waits for the terminal
// result: the scored outcome, or a 422 when the session had too little data
// to score.
func (s *Service) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	c.Post(assessment.Event{Type: assessment.EventFinishRequested})

	select {
	case <-c.Done():
	case <-time.After(finishWait):
		writeError(w, http.StatusGatewayTimeout, "finalization timed out")
		return
	case <-r.Context().Done():
		return
	}

	outcome, err := c.Result()
	switch {
	case errors.Is(err, scoring.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, "insufficient data to score session")
	case errors.Is(err, assessment.ErrAbandoned):
		writeError(w, http.StatusGone, "session abandoned")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.sseBroadcaster.Broadcast("outcome", outcome)
		writeJSON(w, http.StatusOK, outcome)
	}
}

// handleAbandonSession discards a session without scoring or persisting.
func (s *Service) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.manager.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	c.Post(assessment.Event{Type: assessment.EventAbandonRequested})

	select {
	case <-c.Done():
	case <-time.After(finishWait):
		writeError(w, http.StatusGatewayTimeout, "abandon timed out")
		return
	case <-r.Context().Done():
		return
	}

	s.manager.Remove(c.SessionID())
	w.WriteHeader(http.StatusNoContent)
}

// handleListOutcomes returns a user's persisted outcomes, newest first.
func (s *Service) handleListOutcomes(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit := sqlite.ParseLimitParam(r, 50)

	outcomes, err := s.outcomeStore.ListOutcomesByUser(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if outcomes == nil {
		outcomes = []*models.AssessmentOutcome{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}

// handleGetOutcome returns the persisted outcome for one session.
func (s *Service) handleGetOutcome(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.outcomeStore.GetOutcomeBySession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if outcome == nil {
		writeError(w, http.StatusNotFound, "no outcome for session")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
