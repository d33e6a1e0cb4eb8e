package assessment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/halcyonlabs/wellspring/internal/assessment/audio"
	"github.com/halcyonlabs/wellspring/internal/assessment/extract"
	"github.com/halcyonlabs/wellspring/internal/assessment/scoring"
	"github.com/halcyonlabs/wellspring/internal/assessment/visual"
	"github.com/halcyonlabs/wellspring/internal/media"
	"github.com/halcyonlabs/wellspring/internal/telemetry"
	"github.com/halcyonlabs/wellspring/pkg/models"
)

// ErrAbandoned marks a session the user discarded before finishing. Nothing
// is persisted for an abandoned session.
var ErrAbandoned = errors.New("session abandoned")

// eventBuffer sizes the inbound channel. Widget events are small and
// bursty; the run loop drains them quickly.
const eventBuffer = 64

// OutcomeStore persists assessment outcomes. Insert must be idempotent per
// session: inserted is false when a record for the session already exists.
type OutcomeStore interface {
	InsertOutcome(ctx context.Context, outcome *models.AssessmentOutcome) (id int64, inserted bool, err error)
}

// ProfileStore updates the per-user profile flag after a baseline outcome.
type ProfileStore interface {
	SetBaselineEstablished(ctx context.Context, userID string) error
}

// Scorer turns a finalization snapshot into an outcome. Implemented by
// scoring.Scorer.
type Scorer interface {
	Score(ctx context.Context, snap *models.SessionSnapshot) (*models.AssessmentOutcome, error)
	Degraded(snap *models.SessionSnapshot) *models.AssessmentOutcome
}

// Deps wires a controller to its collaborators.
type Deps struct {
	Extractor extract.Extractor
	Scorer    Scorer
	Outcomes  OutcomeStore
	Profiles  ProfileStore
	Media     media.Gateway
	Analyzer  visual.FrameAnalyzer

	SampleInterval time.Duration
	Log            zerolog.Logger

	// OnStateChange, when set, is invoked after every state transition
	// (used by the worker to broadcast session status).
	OnStateChange func(sessionID string, state models.SessionState)
}

// Controller drives one conversation session through
// Idle -> RequestingPermissions -> Active -> Finalizing -> Terminal.
//
// All session mutation happens on the run loop goroutine; the submission
// latch is a plain field because only that goroutine touches it.
type Controller struct {
	deps Deps
	log  zerolog.Logger

	session  *models.ConversationSession
	clinical *models.ClinicalResponses
	sampler  *visual.Sampler
	audio    *audio.Collector

	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	// mu guards the fields read from other goroutines: state and the
	// terminal result.
	mu       sync.RWMutex
	state    models.SessionState
	outcome  *models.AssessmentOutcome
	finalErr error

	// submitted is the submission latch: set on entry to Finalizing, only
	// ever read/written inside the run loop.
	submitted bool

	streams []media.Stream
}

// NewController creates a controller in the idle state for one assessment
// attempt.
func NewController(userID string, kind models.AssessmentKind, deps Deps) *Controller {
	id := uuid.NewString()
	log := deps.Log.With().Str("session_id", id).Logger()
	return &Controller{
		deps: deps,
		log:  log,
		session: &models.ConversationSession{
			ID:     id,
			UserID: userID,
			Kind:   kind,
		},
		clinical: models.NewClinicalResponses(),
		audio:    audio.NewCollector(),
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		state:    models.StateIdle,
	}
}

// SessionID returns the session identifier.
func (c *Controller) SessionID() string { return c.session.ID }

// State returns the current lifecycle state.
func (c *Controller) State() models.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Done is closed when the session reaches the terminal state.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Result returns the terminal outcome and error. Valid after Done closes:
// a nil outcome with scoring.ErrInsufficientData means the session was
// rejected by the validation gate; ErrAbandoned means the user discarded it.
func (c *Controller) Result() (*models.AssessmentOutcome, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outcome, c.finalErr
}

// Start requests media access and, on success (including the accepted
// degraded audio-only grant), activates the session and launches the run
// loop. Audio is requested first; video is best effort and its absence
// degrades the session rather than aborting it.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != models.StateIdle {
		c.mu.Unlock()
		return errors.New("session already started")
	}
	c.state = models.StateRequestingPermissions
	c.mu.Unlock()
	c.notifyState(models.StateRequestingPermissions)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel

	videoGranted := c.acquireStreams(ctx)

	c.session.StartedAt = time.Now()
	if videoGranted {
		c.sampler = visual.NewSampler(c.deps.Media, c.deps.Analyzer, c.deps.SampleInterval, c.log)
		c.sampler.Start(runCtx)
	}

	c.setState(models.StateActive)
	telemetry.SessionStarted(ctx)
	c.log.Info().
		Str("user_id", c.session.UserID).
		Str("kind", string(c.session.Kind)).
		Bool("video", videoGranted).
		Msg("session active")

	go c.run(runCtx)
	return nil
}

// acquireStreams requests audio then video. Either grant may fail without
// aborting the session; the widget is started best effort regardless.
func (c *Controller) acquireStreams(ctx context.Context) (videoGranted bool) {
	if c.deps.Media == nil {
		return false
	}

	if s, err := c.deps.Media.AcquireStream(ctx, media.StreamAudio); err != nil {
		c.log.Warn().Err(err).Msg("microphone unavailable, continuing best effort")
	} else {
		c.streams = append(c.streams, s)
	}

	if s, err := c.deps.Media.AcquireStream(ctx, media.StreamVideo); err != nil {
		c.log.Warn().Err(err).Msg("camera unavailable, continuing audio-only")
	} else {
		c.streams = append(c.streams, s)
		videoGranted = true
	}
	return videoGranted
}

// Post enqueues an inbound event. Events posted after the session is
// terminal, or while the buffer is saturated, are dropped; the widget's
// final transcript on session-ended supersedes any dropped delta.
func (c *Controller) Post(evt Event) {
	select {
	case <-c.done:
	default:
		select {
		case c.events <- evt:
		default:
			c.log.Warn().Str("event", string(evt.Type)).Msg("event buffer full, dropped")
		}
	}
}

// run is the controller's single thread of control.
func (c *Controller) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.finalize(ctx, "context cancelled")
			return
		case evt := <-c.events:
			if c.handle(ctx, evt) {
				return
			}
		}
	}
}

// handle processes one event; it returns true once the session is terminal.
// The current state gates every event: anything that arrives outside Active
// (other than the widget's own start echo) is ignored.
func (c *Controller) handle(ctx context.Context, evt Event) bool {
	if c.submitted {
		// Latch set: duplicate termination or stale events, absorbed.
		c.log.Debug().Str("event", string(evt.Type)).Msg("event after submission latch, dropped")
		return false
	}
	if c.State() != models.StateActive {
		c.log.Debug().Str("event", string(evt.Type)).Msg("event outside active state, ignored")
		return false
	}

	switch evt.Type {
	case EventSessionStarted:
		// Widget's own start echo; the controller is already active.

	case EventTranscriptUpdated:
		c.mu.Lock()
		c.session.AppendTranscript(evt.Text)
		transcript := c.session.Transcript
		c.mu.Unlock()
		c.extractInto(transcript)

	case EventAudioSignal:
		if evt.Audio != nil {
			c.audio.Observe(*evt.Audio)
		}

	case EventSessionEnded:
		c.mu.Lock()
		adopted := len(evt.FinalTranscript) > len(c.session.Transcript)
		if adopted {
			c.session.Transcript = evt.FinalTranscript
		}
		c.mu.Unlock()
		if adopted {
			c.extractInto(evt.FinalTranscript)
		}
		c.finalize(ctx, "widget ended")
		return true

	case EventFinishRequested:
		c.finalize(ctx, "user finished")
		return true

	case EventAbandonRequested:
		c.abandon(ctx)
		return true

	case EventError:
		// Widget errors are logged and tolerated; the user can still finish
		// or the widget may recover and keep emitting transcript.
		c.log.Warn().Str("kind", evt.ErrorKind).Msg("widget error")
	}
	return false
}

// extractInto re-runs extraction over the full transcript and folds new
// answers into the response set; already-answered keys are left untouched.
func (c *Controller) extractInto(transcript string) {
	if c.deps.Extractor == nil {
		return
	}
	answers := c.deps.Extractor.Extract(transcript)
	c.mu.Lock()
	for key, score := range answers {
		c.clinical.Set(key, score)
	}
	c.mu.Unlock()
}

// abandon discards the session: media released, nothing scored or persisted.
func (c *Controller) abandon(ctx context.Context) {
	c.submitted = true
	c.setState(models.StateFinalizing)
	c.releaseMedia(ctx)
	c.session.EndedAt = time.Now()
	c.terminate(nil, ErrAbandoned)
}

// finalize runs the one-shot termination path: latch, release resources,
// score, persist, update profile.
func (c *Controller) finalize(ctx context.Context, reason string) {
	// The latch is the sole duplicate-submission defence: set before any
	// suspension point so a racing termination signal is dropped in handle.
	c.submitted = true
	c.setState(models.StateFinalizing)
	c.log.Info().Str("reason", reason).Msg("finalizing session")

	// Side effects of leaving Active: release the media streams and stop
	// the sampling timer on every exit path, before scoring.
	c.releaseMedia(ctx)

	c.session.EndedAt = time.Now()
	snap := c.snapshot()

	if c.deps.Scorer == nil {
		c.terminate(nil, errors.New("no scorer configured"))
		return
	}

	outcome, err := c.deps.Scorer.Score(ctx, snap)
	if err != nil {
		if errors.Is(err, scoring.ErrInsufficientData) {
			c.log.Info().Msg("session rejected: insufficient data")
		} else {
			c.log.Error().Err(err).Msg("scoring failed")
		}
		c.terminate(nil, err)
		return
	}

	c.persist(ctx, snap, outcome)
	c.terminate(outcome, nil)
}

// persist writes the outcome, falling back to the degraded record if the
// primary write fails. A total persistence failure is logged and the user
// proceeds; the scored outcome is still reported.
func (c *Controller) persist(ctx context.Context, snap *models.SessionSnapshot, outcome *models.AssessmentOutcome) {
	if c.deps.Outcomes == nil {
		return
	}

	_, inserted, err := c.deps.Outcomes.InsertOutcome(ctx, outcome)
	if err != nil {
		c.log.Warn().Err(err).Msg("outcome write failed, retrying with degraded record")
		fallback := c.deps.Scorer.Degraded(snap)
		if _, inserted, err = c.deps.Outcomes.InsertOutcome(ctx, fallback); err != nil {
			c.log.Error().Err(err).Msg("all outcome writes failed, proceeding without persistence")
			return
		}
	}
	if !inserted {
		c.log.Debug().Msg("outcome already persisted for session, insert ignored")
		return
	}

	telemetry.OutcomePersisted(ctx, outcome.ModelVersion)

	if c.session.Kind == models.KindBaseline && c.deps.Profiles != nil {
		if err := c.deps.Profiles.SetBaselineEstablished(ctx, c.session.UserID); err != nil {
			c.log.Warn().Err(err).Msg("profile flag update failed")
		}
	}
}

// releaseMedia stops the sampler and releases every acquired stream.
// Failures are logged and never block finalization.
func (c *Controller) releaseMedia(ctx context.Context) {
	if c.sampler != nil {
		c.sampler.Stop()
	}
	for _, s := range c.streams {
		if err := s.Release(ctx); err != nil {
			c.log.Warn().Err(err).Str("kind", string(s.Kind())).Msg("stream release failed")
		}
	}
	c.streams = nil
}

// snapshot freezes the session for scoring.
func (c *Controller) snapshot() *models.SessionSnapshot {
	snap := &models.SessionSnapshot{
		Session:  *c.session,
		Clinical: c.clinical.Clone(),
	}
	if c.sampler != nil {
		snap.Visual = c.sampler.Summary()
		snap.Frames = c.sampler.Frames()
	}
	snap.Audio, snap.AudioSeen = c.audio.Summary()
	return snap
}

// terminate records the result and closes out the controller.
func (c *Controller) terminate(outcome *models.AssessmentOutcome, err error) {
	c.mu.Lock()
	c.outcome = outcome
	c.finalErr = err
	c.state = models.StateTerminal
	c.mu.Unlock()
	c.notifyState(models.StateTerminal)

	if c.cancel != nil {
		c.cancel()
	}
	close(c.done)
}

// setState transitions the state under lock and notifies observers.
func (c *Controller) setState(state models.SessionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.notifyState(state)
}

func (c *Controller) notifyState(state models.SessionState) {
	if c.deps.OnStateChange != nil {
		c.deps.OnStateChange(c.session.ID, state)
	}
}

// Status is a read-only view of a live session for the HTTP API.
type Status struct {
	SessionID    string                `json:"session_id"`
	UserID       string                `json:"user_id"`
	Kind         models.AssessmentKind `json:"kind"`
	State        models.SessionState   `json:"state"`
	AnsweredKeys int                   `json:"answered_keys"`
	Transcript   int                   `json:"transcript_chars"`
	Visual       models.VisualSummary  `json:"visual"`
	AudioSeen    bool                  `json:"audio_seen"`
}

// Status snapshots the controller for display. Counters may lag a beat
// behind the run loop; that is fine for a status endpoint.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := Status{
		SessionID:    c.session.ID,
		UserID:       c.session.UserID,
		Kind:         c.session.Kind,
		State:        c.state,
		AnsweredKeys: c.clinical.Answered(),
		Transcript:   len(c.session.Transcript),
	}
	c.mu.RUnlock()

	if c.sampler != nil {
		st.Visual = c.sampler.Summary()
	}
	_, st.AudioSeen = c.audio.Summary()
	return st
}
