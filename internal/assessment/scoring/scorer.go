// Package scoring converts a finalized session snapshot into an assessment
// outcome through an ordered list of scoring strategies.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/wellspring/internal/analysis"
	"github.com/halcyonlabs/wellspring/internal/telemetry"
	"github.com/halcyonlabs/wellspring/pkg/models"
)

// Validation gate thresholds: a session is scorable if all five clinical
// keys are answered, or if the conversation ran long enough to carry signal.
const (
	MinTranscriptChars = 100
	MinDuration        = 60 * time.Second
)

// ErrInsufficientData marks a session the validation gate rejected. No
// outcome is produced; the caller surfaces this to the user and returns them
// to the assessment start.
var ErrInsufficientData = errors.New("insufficient session data for scoring")

// Strategy is one scoring tier. A strategy either produces a complete
// outcome or fails, in which case the scorer moves to the next tier.
type Strategy interface {
	Name() string
	Score(ctx context.Context, snap *models.SessionSnapshot) (*models.AssessmentOutcome, error)
}

// Scorer runs the validation gate and the tier list. It is invoked exactly
// once per session, on the finalization snapshot; every tier is a pure
// function of that snapshot.
type Scorer struct {
	strategies []Strategy
	log        zerolog.Logger
	now        func() time.Time
}

// NewScorer assembles the standard three-tier scorer: external fusion,
// clinical composite, degraded fallback.
func NewScorer(client *analysis.Client, log zerolog.Logger) *Scorer {
	return NewScorerWithStrategies(log,
		&fusionTier{client: client},
		&clinicalTier{},
		&degradedTier{},
	)
}

// NewScorerWithStrategies builds a scorer over an explicit tier list.
func NewScorerWithStrategies(log zerolog.Logger, strategies ...Strategy) *Scorer {
	return &Scorer{strategies: strategies, log: log, now: time.Now}
}

// Validate applies the mandatory gate from the finalization snapshot.
func (s *Scorer) Validate(snap *models.SessionSnapshot) error {
	if snap.Clinical != nil && snap.Clinical.Complete() {
		return nil
	}
	if len(snap.Session.Transcript) > MinTranscriptChars && snap.Session.Duration() > MinDuration {
		return nil
	}
	return ErrInsufficientData
}

// Score validates the snapshot and walks the tiers in order, stopping at the
// first success. Tier failures are logged, never surfaced to the user.
func (s *Scorer) Score(ctx context.Context, snap *models.SessionSnapshot) (*models.AssessmentOutcome, error) {
	if err := s.Validate(snap); err != nil {
		telemetry.SessionRejected(ctx)
		return nil, err
	}

	var lastErr error
	for _, tier := range s.strategies {
		outcome, err := tier.Score(ctx, snap)
		if err != nil {
			s.log.Warn().Err(err).
				Str("tier", tier.Name()).
				Str("session_id", snap.Session.ID).
				Msg("scoring tier failed, falling through")
			telemetry.TierFallback(ctx, tier.Name())
			lastErr = err
			continue
		}
		s.finish(outcome, snap)
		return outcome, nil
	}
	return nil, fmt.Errorf("all scoring tiers failed: %w", lastErr)
}

// Degraded produces the lowest-tier record directly. The controller uses it
// as the retry payload when the primary outcome write fails.
func (s *Scorer) Degraded(snap *models.SessionSnapshot) *models.AssessmentOutcome {
	outcome, _ := (&degradedTier{}).Score(context.Background(), snap)
	s.finish(outcome, snap)
	return outcome
}

// finish stamps the identity and creation fields shared by every tier.
func (s *Scorer) finish(o *models.AssessmentOutcome, snap *models.SessionSnapshot) {
	o.SessionID = snap.Session.ID
	o.UserID = snap.Session.UserID
	o.Kind = snap.Session.Kind
	o.FinalScore = o.Score
	o.StampCreated(s.now())
}

// clampScore bounds a composite to the 0-100 index.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// fillClinicalBlock copies whatever clinical answers exist into the outcome.
// With a complete response set this is the validated sub-block; with a
// partial set the totals cover only the answered items.
func fillClinicalBlock(o *models.AssessmentOutcome, c *models.ClinicalResponses) {
	if c == nil {
		return
	}
	o.PHQ2Q1, _ = c.Get(models.QuestionPHQ1)
	o.PHQ2Q2, _ = c.Get(models.QuestionPHQ2)
	o.GAD2Q1, _ = c.Get(models.QuestionGAD1)
	o.GAD2Q2, _ = c.Get(models.QuestionGAD2)
	o.PHQ2Total = c.PHQ2Total()
	o.GAD2Total = c.GAD2Total()
	o.PHQ2Positive = o.PHQ2Total >= models.PositiveScreenThreshold
	o.GAD2Positive = o.GAD2Total >= models.PositiveScreenThreshold
	o.MoodScale = c.MoodScale()
}
