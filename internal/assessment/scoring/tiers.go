package scoring

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/halcyonlabs/wellspring/internal/analysis"
	"github.com/halcyonlabs/wellspring/internal/privacy"
	"github.com/halcyonlabs/wellspring/pkg/models"
)

// Clinical composite weights.
const (
	phq2Weight = 0.35
	gad2Weight = 0.35
	moodWeight = 0.30
)

// fusionTier invokes the external audio/visual/text analyses and then the
// fusion function. The fusion score, when it arrives, is authoritative.
type fusionTier struct {
	client *analysis.Client
}

func (t *fusionTier) Name() string { return "fusion" }

func (t *fusionTier) Score(ctx context.Context, snap *models.SessionSnapshot) (*models.AssessmentOutcome, error) {
	if t.client == nil {
		return nil, fmt.Errorf("fusion: no analysis client")
	}

	// Side computations: issued concurrently, individually allowed to fail.
	// Only the fusion call decides whether this tier succeeds.
	g, gctx := errgroup.WithContext(ctx)
	sessionID := snap.Session.ID
	if snap.AudioSeen {
		g.Go(func() error {
			_, _ = t.client.AnalyzeAudio(gctx, sessionID, snap.Audio)
			return nil
		})
	}
	if len(snap.Frames) > 0 {
		g.Go(func() error {
			_, _ = t.client.AnalyzeVisual(gctx, sessionID, snap.Frames)
			return nil
		})
	}
	if transcript := privacy.Clean(snap.Session.Transcript); transcript != "" {
		g.Go(func() error {
			_, _ = t.client.AnalyzeText(gctx, sessionID, transcript, snap.Session.Kind)
			return nil
		})
	}
	_ = g.Wait()

	res, err := t.client.CalculateComposite(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fusion composite: %w", err)
	}

	score := clampScore(res.Score)
	outcome := &models.AssessmentOutcome{
		Score:         int(math.Round(score)),
		ModelVersion:  models.ModelVersionFusion,
		QCOverall:     0.9,
		Uncertainty:   0.1,
		WeightingNote: "external multimodal fusion",
	}
	if res.ModelVersion != "" {
		outcome.ModelVersion = res.ModelVersion
	}
	for name, v := range res.Components {
		outcome.Contributions = append(outcome.Contributions, models.ComponentContribution{
			Component: name,
			Score:     v,
		})
	}
	fillClinicalBlock(outcome, snap.Clinical)
	return outcome, nil
}

// clinicalTier computes the deterministic composite from the validated
// clinical responses alone. It carries higher confidence than the degraded
// tier because it rests entirely on validated instruments.
type clinicalTier struct{}

func (t *clinicalTier) Name() string { return "clinical-composite" }

func (t *clinicalTier) Score(_ context.Context, snap *models.SessionSnapshot) (*models.AssessmentOutcome, error) {
	c := snap.Clinical
	if c == nil || !c.Complete() {
		return nil, fmt.Errorf("clinical composite: response set incomplete")
	}

	phq2Score := 100 * (1 - float64(c.PHQ2Total())/6)
	gad2Score := 100 * (1 - float64(c.GAD2Total())/6)
	moodScore := 100 * float64(c.MoodScale()) / 10

	composite := math.Round(phq2Weight*phq2Score + gad2Weight*gad2Score + moodWeight*moodScore)

	outcome := &models.AssessmentOutcome{
		Score:        int(clampScore(composite)),
		ModelVersion: models.ModelVersionClinical,
		QCOverall:    0.85,
		Uncertainty:  0.15,
		Contributions: []models.ComponentContribution{
			{Component: "phq2", Score: phq2Score, Weight: phq2Weight},
			{Component: "gad2", Score: gad2Score, Weight: gad2Weight},
			{Component: "mood", Score: moodScore, Weight: moodWeight},
		},
		WeightingNote: "phq2 0.35, gad2 0.35, mood 0.30",
	}
	fillClinicalBlock(outcome, c)
	return outcome, nil
}

// degradedTier is the last resort when even the clinical keys are missing.
// The validation gate should prevent reaching it, but it is kept as a
// defensive floor so a valid session always yields some outcome. The record
// is explicitly marked provisional so downstream consumers can tell it apart
// from clinically grounded scores.
type degradedTier struct{}

func (t *degradedTier) Name() string { return "degraded" }

func (t *degradedTier) Score(_ context.Context, snap *models.SessionSnapshot) (*models.AssessmentOutcome, error) {
	score := 50.0
	if snap.Clinical != nil {
		if mood := snap.Clinical.MoodScale(); mood > 0 {
			score = clampScore(10 * float64(mood))
			if score < 20 {
				score = 20
			}
			if score > 80 {
				score = 80
			}
		}
	}

	outcome := &models.AssessmentOutcome{
		Score:         int(math.Round(score)),
		ModelVersion:  models.ModelVersionDegraded,
		QCOverall:     0.7,
		Uncertainty:   0.4,
		Note:          "provisional: produced without a complete clinical response set",
		WeightingNote: "bounded placeholder",
	}
	fillClinicalBlock(outcome, snap.Clinical)
	return outcome, nil
}
