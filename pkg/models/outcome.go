package models

import "time"

// Model version tags identifying which scoring path produced an outcome.
const (
	ModelVersionFusion    = "fusion-v1"
	ModelVersionClinical  = "clinical-composite-v1"
	ModelVersionDegraded  = "degraded-fallback-v1"
)

// ComponentContribution is one weighted component of the composite score.
type ComponentContribution struct {
	Component string  `json:"component"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
}

// AssessmentOutcome is the terminal persisted artifact of a completed
// session: exactly one per session, created once, never mutated.
type AssessmentOutcome struct {
	ID        int64          `db:"id" json:"id"`
	SessionID string         `db:"session_id" json:"session_id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Kind      AssessmentKind `db:"kind" json:"kind"`

	// Composite 0-100 wellbeing index. FinalScore mirrors Score; they can
	// diverge only if a future re-calibration pass is introduced.
	Score      int `db:"score" json:"score"`
	FinalScore int `db:"final_score" json:"final_score"`

	// Clinical sub-block.
	PHQ2Total    int  `db:"phq2_total" json:"phq2_total"`
	PHQ2Q1       int  `db:"phq2_q1" json:"phq2_q1"`
	PHQ2Q2       int  `db:"phq2_q2" json:"phq2_q2"`
	PHQ2Positive bool `db:"phq2_positive_screen" json:"phq2_positive_screen"`
	GAD2Total    int  `db:"gad2_total" json:"gad2_total"`
	GAD2Q1       int  `db:"gad2_q1" json:"gad2_q1"`
	GAD2Q2       int  `db:"gad2_q2" json:"gad2_q2"`
	GAD2Positive bool `db:"gad2_positive_screen" json:"gad2_positive_screen"`
	MoodScale    int  `db:"mood_scale" json:"mood_scale"`

	// Composite block.
	Contributions []ComponentContribution `json:"contributions,omitempty"`
	WeightingNote string                  `db:"weighting_note" json:"weighting_note,omitempty"`

	// Quality / uncertainty metadata.
	Uncertainty float64 `db:"uncertainty" json:"uncertainty"`
	QCOverall   float64 `db:"qc_overall" json:"qc_overall"`
	Note        string  `db:"note" json:"note,omitempty"`

	ModelVersion   string `db:"model_version" json:"model_version"`
	CreatedAt      string `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64  `db:"created_at_epoch" json:"created_at_epoch"`
}

// StampCreated sets the creation timestamps.
func (o *AssessmentOutcome) StampCreated(now time.Time) {
	o.CreatedAt = now.Format(time.RFC3339)
	o.CreatedAtEpoch = now.UnixMilli()
}

// Profile is the per-user profile state the pipeline touches: whether a
// baseline assessment has been established.
type Profile struct {
	UserID              string `db:"user_id" json:"user_id"`
	BaselineEstablished bool   `db:"baseline_established" json:"baseline_established"`
	UpdatedAt           string `db:"updated_at" json:"updated_at"`
	UpdatedAtEpoch      int64  `db:"updated_at_epoch" json:"updated_at_epoch"`
}
