package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// OutcomeStore provides assessment outcome database operations.
type OutcomeStore struct {
	store *Store
}

// NewOutcomeStore creates a new outcome store.
func NewOutcomeStore(store *Store) *OutcomeStore {
	return &OutcomeStore{store: store}
}

const outcomeColumns = `id, session_id, user_id, kind, score, final_score,
	phq2_total, phq2_q1, phq2_q2, phq2_positive_screen,
	gad2_total, gad2_q1, gad2_q2, gad2_positive_screen,
	mood_scale, contributions, weighting_note,
	uncertainty, qc_overall, note, model_version,
	created_at, created_at_epoch`

// InsertOutcome persists an outcome. The write is idempotent per session:
// INSERT OR IGNORE against the unique session index means a second write for
// the same session affects zero rows and reports inserted=false with the
// existing row's id.
func (s *OutcomeStore) InsertOutcome(ctx context.Context, o *models.AssessmentOutcome) (int64, bool, error) {
	contributions, err := json.Marshal(o.Contributions)
	if err != nil {
		return 0, false, fmt.Errorf("marshal contributions: %w", err)
	}

	const query = `
		INSERT OR IGNORE INTO assessment_outcomes
		(session_id, user_id, kind, score, final_score,
		 phq2_total, phq2_q1, phq2_q2, phq2_positive_screen,
		 gad2_total, gad2_q1, gad2_q2, gad2_positive_screen,
		 mood_scale, contributions, weighting_note,
		 uncertainty, qc_overall, note, model_version,
		 created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.store.ExecContext(ctx, query,
		o.SessionID, o.UserID, string(o.Kind), o.Score, o.FinalScore,
		o.PHQ2Total, o.PHQ2Q1, o.PHQ2Q2, o.PHQ2Positive,
		o.GAD2Total, o.GAD2Q1, o.GAD2Q2, o.GAD2Positive,
		o.MoodScale, string(contributions), o.WeightingNote,
		o.Uncertainty, o.QCOverall, o.Note, o.ModelVersion,
		o.CreatedAt, o.CreatedAtEpoch,
	)
	if err != nil {
		return 0, false, err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		// Outcome already recorded for this session; return its id.
		var id int64
		const selectQuery = `SELECT id FROM assessment_outcomes WHERE session_id = ? LIMIT 1`
		if err := s.store.QueryRowContext(ctx, selectQuery, o.SessionID).Scan(&id); err != nil {
			return 0, false, err
		}
		return id, false, nil
	}

	id, _ := result.LastInsertId()
	o.ID = id
	return id, true, nil
}

// GetOutcomeBySession retrieves the outcome for a session, or nil when the
// session has none.
func (s *OutcomeStore) GetOutcomeBySession(ctx context.Context, sessionID string) (*models.AssessmentOutcome, error) {
	const query = `
		SELECT ` + outcomeColumns + `
		FROM assessment_outcomes
		WHERE session_id = ?
		LIMIT 1
	`

	outcome, err := scanOutcome(s.store.QueryRowContext(ctx, query, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ListOutcomesByUser returns a user's outcomes, newest first.
func (s *OutcomeStore) ListOutcomesByUser(ctx context.Context, userID string, limit int) ([]*models.AssessmentOutcome, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT ` + outcomeColumns + `
		FROM assessment_outcomes
		WHERE user_id = ?
		ORDER BY created_at_epoch DESC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutcomeRows(rows)
}

// CountOutcomes returns the total number of persisted outcomes.
func (s *OutcomeStore) CountOutcomes(ctx context.Context) (int64, error) {
	var n int64
	const query = `SELECT COUNT(*) FROM assessment_outcomes`
	err := s.store.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}
