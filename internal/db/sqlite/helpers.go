package sqlite

import (
	"database/sql"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// ParseLimitParam parses a limit query parameter with a default value.
func ParseLimitParam(r *http.Request, defaultLimit int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultLimit
}

// scanOutcome scans a single outcome from a row scanner.
func scanOutcome(scanner interface{ Scan(...interface{}) error }) (*models.AssessmentOutcome, error) {
	var (
		o             models.AssessmentOutcome
		kind          string
		contributions string
	)
	if err := scanner.Scan(
		&o.ID, &o.SessionID, &o.UserID, &kind, &o.Score, &o.FinalScore,
		&o.PHQ2Total, &o.PHQ2Q1, &o.PHQ2Q2, &o.PHQ2Positive,
		&o.GAD2Total, &o.GAD2Q1, &o.GAD2Q2, &o.GAD2Positive,
		&o.MoodScale, &contributions, &o.WeightingNote,
		&o.Uncertainty, &o.QCOverall, &o.Note, &o.ModelVersion,
		&o.CreatedAt, &o.CreatedAtEpoch,
	); err != nil {
		return nil, err
	}
	o.Kind = models.AssessmentKind(kind)
	if contributions != "" {
		if err := json.Unmarshal([]byte(contributions), &o.Contributions); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

// scanOutcomeRows scans multiple outcomes from rows.
func scanOutcomeRows(rows *sql.Rows) ([]*models.AssessmentOutcome, error) {
	var outcomes []*models.AssessmentOutcome
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}
