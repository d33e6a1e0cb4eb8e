package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// ProfileStore provides per-user profile database operations.
type ProfileStore struct {
	store *Store
}

// NewProfileStore creates a new profile store.
func NewProfileStore(store *Store) *ProfileStore {
	return &ProfileStore{store: store}
}

// SetBaselineEstablished upserts the user's profile with the baseline flag
// set. Repeat calls are harmless.
func (s *ProfileStore) SetBaselineEstablished(ctx context.Context, userID string) error {
	now := time.Now()
	const query = `
		INSERT INTO profiles (user_id, baseline_established, updated_at, updated_at_epoch)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			baseline_established = 1,
			updated_at = excluded.updated_at,
			updated_at_epoch = excluded.updated_at_epoch
	`
	_, err := s.store.ExecContext(ctx, query,
		userID, now.Format(time.RFC3339), now.UnixMilli(),
	)
	return err
}

// GetProfile retrieves a user's profile, or nil when none exists yet.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const query = `
		SELECT user_id, baseline_established, updated_at, updated_at_epoch
		FROM profiles
		WHERE user_id = ?
		LIMIT 1
	`

	var p models.Profile
	err := s.store.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.BaselineEstablished, &p.UpdatedAt, &p.UpdatedAtEpoch,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
