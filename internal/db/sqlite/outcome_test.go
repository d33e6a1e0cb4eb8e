package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// OutcomeStoreSuite is a test suite for OutcomeStore operations.
type OutcomeStoreSuite struct {
	suite.Suite
	store    *Store
	outcomes *OutcomeStore
	cleanup  func()
}

func (s *OutcomeStoreSuite) SetupTest() {
	s.store, s.cleanup = testStore(s.T())
	s.outcomes = NewOutcomeStore(s.store)
}

func (s *OutcomeStoreSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func TestOutcomeStoreSuite(t *testing.T) {
	suite.Run(t, new(OutcomeStoreSuite))
}

func (s *OutcomeStoreSuite) TestInsertOutcome() {
	ctx := context.Background()

	id, inserted, err := s.outcomes.InsertOutcome(ctx, testOutcome("sess-1", "user-1", models.KindBaseline))
	s.Require().NoError(err)
	s.True(inserted)
	s.Greater(id, int64(0))

	count, err := s.outcomes.CountOutcomes(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

// TestInsertOutcome_DuplicateSession verifies the one-outcome-per-session
// guarantee at the database level.
func (s *OutcomeStoreSuite) TestInsertOutcome_DuplicateSession() {
	ctx := context.Background()

	first := testOutcome("sess-dup", "user-1", models.KindCheckin)
	id1, inserted, err := s.outcomes.InsertOutcome(ctx, first)
	s.Require().NoError(err)
	s.Require().True(inserted)

	// A second write for the same session, even with different content, must
	// be ignored and report the existing row.
	second := testOutcome("sess-dup", "user-1", models.KindCheckin)
	second.Score = 10
	second.FinalScore = 10
	second.ModelVersion = models.ModelVersionDegraded

	id2, inserted, err := s.outcomes.InsertOutcome(ctx, second)
	s.Require().NoError(err)
	s.False(inserted)
	s.Equal(id1, id2)

	got, err := s.outcomes.GetOutcomeBySession(ctx, "sess-dup")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(85, got.Score, "first write wins")
	s.Equal(models.ModelVersionClinical, got.ModelVersion)

	count, err := s.outcomes.CountOutcomes(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *OutcomeStoreSuite) TestGetOutcomeBySession_Roundtrip() {
	ctx := context.Background()

	want := testOutcome("sess-rt", "user-1", models.KindBaseline)
	want.Note = "provisional: degraded scoring path"
	_, _, err := s.outcomes.InsertOutcome(ctx, want)
	s.Require().NoError(err)

	got, err := s.outcomes.GetOutcomeBySession(ctx, "sess-rt")
	s.Require().NoError(err)
	s.Require().NotNil(got)

	s.Equal(want.SessionID, got.SessionID)
	s.Equal(want.UserID, got.UserID)
	s.Equal(want.Kind, got.Kind)
	s.Equal(want.Score, got.Score)
	s.Equal(want.PHQ2Total, got.PHQ2Total)
	s.Equal(want.PHQ2Positive, got.PHQ2Positive)
	s.Equal(want.MoodScale, got.MoodScale)
	s.Equal(want.Contributions, got.Contributions)
	s.Equal(want.WeightingNote, got.WeightingNote)
	s.InDelta(want.Uncertainty, got.Uncertainty, 1e-9)
	s.InDelta(want.QCOverall, got.QCOverall, 1e-9)
	s.Equal(want.Note, got.Note)
	s.Equal(want.ModelVersion, got.ModelVersion)
	s.Equal(want.CreatedAtEpoch, got.CreatedAtEpoch)
}

func (s *OutcomeStoreSuite) TestGetOutcomeBySession_Missing() {
	got, err := s.outcomes.GetOutcomeBySession(context.Background(), "nope")
	s.NoError(err)
	s.Nil(got)
}

func (s *OutcomeStoreSuite) TestListOutcomesByUser() {
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		o := testOutcome(fmt.Sprintf("sess-list-%d", i), "user-list", models.KindCheckin)
		o.StampCreated(base.Add(time.Duration(i) * time.Minute))
		_, _, err := s.outcomes.InsertOutcome(ctx, o)
		s.Require().NoError(err)
	}
	// Another user's outcome must not leak into the listing.
	_, _, err := s.outcomes.InsertOutcome(ctx, testOutcome("sess-other", "user-other", models.KindCheckin))
	s.Require().NoError(err)

	got, err := s.outcomes.ListOutcomesByUser(ctx, "user-list", 0)
	s.Require().NoError(err)
	s.Require().Len(got, 5)
	s.Equal("sess-list-4", got[0].SessionID, "newest first")
	s.Equal("sess-list-0", got[4].SessionID)

	limited, err := s.outcomes.ListOutcomesByUser(ctx, "user-list", 2)
	s.Require().NoError(err)
	s.Len(limited, 2)

	none, err := s.outcomes.ListOutcomesByUser(ctx, "user-none", 10)
	s.Require().NoError(err)
	s.Empty(none)
}
