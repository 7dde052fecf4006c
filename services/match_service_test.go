package services

import (
	"context"
	"testing"
	"time"

	"github.com/cuelane/pool-league-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatch(status models.MatchStatus) *models.Match {
	p1, p2 := 10, 20
	return &models.Match{
		ID:           1,
		TournamentID: 5,
		Level:        models.LevelCommunity,
		Player1ID:    &p1,
		Player2ID:    &p2,
		Status:       status,
	}
}

func newTestMatchService(repo *fakeMatchRepo) (*matchService, *fakeRecalculator, *fakeNotifier) {
	recalc := &fakeRecalculator{}
	notifier := &fakeNotifier{}
	svc := NewMatchService(&fakeTxManager{}, repo, newFakeWinnerRepo(), recalc, notifier, testLogger(), 100)
	return svc.(*matchService), recalc, notifier
}

func futureDates(n int) []time.Time {
	base := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = base.Add(time.Duration(i) * 24 * time.Hour)
	}
	return dates
}

func TestProposeDatesValidation(t *testing.T) {
	svc, _, _ := newTestMatchService(newFakeMatchRepo(newTestMatch(models.MatchStatusPending)))
	ctx := context.Background()

	_, err := svc.ProposeDates(ctx, 1, 10, futureDates(2))
	assert.ErrorIs(t, err, ErrProposedDatesCount)

	_, err = svc.ProposeDates(ctx, 1, 10, futureDates(8))
	assert.ErrorIs(t, err, ErrProposedDatesCount)

	past := futureDates(3)
	past[1] = time.Now().Add(-time.Hour)
	_, err = svc.ProposeDates(ctx, 1, 10, past)
	assert.ErrorIs(t, err, ErrProposedDateInPast)
}

func TestProposeDatesClearsPreviousSelections(t *testing.T) {
	match := newTestMatch(models.MatchStatusPending)
	old := futureDates(3)
	match.ProposedDates = old
	match.Player1PreferredDates = old[:1]
	match.Player2PreferredDates = old[1:2]

	svc, _, _ := newTestMatchService(newFakeMatchRepo(match))

	fresh := futureDates(4)
	updated, err := svc.ProposeDates(context.Background(), 1, 20, fresh)
	require.NoError(t, err)

	assert.Equal(t, fresh, updated.ProposedDates)
	assert.Nil(t, updated.Player1PreferredDates)
	assert.Nil(t, updated.Player2PreferredDates)
	assert.Equal(t, models.MatchStatusPending, updated.Status)
}

func TestProposeDatesRejectedOutsidePending(t *testing.T) {
	svc, _, _ := newTestMatchService(newFakeMatchRepo(newTestMatch(models.MatchStatusScheduled)))

	_, err := svc.ProposeDates(context.Background(), 1, 10, futureDates(3))
	assert.ErrorIs(t, err, ErrMatchInvalidState)
}

func TestSelectDatesSchedulesFirstCommonDate(t *testing.T) {
	match := newTestMatch(models.MatchStatusPending)
	proposed := futureDates(3)
	match.ProposedDates = proposed

	repo := newFakeMatchRepo(match)
	svc, _, notifier := newTestMatchService(repo)
	ctx := context.Background()

	// Player 1 picks the first and second date; still waiting on player 2.
	updated, err := svc.SelectDates(ctx, 1, 10, []time.Time{proposed[0], proposed[1]})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPending, updated.Status)
	assert.Nil(t, updated.ScheduledDate)
	assert.Empty(t, notifier.sent)

	// Player 2 picks the second and third: the second date is the first
	// proposed date both players share.
	updated, err = svc.SelectDates(ctx, 1, 20, []time.Time{proposed[1], proposed[2]})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, updated.Status)
	require.NotNil(t, updated.ScheduledDate)
	assert.True(t, proposed[1].Equal(*updated.ScheduledDate))

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, models.NotificationMatchScheduled, notifier.sent[0].typ)
}

func TestSelectDatesEmptyIntersectionStaysPending(t *testing.T) {
	match := newTestMatch(models.MatchStatusPending)
	proposed := futureDates(3)
	match.ProposedDates = proposed

	svc, _, notifier := newTestMatchService(newFakeMatchRepo(match))
	ctx := context.Background()

	_, err := svc.SelectDates(ctx, 1, 10, []time.Time{proposed[0]})
	require.NoError(t, err)

	updated, err := svc.SelectDates(ctx, 1, 20, []time.Time{proposed[2]})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusPending, updated.Status)
	assert.Nil(t, updated.ScheduledDate)
	assert.Empty(t, notifier.sent)
}

func TestSelectDatesRejectsUnproposedDate(t *testing.T) {
	match := newTestMatch(models.MatchStatusPending)
	match.ProposedDates = futureDates(3)

	svc, _, _ := newTestMatchService(newFakeMatchRepo(match))

	_, err := svc.SelectDates(context.Background(), 1, 10, []time.Time{time.Now().Add(100 * 24 * time.Hour)})
	assert.ErrorIs(t, err, ErrDateNotProposed)

	_, err = svc.SelectDates(context.Background(), 1, 10, nil)
	assert.ErrorIs(t, err, ErrPreferredDatesEmpty)
}

func TestSelectDatesRequiresParticipant(t *testing.T) {
	match := newTestMatch(models.MatchStatusPending)
	match.ProposedDates = futureDates(3)

	svc, _, _ := newTestMatchService(newFakeMatchRepo(match))

	_, err := svc.SelectDates(context.Background(), 1, 99, []time.Time{match.ProposedDates[0]})
	assert.ErrorIs(t, err, ErrNotMatchPlayer)
}

func TestSubmitResult(t *testing.T) {
	svc, _, notifier := newTestMatchService(newFakeMatchRepo(newTestMatch(models.MatchStatusScheduled)))
	ctx := context.Background()

	match, err := svc.SubmitResult(ctx, 1, 10, 8, 5)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusPendingConfirmation, match.Status)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, 10, *match.WinnerID)
	require.NotNil(t, match.SubmittedBy)
	assert.Equal(t, 10, *match.SubmittedBy)
	assert.Equal(t, 8, *match.Player1Points)
	assert.Equal(t, 5, *match.Player2Points)

	// Only the opponent is asked to confirm.
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, 20, notifier.sent[0].playerID)
	assert.Equal(t, models.NotificationResultSubmitted, notifier.sent[0].typ)
}

func TestSubmitResultValidation(t *testing.T) {
	svc, _, _ := newTestMatchService(newFakeMatchRepo(newTestMatch(models.MatchStatusScheduled)))
	ctx := context.Background()

	_, err := svc.SubmitResult(ctx, 1, 10, -1, 5)
	assert.ErrorIs(t, err, ErrNegativePoints)

	_, err = svc.SubmitResult(ctx, 1, 10, 5, 5)
	assert.ErrorIs(t, err, ErrEqualPoints)

	svc2, _, _ := newTestMatchService(newFakeMatchRepo(newTestMatch(models.MatchStatusPending)))
	_, err = svc2.SubmitResult(ctx, 1, 10, 8, 5)
	assert.ErrorIs(t, err, ErrMatchInvalidState)
}

func TestConfirmResultAccept(t *testing.T) {
	match := newTestMatch(models.MatchStatusPendingConfirmation)
	p1, p2, submitter := 8, 5, 10
	match.Player1Points = &p1
	match.Player2Points = &p2
	match.WinnerID = &submitter
	match.SubmittedBy = &submitter

	svc, recalc, notifier := newTestMatchService(newFakeMatchRepo(match))

	updated, err := svc.ConfirmResult(context.Background(), 1, 20, true)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, updated.Status)
	assert.Equal(t, []int{10, 20}, recalc.playerIDs)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, models.NotificationResultConfirmed, notifier.sent[0].typ)
}

func TestConfirmResultReject(t *testing.T) {
	match := newTestMatch(models.MatchStatusPendingConfirmation)
	p1, p2, submitter := 8, 5, 10
	match.Player1Points = &p1
	match.Player2Points = &p2
	match.WinnerID = &submitter
	match.SubmittedBy = &submitter

	svc, recalc, notifier := newTestMatchService(newFakeMatchRepo(match))

	updated, err := svc.ConfirmResult(context.Background(), 1, 20, false)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusScheduled, updated.Status)
	assert.Nil(t, updated.Player1Points)
	assert.Nil(t, updated.Player2Points)
	assert.Nil(t, updated.WinnerID)
	assert.Nil(t, updated.SubmittedBy)
	assert.Empty(t, recalc.playerIDs)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, 10, notifier.sent[0].playerID)
	assert.Equal(t, models.NotificationResultRejected, notifier.sent[0].typ)
}

func TestConfirmResultRejectsSubmitter(t *testing.T) {
	match := newTestMatch(models.MatchStatusPendingConfirmation)
	submitter := 10
	match.SubmittedBy = &submitter

	svc, _, _ := newTestMatchService(newFakeMatchRepo(match))

	_, err := svc.ConfirmResult(context.Background(), 1, 10, true)
	assert.ErrorIs(t, err, ErrSelfConfirmation)
}

func TestConfirmResultRequiresPendingConfirmation(t *testing.T) {
	svc, _, _ := newTestMatchService(newFakeMatchRepo(newTestMatch(models.MatchStatusScheduled)))

	_, err := svc.ConfirmResult(context.Background(), 1, 20, true)
	assert.ErrorIs(t, err, ErrMatchInvalidState)
}

func TestReportForfeit(t *testing.T) {
	svc, recalc, notifier := newTestMatchService(newFakeMatchRepo(newTestMatch(models.MatchStatusScheduled)))

	match, err := svc.ReportForfeit(context.Background(), 1, 20)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusForfeit, match.Status)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, 20, *match.WinnerID)
	assert.Equal(t, 0, *match.Player1Points)
	assert.Equal(t, 100, *match.Player2Points)
	assert.Equal(t, []int{10, 20}, recalc.playerIDs)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, 10, notifier.sent[0].playerID)
	assert.Equal(t, models.NotificationMatchForfeited, notifier.sent[0].typ)
}

func TestReportForfeitOnFinalMatch(t *testing.T) {
	for _, status := range []models.MatchStatus{models.MatchStatusCompleted, models.MatchStatusForfeit} {
		svc, _, _ := newTestMatchService(newFakeMatchRepo(newTestMatch(status)))
		_, err := svc.ReportForfeit(context.Background(), 1, 10)
		assert.ErrorIs(t, err, ErrMatchInvalidState, "status %s", status)
	}
}

func TestDeleteMatchRemovesGroupWinners(t *testing.T) {
	match := newTestMatch(models.MatchStatusCompleted)
	groupID := 7
	match.GroupID = &groupID

	repo := newFakeMatchRepo(match)
	winnerRepo := newFakeWinnerRepo()
	winnerRepo.deleteReturn = 1
	svc := NewMatchService(&fakeTxManager{}, repo, winnerRepo, &fakeRecalculator{}, &fakeNotifier{}, testLogger(), 100)

	err := svc.DeleteMatch(context.Background(), 1, 99)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, repo.deleted)
	require.Len(t, winnerRepo.deletedGroups, 1)
	require.NotNil(t, winnerRepo.deletedGroups[0])
	assert.Equal(t, 7, *winnerRepo.deletedGroups[0])
}

func TestGetMatchNotFound(t *testing.T) {
	svc, _, _ := newTestMatchService(newFakeMatchRepo())

	_, err := svc.GetMatch(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
