package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestProgressionService(tournament *models.Tournament, matchRepo *fakeMatchRepo, winnerRepo *fakeWinnerRepo, generator *fakeGenerator) (*progressionService, *fakeTournamentRepo) {
	tournamentRepo := &fakeTournamentRepo{tournament: tournament}
	svc := &progressionService{
		tx:             &fakeTxManager{},
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		winnerRepo:     winnerRepo,
		generator:      generator,
		logger:         testLogger(),
		now:            func() time.Time { return testNow },
	}
	return svc, tournamentRepo
}

func startedTournament() *models.Tournament {
	return &models.Tournament{
		ID:        1,
		Name:      "National Pool League",
		StartDate: testNow.Add(-24 * time.Hour),
		Status:    models.TournamentStatusActive,
	}
}

func TestGetLevelProgressGroupGating(t *testing.T) {
	matchRepo := newFakeMatchRepo()
	matchRepo.counts[models.LevelCommunity] = repositories.LevelMatchCounts{Total: 4, Finished: 4}
	matchRepo.groupsMatches[models.LevelCommunity] = []int{1, 2}

	winnerRepo := newFakeWinnerRepo()
	winnerRepo.groupsWinners[models.LevelCommunity] = []int{1}

	svc, _ := newTestProgressionService(startedTournament(), matchRepo, winnerRepo, &fakeGenerator{})

	progress, err := svc.GetLevelProgress(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, progress, len(models.LevelLadder))

	community := progress[0]
	assert.Equal(t, models.LevelCommunity, community.Level)
	assert.True(t, community.AllMatchesCompleted)
	// Group 2 has finished its matches but no recorded winner yet, so
	// the level is not complete and county stays closed.
	assert.False(t, community.Completed)
	county := progress[1]
	assert.Equal(t, models.LevelCounty, county.Level)
	assert.False(t, county.CanInitialize)

	// Once every group with matches has a winner, county opens.
	winnerRepo.groupsWinners[models.LevelCommunity] = []int{1, 2}
	progress, err = svc.GetLevelProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, progress[0].Completed)
	assert.True(t, progress[1].CanInitialize)
	assert.False(t, progress[2].CanInitialize)
}

func TestGetLevelProgressFirstLevelGatedByStartDate(t *testing.T) {
	tournament := startedTournament()
	tournament.Status = models.TournamentStatusUpcoming
	tournament.StartDate = testNow.Add(48 * time.Hour)

	svc, _ := newTestProgressionService(tournament, newFakeMatchRepo(), newFakeWinnerRepo(), &fakeGenerator{})

	progress, err := svc.GetLevelProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, progress[0].CanInitialize)

	tournament.StartDate = testNow.Add(-time.Hour)
	progress, err = svc.GetLevelProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, progress[0].CanInitialize)
}

func TestGetLevelProgressSpecialLadder(t *testing.T) {
	tournament := startedTournament()
	tournament.Special = true

	winnerRepo := newFakeWinnerRepo()
	svc, _ := newTestProgressionService(tournament, newFakeMatchRepo(), winnerRepo, &fakeGenerator{})

	progress, err := svc.GetLevelProgress(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, models.LevelSpecial, progress[0].Level)
	assert.True(t, progress[0].CanInitialize)

	winnerRepo.existsAt[models.LevelSpecial] = true
	progress, err = svc.GetLevelProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, progress[0].Completed)
}

func TestGetLevelProgressTournamentNotFound(t *testing.T) {
	svc, _ := newTestProgressionService(startedTournament(), newFakeMatchRepo(), newFakeWinnerRepo(), &fakeGenerator{})

	_, err := svc.GetLevelProgress(context.Background(), 99)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestInitializeLevelSuccess(t *testing.T) {
	tournament := startedTournament()
	tournament.Status = models.TournamentStatusUpcoming

	generator := &fakeGenerator{created: 6}
	svc, tournamentRepo := newTestProgressionService(tournament, newFakeMatchRepo(), newFakeWinnerRepo(), generator)

	result, err := svc.InitializeLevel(context.Background(), 1, models.LevelCommunity)
	require.NoError(t, err)

	assert.Equal(t, 6, result.MatchesCreated)
	assert.Equal(t, []models.TournamentLevel{models.LevelCommunity}, generator.calls)
	assert.Equal(t, []models.TournamentStatus{models.TournamentStatusActive}, tournamentRepo.statusUpdates)
}

func TestInitializeLevelValidation(t *testing.T) {
	svc, _ := newTestProgressionService(startedTournament(), newFakeMatchRepo(), newFakeWinnerRepo(), &fakeGenerator{})
	ctx := context.Background()

	_, err := svc.InitializeLevel(ctx, 1, models.TournamentLevel("galactic"))
	assert.ErrorIs(t, err, ErrInvalidLevel)

	// Special level on a hierarchical tournament.
	_, err = svc.InitializeLevel(ctx, 1, models.LevelSpecial)
	assert.ErrorIs(t, err, ErrLevelNotInLadder)
}

func TestInitializeLevelBeforeStartDate(t *testing.T) {
	tournament := startedTournament()
	tournament.Status = models.TournamentStatusUpcoming
	tournament.StartDate = testNow.Add(24 * time.Hour)

	svc, _ := newTestProgressionService(tournament, newFakeMatchRepo(), newFakeWinnerRepo(), &fakeGenerator{})

	_, err := svc.InitializeLevel(context.Background(), 1, models.LevelCommunity)
	assert.ErrorIs(t, err, ErrCannotInitializeLevel)
}

func TestInitializeLevelIdempotence(t *testing.T) {
	matchRepo := newFakeMatchRepo()
	matchRepo.counts[models.LevelCommunity] = repositories.LevelMatchCounts{Total: 4, Finished: 0}

	generator := &fakeGenerator{}
	svc, _ := newTestProgressionService(startedTournament(), matchRepo, newFakeWinnerRepo(), generator)

	_, err := svc.InitializeLevel(context.Background(), 1, models.LevelCommunity)
	assert.ErrorIs(t, err, ErrLevelAlreadyInitialized)
	assert.Empty(t, generator.calls)
}

func TestInitializeLevelRequiresPreviousCompleted(t *testing.T) {
	matchRepo := newFakeMatchRepo()
	matchRepo.counts[models.LevelCommunity] = repositories.LevelMatchCounts{Total: 4, Finished: 4}
	matchRepo.groupsMatches[models.LevelCommunity] = []int{1, 2}

	winnerRepo := newFakeWinnerRepo()
	winnerRepo.groupsWinners[models.LevelCommunity] = []int{1}

	generator := &fakeGenerator{created: 2}
	svc, _ := newTestProgressionService(startedTournament(), matchRepo, winnerRepo, generator)
	ctx := context.Background()

	_, err := svc.InitializeLevel(ctx, 1, models.LevelCounty)
	assert.ErrorIs(t, err, ErrCannotInitializeLevel)

	winnerRepo.groupsWinners[models.LevelCommunity] = []int{1, 2}
	result, err := svc.InitializeLevel(ctx, 1, models.LevelCounty)
	require.NoError(t, err)
	assert.Equal(t, 2, result.MatchesCreated)
}

func TestInitializeLevelGeneratorFailure(t *testing.T) {
	tournament := startedTournament()
	tournament.Status = models.TournamentStatusUpcoming

	generator := &fakeGenerator{err: errors.New("empty draw")}
	svc, tournamentRepo := newTestProgressionService(tournament, newFakeMatchRepo(), newFakeWinnerRepo(), generator)

	_, err := svc.InitializeLevel(context.Background(), 1, models.LevelCommunity)
	require.Error(t, err)
	assert.Empty(t, tournamentRepo.statusUpdates)
}

func TestInitializeLevelCanceledTournament(t *testing.T) {
	tournament := startedTournament()
	tournament.Status = models.TournamentStatusCanceled

	svc, _ := newTestProgressionService(tournament, newFakeMatchRepo(), newFakeWinnerRepo(), &fakeGenerator{})

	_, err := svc.InitializeLevel(context.Background(), 1, models.LevelCommunity)
	assert.ErrorIs(t, err, ErrCannotInitializeLevel)
}
