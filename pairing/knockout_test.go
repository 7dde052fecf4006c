package pairing

import (
	"context"
	"math/rand"
	"testing"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatchStore struct {
	repositories.MatchRepository
	created []*models.Match
}

func (s *fakeMatchStore) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = len(s.created) + 1
	s.created = append(s.created, match)
	return nil
}

type fakeWinnerStore struct {
	repositories.WinnerRepository
	winners []*models.Winner
}

func (s *fakeWinnerStore) ListByTournamentLevel(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel) ([]*models.Winner, error) {
	return s.winners, nil
}

type fakeRegistrationStore struct {
	repositories.RegistrationRepository
	registrations []*models.Registration
}

func (s *fakeRegistrationStore) ListConfirmedByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	return s.registrations, nil
}

type fakeUserStore struct {
	repositories.UserRepository
	users map[int]*models.User
}

func (s *fakeUserStore) ListByIDs(ctx context.Context, exec repositories.SQLExecutor, ids []int) ([]*models.User, error) {
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func userWithCommunity(id, communityID int) *models.User {
	return &models.User{ID: id, CommunityID: &communityID}
}

func confirmedRegistrations(users ...*models.User) []*models.Registration {
	regs := make([]*models.Registration, len(users))
	for i, u := range users {
		regs[i] = &models.Registration{
			ID:     i + 1,
			UserID: u.ID,
			Status: models.RegistrationStatusConfirmed,
			User:   u,
		}
	}
	return regs
}

func newTestGenerator(matches *fakeMatchStore, winners *fakeWinnerStore, regs *fakeRegistrationStore, users *fakeUserStore) *KnockoutGenerator {
	g := NewKnockoutGenerator(matches, winners, regs, users)
	g.rng = rand.New(rand.NewSource(1))
	return g
}

func TestCommunityPairingsGroupedWithBye(t *testing.T) {
	matches := &fakeMatchStore{}
	regs := &fakeRegistrationStore{
		registrations: confirmedRegistrations(
			userWithCommunity(1, 100),
			userWithCommunity(2, 100),
			userWithCommunity(3, 100),
			userWithCommunity(4, 200),
			userWithCommunity(5, 200),
		),
	}
	g := newTestGenerator(matches, &fakeWinnerStore{}, regs, &fakeUserStore{})

	created, err := g.Initialize(context.Background(), nil, &models.Tournament{ID: 1}, models.LevelCommunity)
	require.NoError(t, err)

	// Community 100: one pairing plus a bye for the odd player.
	// Community 200: a single pairing.
	assert.Equal(t, 3, created)
	require.Len(t, matches.created, 3)

	byGroup := make(map[int][]*models.Match)
	byes := 0
	for _, m := range matches.created {
		require.NotNil(t, m.GroupID)
		byGroup[*m.GroupID] = append(byGroup[*m.GroupID], m)
		if m.ByePlayerID != nil {
			byes++
			assert.Nil(t, m.Player1ID)
			assert.Nil(t, m.Player2ID)
			assert.Equal(t, models.MatchStatusCompleted, m.Status)
			require.NotNil(t, m.WinnerID)
			assert.Equal(t, *m.ByePlayerID, *m.WinnerID)
		} else {
			assert.Equal(t, models.MatchStatusPending, m.Status)
			require.NotNil(t, m.Player1ID)
			require.NotNil(t, m.Player2ID)
		}
	}
	assert.Equal(t, 1, byes)
	assert.Len(t, byGroup[100], 2)
	assert.Len(t, byGroup[200], 1)
}

func TestCommunityPairingRequiresGroupAssignment(t *testing.T) {
	regs := &fakeRegistrationStore{
		registrations: confirmedRegistrations(&models.User{ID: 1}, &models.User{ID: 2}),
	}
	g := newTestGenerator(&fakeMatchStore{}, &fakeWinnerStore{}, regs, &fakeUserStore{})

	_, err := g.Initialize(context.Background(), nil, &models.Tournament{ID: 1}, models.LevelCommunity)
	assert.ErrorIs(t, err, ErrMissingGroupAssignment)
}

func TestCountyPairingDrawsFirstPlaceWinners(t *testing.T) {
	countyA, countyB := 10, 20
	users := &fakeUserStore{users: map[int]*models.User{
		1: {ID: 1, CountyID: &countyA},
		2: {ID: 2, CountyID: &countyA},
		3: {ID: 3, CountyID: &countyB},
		4: {ID: 4, CountyID: &countyB},
	}}
	winners := &fakeWinnerStore{winners: []*models.Winner{
		{PlayerID: 1, Position: 1},
		{PlayerID: 2, Position: 1},
		{PlayerID: 3, Position: 1},
		{PlayerID: 4, Position: 1},
		{PlayerID: 5, Position: 2}, // runner-up does not advance
	}}
	matches := &fakeMatchStore{}
	g := newTestGenerator(matches, winners, &fakeRegistrationStore{}, users)

	created, err := g.Initialize(context.Background(), nil, &models.Tournament{ID: 1}, models.LevelCounty)
	require.NoError(t, err)

	assert.Equal(t, 2, created)
	for _, m := range matches.created {
		require.NotNil(t, m.GroupID)
		assert.Equal(t, models.LevelCounty, m.Level)
	}
}

func TestNationalPairingIsFlat(t *testing.T) {
	users := &fakeUserStore{users: map[int]*models.User{
		1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}, 4: {ID: 4},
	}}
	winners := &fakeWinnerStore{winners: []*models.Winner{
		{PlayerID: 1, Position: 1},
		{PlayerID: 2, Position: 1},
		{PlayerID: 3, Position: 1},
		{PlayerID: 4, Position: 1},
	}}
	matches := &fakeMatchStore{}
	g := newTestGenerator(matches, winners, &fakeRegistrationStore{}, users)

	created, err := g.Initialize(context.Background(), nil, &models.Tournament{ID: 1}, models.LevelNational)
	require.NoError(t, err)

	assert.Equal(t, 2, created)
	for _, m := range matches.created {
		assert.Nil(t, m.GroupID)
	}
}

func TestSpecialPairingUsesRegistrations(t *testing.T) {
	regs := &fakeRegistrationStore{
		registrations: confirmedRegistrations(&models.User{ID: 1}, &models.User{ID: 2}, &models.User{ID: 3}),
	}
	matches := &fakeMatchStore{}
	g := newTestGenerator(matches, &fakeWinnerStore{}, regs, &fakeUserStore{})

	created, err := g.Initialize(context.Background(), nil, &models.Tournament{ID: 1, Special: true}, models.LevelSpecial)
	require.NoError(t, err)

	assert.Equal(t, 2, created)
	byes := 0
	for _, m := range matches.created {
		assert.Nil(t, m.GroupID)
		if m.ByePlayerID != nil {
			byes++
		}
	}
	assert.Equal(t, 1, byes)
}

func TestInitializeWithoutParticipants(t *testing.T) {
	g := newTestGenerator(&fakeMatchStore{}, &fakeWinnerStore{}, &fakeRegistrationStore{}, &fakeUserStore{})

	_, err := g.Initialize(context.Background(), nil, &models.Tournament{ID: 1}, models.LevelCommunity)
	assert.ErrorIs(t, err, ErrNoParticipants)
}
