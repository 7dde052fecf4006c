package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxManager runs the function directly; the nil executor is fine
// because the fake repositories ignore it.
type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	m.calls++
	return fn(nil)
}

type fakeMatchRepo struct {
	matches map[int]*models.Match

	counts        map[models.TournamentLevel]repositories.LevelMatchCounts
	groupsMatches map[models.TournamentLevel][]int

	created         []*models.Match
	deleted         []int
	scheduleUpdates int
	resultUpdates   int
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{
		matches:       make(map[int]*models.Match),
		counts:        make(map[models.TournamentLevel]repositories.LevelMatchCounts),
		groupsMatches: make(map[models.TournamentLevel][]int),
	}
	for _, m := range matches {
		repo.matches[m.ID] = m
	}
	return repo
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = len(r.created) + 1000
	r.created = append(r.created, match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return match, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int, level *models.TournamentLevel, status *models.MatchStatus) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.HasParticipant(playerID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) UpdateSchedule(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.scheduleUpdates++
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.resultUpdates++
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeMatchRepo) CountByTournamentLevel(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel) (repositories.LevelMatchCounts, error) {
	return r.counts[level], nil
}

func (r *fakeMatchRepo) GroupsWithMatches(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel) ([]int, error) {
	return r.groupsMatches[level], nil
}

func (r *fakeMatchRepo) SumPointsByPlayer(ctx context.Context, playerID int) (int, error) {
	return 0, nil
}

type fakeWinnerRepo struct {
	winners       map[models.TournamentLevel][]*models.Winner
	groupsWinners map[models.TournamentLevel][]int
	existsAt      map[models.TournamentLevel]bool

	deletedGroups []*int
	deleteReturn  int64
}

func newFakeWinnerRepo() *fakeWinnerRepo {
	return &fakeWinnerRepo{
		winners:       make(map[models.TournamentLevel][]*models.Winner),
		groupsWinners: make(map[models.TournamentLevel][]int),
		existsAt:      make(map[models.TournamentLevel]bool),
	}
}

func (r *fakeWinnerRepo) GetByID(ctx context.Context, id int) (*models.Winner, error) {
	return nil, repositories.ErrWinnerNotFound
}

func (r *fakeWinnerRepo) ListByTournamentLevel(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel) ([]*models.Winner, error) {
	return r.winners[level], nil
}

func (r *fakeWinnerRepo) GroupsWithWinners(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel) ([]int, error) {
	return r.groupsWinners[level], nil
}

func (r *fakeWinnerRepo) ExistsAtLevel(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel) (bool, error) {
	return r.existsAt[level], nil
}

func (r *fakeWinnerRepo) DeleteForGroup(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel, groupID *int) (int64, error) {
	r.deletedGroups = append(r.deletedGroups, groupID)
	return r.deleteReturn, nil
}

type fakeRecalculator struct {
	playerIDs []int
}

func (r *fakeRecalculator) RecomputeTotalPoints(ctx context.Context, playerID int) error {
	r.playerIDs = append(r.playerIDs, playerID)
	return nil
}

type sentNotification struct {
	playerID int
	typ      models.NotificationType
}

type fakeNotifier struct {
	sent []sentNotification
}

func (n *fakeNotifier) Notify(ctx context.Context, playerID int, typ models.NotificationType, message string, data interface{}) error {
	n.sent = append(n.sent, sentNotification{playerID: playerID, typ: typ})
	return nil
}

type fakeTournamentRepo struct {
	tournament *models.Tournament

	statusUpdates []models.TournamentStatus
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error { return nil }

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	if r.tournament == nil || r.tournament.ID != id {
		return nil, repositories.ErrTournamentNotFound
	}
	copy := *r.tournament
	return &copy, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return nil, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error { return nil }

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.statusUpdates = append(r.statusUpdates, status)
	r.tournament.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error {
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error { return nil }

func (r *fakeTournamentRepo) ListActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]*models.Tournament, error) {
	if r.tournament != nil && r.tournament.Status == models.TournamentStatusActive {
		return []*models.Tournament{r.tournament}, nil
	}
	return nil, nil
}

type fakeGenerator struct {
	created int
	err     error
	calls   []models.TournamentLevel
}

func (g *fakeGenerator) Initialize(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, level models.TournamentLevel) (int, error) {
	g.calls = append(g.calls, level)
	if g.err != nil {
		return 0, g.err
	}
	return g.created, nil
}

func (g *fakeGenerator) GetName() string { return "fake" }
