package pairing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
)

var (
	ErrNoParticipants         = errors.New("no eligible participants for level")
	ErrMissingGroupAssignment = errors.New("participant has no group assignment for level")
)

// KnockoutGenerator draws 1v1 pairings per group. Community pairings
// come from confirmed registrations grouped by the players' community;
// county and regional pairings take the previous level's first-place
// winners grouped by the next geographic unit; national and special
// levels draw one flat field. An odd player count produces a bye match
// that is finished on creation.
type KnockoutGenerator struct {
	matchRepo        repositories.MatchRepository
	winnerRepo       repositories.WinnerRepository
	registrationRepo repositories.RegistrationRepository
	userRepo         repositories.UserRepository

	rng *rand.Rand
}

func NewKnockoutGenerator(
	matchRepo repositories.MatchRepository,
	winnerRepo repositories.WinnerRepository,
	registrationRepo repositories.RegistrationRepository,
	userRepo repositories.UserRepository,
) *KnockoutGenerator {
	return &KnockoutGenerator{
		matchRepo:        matchRepo,
		winnerRepo:       winnerRepo,
		registrationRepo: registrationRepo,
		userRepo:         userRepo,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *KnockoutGenerator) GetName() string {
	return "Knockout"
}

func (g *KnockoutGenerator) Initialize(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, level models.TournamentLevel) (int, error) {
	participants, err := g.participants(ctx, exec, tournament, level)
	if err != nil {
		return 0, err
	}
	if len(participants) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoParticipants, level)
	}

	if !level.HasGroups() {
		return g.createPairings(ctx, exec, tournament, level, nil, participants)
	}

	groups := make(map[int][]*models.User)
	for _, user := range participants {
		groupID := user.GroupIDForLevel(level)
		if groupID == nil {
			return 0, fmt.Errorf("%w: user %d at level %s", ErrMissingGroupAssignment, user.ID, level)
		}
		groups[*groupID] = append(groups[*groupID], user)
	}

	groupIDs := make([]int, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Ints(groupIDs)

	created := 0
	for _, groupID := range groupIDs {
		gid := groupID
		n, pairErr := g.createPairings(ctx, exec, tournament, level, &gid, groups[groupID])
		if pairErr != nil {
			return 0, pairErr
		}
		created += n
	}
	return created, nil
}

func (g *KnockoutGenerator) participants(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, level models.TournamentLevel) ([]*models.User, error) {
	switch level {
	case models.LevelCommunity, models.LevelSpecial:
		registrations, err := g.registrationRepo.ListConfirmedByTournament(ctx, exec, tournament.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list confirmed registrations: %w", err)
		}
		users := make([]*models.User, 0, len(registrations))
		for _, reg := range registrations {
			if reg.User == nil {
				return nil, fmt.Errorf("registration %d has no user loaded", reg.ID)
			}
			users = append(users, reg.User)
		}
		return users, nil

	case models.LevelCounty, models.LevelRegional, models.LevelNational:
		prev := previousLevel(level)
		winners, err := g.winnerRepo.ListByTournamentLevel(ctx, exec, tournament.ID, prev)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s winners: %w", prev, err)
		}
		ids := make([]int, 0, len(winners))
		for _, w := range winners {
			if w.Position == 1 {
				ids = append(ids, w.PlayerID)
			}
		}
		if len(ids) == 0 {
			return nil, nil
		}
		users, err := g.userRepo.ListByIDs(ctx, exec, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load advancing players: %w", err)
		}
		return users, nil
	}
	return nil, fmt.Errorf("unsupported level %q", level)
}

func previousLevel(level models.TournamentLevel) models.TournamentLevel {
	switch level {
	case models.LevelCounty:
		return models.LevelCommunity
	case models.LevelRegional:
		return models.LevelCounty
	case models.LevelNational:
		return models.LevelRegional
	}
	return ""
}

func (g *KnockoutGenerator) createPairings(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, level models.TournamentLevel, groupID *int, players []*models.User) (int, error) {
	// Sort before shuffling so the draw depends only on the seed, not
	// on database row order.
	drawn := make([]*models.User, len(players))
	copy(drawn, players)
	sort.Slice(drawn, func(i, j int) bool { return drawn[i].ID < drawn[j].ID })
	g.rng.Shuffle(len(drawn), func(i, j int) { drawn[i], drawn[j] = drawn[j], drawn[i] })

	created := 0
	for i := 0; i+1 < len(drawn); i += 2 {
		p1, p2 := drawn[i].ID, drawn[i+1].ID
		match := &models.Match{
			TournamentID: tournament.ID,
			Level:        level,
			GroupID:      groupID,
			Player1ID:    &p1,
			Player2ID:    &p2,
			Status:       models.MatchStatusPending,
		}
		if err := g.matchRepo.Create(ctx, exec, match); err != nil {
			return 0, fmt.Errorf("failed to create pairing: %w", err)
		}
		created++
	}

	if len(drawn)%2 == 1 {
		byeID := drawn[len(drawn)-1].ID
		// A bye match carries no players and is completed up front so
		// it never blocks the level's finished count.
		match := &models.Match{
			TournamentID: tournament.ID,
			Level:        level,
			GroupID:      groupID,
			ByePlayerID:  &byeID,
			WinnerID:     &byeID,
			Status:       models.MatchStatusCompleted,
		}
		if err := g.matchRepo.Create(ctx, exec, match); err != nil {
			return 0, fmt.Errorf("failed to create bye match: %w", err)
		}
		created++
	}
	return created, nil
}
