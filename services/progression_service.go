package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuelane/pool-league-system/live"
	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/pairing"
	"github.com/cuelane/pool-league-system/repositories"
	"golang.org/x/sync/errgroup"
)

// LevelProgress is the derived, per-level view of a tournament. It is
// recomputed from matches and winners on every request; there is no
// stored level state to drift.
type LevelProgress struct {
	Level               models.TournamentLevel `json:"level"`
	HasMatches          bool                   `json:"has_matches"`
	AllMatchesCompleted bool                   `json:"all_matches_completed"`
	Completed           bool                   `json:"completed"`
	CanInitialize       bool                   `json:"can_initialize"`
	TotalMatches        int                    `json:"total_matches"`
	FinishedMatches     int                    `json:"finished_matches"`
	GroupsWithMatches   []int                  `json:"groups_with_matches,omitempty"`
	GroupsWithWinners   []int                  `json:"groups_with_winners,omitempty"`
}

type InitializeLevelResult struct {
	Level          models.TournamentLevel `json:"level"`
	MatchesCreated int                    `json:"matches_created"`
}

type ProgressionService interface {
	GetLevelProgress(ctx context.Context, tournamentID int) ([]LevelProgress, error)
	InitializeLevel(ctx context.Context, tournamentID int, level models.TournamentLevel) (*InitializeLevelResult, error)
}

type progressionService struct {
	tx             repositories.TxManager
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	winnerRepo     repositories.WinnerRepository
	generator      pairing.Generator
	hub            *live.Hub
	logger         *slog.Logger

	now func() time.Time
}

func NewProgressionService(
	tx repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	winnerRepo repositories.WinnerRepository,
	generator pairing.Generator,
	hub *live.Hub,
	logger *slog.Logger,
) ProgressionService {
	return &progressionService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		winnerRepo:     winnerRepo,
		generator:      generator,
		hub:            hub,
		logger:         logger,
		now:            time.Now,
	}
}

// ladderFor returns the ordered levels a tournament progresses through.
// Special tournaments skip the geographic ladder and play one flat level.
func ladderFor(t *models.Tournament) []models.TournamentLevel {
	if t.Special {
		return []models.TournamentLevel{models.LevelSpecial}
	}
	return models.LevelLadder
}

type levelStats struct {
	counts            repositories.LevelMatchCounts
	groupsWithMatches []int
	groupsWithWinners []int
	winnerAtLevel     bool
}

func (s *progressionService) collectLevelStats(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, level models.TournamentLevel) (levelStats, error) {
	var stats levelStats
	var err error

	stats.counts, err = s.matchRepo.CountByTournamentLevel(ctx, exec, tournamentID, level)
	if err != nil {
		return stats, err
	}

	if level.HasGroups() {
		stats.groupsWithMatches, err = s.matchRepo.GroupsWithMatches(ctx, exec, tournamentID, level)
		if err != nil {
			return stats, err
		}
		stats.groupsWithWinners, err = s.winnerRepo.GroupsWithWinners(ctx, exec, tournamentID, level)
		if err != nil {
			return stats, err
		}
		return stats, nil
	}

	stats.winnerAtLevel, err = s.winnerRepo.ExistsAtLevel(ctx, exec, tournamentID, level)
	return stats, err
}

// levelCompleted: for grouped levels, every group that has matches must
// have a recorded winner. Completeness is defined by the presence of
// winner rows, not merely by all matches finishing: the winner recorder
// runs after the last match and its output is what opens the gate.
// National and special levels have no groups; a single winner row at
// the level is the outcome.
func levelCompleted(level models.TournamentLevel, stats levelStats) bool {
	if !level.HasGroups() {
		return stats.winnerAtLevel
	}
	if len(stats.groupsWithMatches) == 0 {
		return false
	}
	return subsetOf(stats.groupsWithMatches, stats.groupsWithWinners)
}

func subsetOf(subset, superset []int) bool {
	members := make(map[int]struct{}, len(superset))
	for _, id := range superset {
		members[id] = struct{}{}
	}
	for _, id := range subset {
		if _, ok := members[id]; !ok {
			return false
		}
	}
	return true
}

func (s *progressionService) GetLevelProgress(ctx context.Context, tournamentID int) ([]LevelProgress, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	ladder := ladderFor(tournament)
	allStats := make([]levelStats, len(ladder))

	g, gCtx := errgroup.WithContext(ctx)
	for i, level := range ladder {
		i, level := i, level
		g.Go(func() error {
			stats, statErr := s.collectLevelStats(gCtx, nil, tournamentID, level)
			if statErr != nil {
				return fmt.Errorf("failed to collect stats for level %s: %w", level, statErr)
			}
			allStats[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fold over the ladder: each level's gate depends on the one before.
	progress := make([]LevelProgress, len(ladder))
	prevCompleted := false
	for i, level := range ladder {
		stats := allStats[i]
		p := LevelProgress{
			Level:               level,
			HasMatches:          stats.counts.Total > 0,
			AllMatchesCompleted: stats.counts.Total > 0 && stats.counts.Finished == stats.counts.Total,
			Completed:           levelCompleted(level, stats),
			TotalMatches:        stats.counts.Total,
			FinishedMatches:     stats.counts.Finished,
			GroupsWithMatches:   stats.groupsWithMatches,
			GroupsWithWinners:   stats.groupsWithWinners,
		}
		p.CanInitialize = s.canInitialize(tournament, i, prevCompleted, stats)
		progress[i] = p
		prevCompleted = p.Completed
	}
	return progress, nil
}

func (s *progressionService) canInitialize(t *models.Tournament, ladderIndex int, prevCompleted bool, stats levelStats) bool {
	if t.Status == models.TournamentStatusCanceled || t.Status == models.TournamentStatusCompleted {
		return false
	}
	if stats.counts.Total > 0 {
		return false
	}
	if ladderIndex == 0 {
		return t.Started(s.now())
	}
	return prevCompleted
}

// InitializeLevel validates the gate and invokes the pairing generator,
// all inside one transaction holding the tournament row lock. A
// concurrent duplicate call blocks on the lock, re-reads the match
// count and fails with ErrLevelAlreadyInitialized. A generator failure
// rolls back everything, including the upcoming->active status flip.
func (s *progressionService) InitializeLevel(ctx context.Context, tournamentID int, level models.TournamentLevel) (*InitializeLevelResult, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}

	result := &InitializeLevelResult{Level: level}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, txErr := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if txErr != nil {
			if errors.Is(txErr, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return txErr
		}

		ladder := ladderFor(tournament)
		ladderIndex := -1
		for i, l := range ladder {
			if l == level {
				ladderIndex = i
				break
			}
		}
		if ladderIndex < 0 {
			return fmt.Errorf("%w: %s", ErrLevelNotInLadder, level)
		}
		if tournament.Status == models.TournamentStatusCanceled || tournament.Status == models.TournamentStatusCompleted {
			return fmt.Errorf("%w: tournament is %s", ErrCannotInitializeLevel, tournament.Status)
		}

		counts, txErr := s.matchRepo.CountByTournamentLevel(ctx, exec, tournamentID, level)
		if txErr != nil {
			return txErr
		}
		if counts.Total > 0 {
			return fmt.Errorf("%w: level %s", ErrLevelAlreadyInitialized, level)
		}

		if ladderIndex == 0 {
			if !tournament.Started(s.now()) {
				return fmt.Errorf("%w: tournament start date not reached", ErrCannotInitializeLevel)
			}
		} else {
			prevLevel := ladder[ladderIndex-1]
			prevStats, statErr := s.collectLevelStats(ctx, exec, tournamentID, prevLevel)
			if statErr != nil {
				return statErr
			}
			if !levelCompleted(prevLevel, prevStats) {
				return fmt.Errorf("%w: level %s is not completed", ErrCannotInitializeLevel, prevLevel)
			}
		}

		created, genErr := s.generator.Initialize(ctx, exec, tournament, level)
		if genErr != nil {
			return fmt.Errorf("pairing generation failed for tournament %d level %s: %w", tournamentID, level, genErr)
		}
		result.MatchesCreated = created

		if tournament.Status == models.TournamentStatusUpcoming {
			return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentStatusActive)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament level initialized",
		slog.Int("tournament_id", tournamentID),
		slog.String("level", string(level)),
		slog.Int("matches_created", result.MatchesCreated),
		slog.String("generator", s.generator.GetName()),
	)
	if s.hub != nil {
		s.hub.BroadcastToTournament(tournamentID, live.Message{
			Type:    live.EventLevelInitialized,
			Payload: result,
		})
	}
	return result, nil
}
