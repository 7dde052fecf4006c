package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
)

const (
	minProposedDates = 3
	maxProposedDates = 7
)

// TotalPointsRecalculator recomputes a player's aggregate points after a
// match reaches a final outcome.
type TotalPointsRecalculator interface {
	RecomputeTotalPoints(ctx context.Context, playerID int) error
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, level *models.TournamentLevel) ([]*models.Match, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error)

	ProposeDates(ctx context.Context, matchID, callerID int, dates []time.Time) (*models.Match, error)
	SelectDates(ctx context.Context, matchID, callerID int, dates []time.Time) (*models.Match, error)
	SubmitResult(ctx context.Context, matchID, callerID, player1Points, player2Points int) (*models.Match, error)
	ConfirmResult(ctx context.Context, matchID, callerID int, confirm bool) (*models.Match, error)
	ReportForfeit(ctx context.Context, matchID, callerID int) (*models.Match, error)

	// DeleteMatch is the admin escape hatch outside the normal state
	// machine: it removes the match together with any winner rows
	// recorded for its level and group.
	DeleteMatch(ctx context.Context, matchID, adminID int) error
}

type matchService struct {
	tx         repositories.TxManager
	matchRepo  repositories.MatchRepository
	winnerRepo repositories.WinnerRepository
	userStats  TotalPointsRecalculator
	notifier   Notifier
	logger     *slog.Logger

	forfeitWinnerPoints int
}

func NewMatchService(
	tx repositories.TxManager,
	matchRepo repositories.MatchRepository,
	winnerRepo repositories.WinnerRepository,
	userStats TotalPointsRecalculator,
	notifier Notifier,
	logger *slog.Logger,
	forfeitWinnerPoints int,
) MatchService {
	return &matchService{
		tx:                  tx,
		matchRepo:           matchRepo,
		winnerRepo:          winnerRepo,
		userStats:           userStats,
		notifier:            notifier,
		logger:              logger,
		forfeitWinnerPoints: forfeitWinnerPoints,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, level *models.TournamentLevel) ([]*models.Match, error) {
	if level != nil && !level.Valid() {
		return nil, ErrInvalidLevel
	}
	return s.matchRepo.ListByTournament(ctx, tournamentID, level, nil)
}

func (s *matchService) ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error) {
	return s.matchRepo.ListByPlayer(ctx, playerID)
}

// ProposeDates overwrites the candidate-date set for a match. The last
// writer wins, both players' earlier selections are discarded with it:
// a preference is only meaningful against the proposal it answered.
func (s *matchService) ProposeDates(ctx context.Context, matchID, callerID int, dates []time.Time) (*models.Match, error) {
	if len(dates) < minProposedDates || len(dates) > maxProposedDates {
		return nil, fmt.Errorf("%w: got %d", ErrProposedDatesCount, len(dates))
	}
	now := time.Now()
	for _, d := range dates {
		if !d.After(now) {
			return nil, fmt.Errorf("%w: %s", ErrProposedDateInPast, d.Format(time.RFC3339))
		}
	}

	var match *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		match, txErr = s.lockMatchForPlayer(ctx, exec, matchID, callerID)
		if txErr != nil {
			return txErr
		}
		if match.Status != models.MatchStatusPending {
			return fmt.Errorf("%w: cannot propose dates while %s", ErrMatchInvalidState, match.Status)
		}

		match.ProposedDates = dates
		match.Player1PreferredDates = nil
		match.Player2PreferredDates = nil
		return s.matchRepo.UpdateSchedule(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// SelectDates records the caller's preferred subset. Once both players
// have selected, the first common date in proposal order becomes the
// scheduled date and the match moves to scheduled. An empty
// intersection leaves the match untouched; someone has to re-propose.
func (s *matchService) SelectDates(ctx context.Context, matchID, callerID int, dates []time.Time) (*models.Match, error) {
	if len(dates) == 0 {
		return nil, ErrPreferredDatesEmpty
	}

	var match *models.Match
	var scheduled bool
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		match, txErr = s.lockMatchForPlayer(ctx, exec, matchID, callerID)
		if txErr != nil {
			return txErr
		}
		if match.Status != models.MatchStatusPending {
			return fmt.Errorf("%w: cannot select dates while %s", ErrMatchInvalidState, match.Status)
		}
		for _, d := range dates {
			if !containsDate(match.ProposedDates, d) {
				return fmt.Errorf("%w: %s", ErrDateNotProposed, d.Format(time.RFC3339))
			}
		}

		if *match.Player1ID == callerID {
			match.Player1PreferredDates = dates
		} else {
			match.Player2PreferredDates = dates
		}

		if match.Player1PreferredDates != nil && match.Player2PreferredDates != nil {
			common := intersectByProposalOrder(match.ProposedDates, match.Player1PreferredDates, match.Player2PreferredDates)
			if len(common) > 0 {
				first := common[0]
				match.ScheduledDate = &first
				match.Status = models.MatchStatusScheduled
				scheduled = true
			}
		}
		return s.matchRepo.UpdateSchedule(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	if scheduled {
		data := map[string]interface{}{"match_id": match.ID, "scheduled_date": match.ScheduledDate}
		s.notify(ctx, match.Player1ID, models.NotificationMatchScheduled, "Your match has been scheduled.", data)
		s.notify(ctx, match.Player2ID, models.NotificationMatchScheduled, "Your match has been scheduled.", data)
	}
	return match, nil
}

// SubmitResult records a claimed score and parks the match in
// pending_confirmation until the opponent responds. Drawn scores are
// rejected outright: pool knockouts have no tie.
func (s *matchService) SubmitResult(ctx context.Context, matchID, callerID, player1Points, player2Points int) (*models.Match, error) {
	if player1Points < 0 || player2Points < 0 {
		return nil, ErrNegativePoints
	}
	if player1Points == player2Points {
		return nil, ErrEqualPoints
	}

	var match *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		match, txErr = s.lockMatchForPlayer(ctx, exec, matchID, callerID)
		if txErr != nil {
			return txErr
		}
		if match.Status != models.MatchStatusScheduled && match.Status != models.MatchStatusInProgress {
			return fmt.Errorf("%w: cannot submit a result while %s", ErrMatchInvalidState, match.Status)
		}

		winnerID := *match.Player2ID
		if player1Points > player2Points {
			winnerID = *match.Player1ID
		}

		match.Player1Points = &player1Points
		match.Player2Points = &player2Points
		match.WinnerID = &winnerID
		match.SubmittedBy = &callerID
		match.Status = models.MatchStatusPendingConfirmation
		return s.matchRepo.UpdateResult(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, match.Opponent(callerID), models.NotificationResultSubmitted,
		"Your opponent submitted a match result. Please confirm or reject it.",
		map[string]interface{}{"match_id": match.ID})
	return match, nil
}

// ConfirmResult is the second half of the two-party protocol. Only the
// non-submitting player may call it. Accepting finalizes the match;
// rejecting wipes the submission and returns the match to scheduled.
// There is no cap on reject/resubmit cycles.
func (s *matchService) ConfirmResult(ctx context.Context, matchID, callerID int, confirm bool) (*models.Match, error) {
	var match *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		match, txErr = s.lockMatchForPlayer(ctx, exec, matchID, callerID)
		if txErr != nil {
			return txErr
		}
		if match.Status != models.MatchStatusPendingConfirmation {
			return fmt.Errorf("%w: no result is awaiting confirmation", ErrMatchInvalidState)
		}
		if match.SubmittedBy != nil && *match.SubmittedBy == callerID {
			return ErrSelfConfirmation
		}

		if confirm {
			match.Status = models.MatchStatusCompleted
		} else {
			match.Player1Points = nil
			match.Player2Points = nil
			match.WinnerID = nil
			match.SubmittedBy = nil
			match.Status = models.MatchStatusScheduled
		}
		return s.matchRepo.UpdateResult(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	if confirm {
		s.recomputeTotals(ctx, match)
		data := map[string]interface{}{"match_id": match.ID, "winner_id": match.WinnerID}
		s.notify(ctx, match.Player1ID, models.NotificationResultConfirmed, "Your match result has been confirmed.", data)
		s.notify(ctx, match.Player2ID, models.NotificationResultConfirmed, "Your match result has been confirmed.", data)
	} else {
		s.notify(ctx, match.Opponent(callerID), models.NotificationResultRejected,
			"Your submitted result was rejected. Please resubmit.",
			map[string]interface{}{"match_id": match.ID})
	}
	return match, nil
}

// ReportForfeit is unilateral and immediately final: the reporter is
// declared winner with the configured default-win score, the opponent
// gets zero. No confirmation from the opponent is required.
func (s *matchService) ReportForfeit(ctx context.Context, matchID, callerID int) (*models.Match, error) {
	var match *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var txErr error
		match, txErr = s.lockMatchForPlayer(ctx, exec, matchID, callerID)
		if txErr != nil {
			return txErr
		}
		if match.Status.IsFinal() {
			return fmt.Errorf("%w: match already has a final outcome", ErrMatchInvalidState)
		}

		winnerPoints := s.forfeitWinnerPoints
		loserPoints := 0
		if *match.Player1ID == callerID {
			match.Player1Points = &winnerPoints
			match.Player2Points = &loserPoints
		} else {
			match.Player1Points = &loserPoints
			match.Player2Points = &winnerPoints
		}
		match.WinnerID = &callerID
		match.SubmittedBy = nil
		match.Status = models.MatchStatusForfeit
		return s.matchRepo.UpdateResult(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.recomputeTotals(ctx, match)
	s.notify(ctx, match.Opponent(callerID), models.NotificationMatchForfeited,
		"Your opponent reported a forfeit. The match has been closed.",
		map[string]interface{}{"match_id": match.ID, "winner_id": callerID})
	return match, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, matchID, adminID int) error {
	var removedWinners int64
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, txErr := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if txErr != nil {
			if errors.Is(txErr, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return txErr
		}

		removedWinners, txErr = s.winnerRepo.DeleteForGroup(ctx, exec, match.TournamentID, match.Level, match.GroupID)
		if txErr != nil {
			return txErr
		}
		return s.matchRepo.Delete(ctx, exec, matchID)
	})
	if err != nil {
		return err
	}

	s.logger.Warn("match force-deleted by admin",
		slog.Int("match_id", matchID),
		slog.Int("admin_id", adminID),
		slog.Int64("winners_removed", removedWinners),
	)
	return nil
}

// lockMatchForPlayer loads the match under a row lock and verifies the
// caller plays in it. Matches with an open player slot (byes) have no
// negotiable lifecycle.
func (s *matchService) lockMatchForPlayer(ctx context.Context, exec repositories.SQLExecutor, matchID, callerID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if !match.HasParticipant(callerID) {
		return nil, ErrNotMatchPlayer
	}
	if match.Player1ID == nil || match.Player2ID == nil {
		return nil, ErrMatchHasNoOpponent
	}
	return match, nil
}

// recomputeTotals refreshes both players' aggregate points. Failures
// are logged and swallowed: totals are derived data and must never
// undo a committed transition.
func (s *matchService) recomputeTotals(ctx context.Context, match *models.Match) {
	for _, playerID := range []*int{match.Player1ID, match.Player2ID} {
		if playerID == nil {
			continue
		}
		if err := s.userStats.RecomputeTotalPoints(ctx, *playerID); err != nil {
			s.logger.Error("failed to recompute total points",
				slog.Int("player_id", *playerID),
				slog.Int("match_id", match.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (s *matchService) notify(ctx context.Context, playerID *int, typ models.NotificationType, message string, data interface{}) {
	if playerID == nil {
		return
	}
	if err := s.notifier.Notify(ctx, *playerID, typ, message, data); err != nil {
		s.logger.Error("failed to deliver notification",
			slog.Int("player_id", *playerID),
			slog.String("type", string(typ)),
			slog.Any("error", err),
		)
	}
}

func containsDate(dates []time.Time, d time.Time) bool {
	for _, candidate := range dates {
		if candidate.Equal(d) {
			return true
		}
	}
	return false
}

// intersectByProposalOrder keeps the proposal's own ordering: the first
// proposed date both players picked wins.
func intersectByProposalOrder(proposed, first, second []time.Time) []time.Time {
	common := make([]time.Time, 0, len(proposed))
	for _, d := range proposed {
		if containsDate(first, d) && containsDate(second, d) {
			common = append(common, d)
		}
	}
	return common
}
