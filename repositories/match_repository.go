package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuelane/pool-league-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchPlayerInvalid     = errors.New("match player conflict or invalid")
	ErrMatchWinnerInvalid     = errors.New("match winner conflict or invalid")
)

// LevelMatchCounts is the per-level aggregate the progression gate reads.
type LevelMatchCounts struct {
	Total    int
	Finished int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row for the duration of the
	// surrounding transaction. Every player-initiated mutation goes
	// through this so concurrent submits/forfeits serialize.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, level *models.TournamentLevel, status *models.MatchStatus) ([]*models.Match, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error)
	UpdateSchedule(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	CountByTournamentLevel(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) (LevelMatchCounts, error)
	GroupsWithMatches(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) ([]int, error)
	SumPointsByPlayer(ctx context.Context, playerID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, level, group_id,
	player_1_id, player_2_id, bye_player_id,
	proposed_dates, player_1_preferred_dates, player_2_preferred_dates, scheduled_date,
	player_1_points, player_2_points, winner_id, submitted_by,
	status, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Level, &m.GroupID,
		&m.Player1ID, &m.Player2ID, &m.ByePlayerID,
		pq.Array(&m.ProposedDates), pq.Array(&m.Player1PreferredDates), pq.Array(&m.Player2PreferredDates), &m.ScheduledDate,
		&m.Player1Points, &m.Player2Points, &m.WinnerID, &m.SubmittedBy,
		&m.Status, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(tournament_id, level, group_id, player_1_id, player_2_id, bye_player_id,
			 proposed_dates, player_1_preferred_dates, player_2_preferred_dates, scheduled_date,
			 player_1_points, player_2_points, winner_id, submitted_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.TournamentID,
		match.Level,
		match.GroupID,
		match.Player1ID,
		match.Player2ID,
		match.ByePlayerID,
		pq.Array(match.ProposedDates),
		pq.Array(match.Player1PreferredDates),
		pq.Array(match.Player2PreferredDates),
		match.ScheduledDate,
		match.Player1Points,
		match.Player2Points,
		match.WinnerID,
		match.SubmittedBy,
		match.Status,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`

	match, err := scanMatch(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to lock match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, levelFilter *models.TournamentLevel, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if levelFilter != nil {
		queryBuilder.WriteString(" AND level = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *levelFilter)
		placeholderIndex++
	}

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
	}

	queryBuilder.WriteString(" ORDER BY group_id ASC NULLS LAST, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

func (r *postgresMatchRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE player_1_id = $1 OR player_2_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for player %d: %w", playerID, err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

func collectMatches(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

// UpdateSchedule persists the date-negotiation fields and status.
func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET proposed_dates = $1, player_1_preferred_dates = $2, player_2_preferred_dates = $3,
		    scheduled_date = $4, status = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		pq.Array(match.ProposedDates),
		pq.Array(match.Player1PreferredDates),
		pq.Array(match.Player2PreferredDates),
		match.ScheduledDate,
		match.Status,
		match.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// UpdateResult persists the result-confirmation fields and status.
func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET player_1_points = $1, player_2_points = $2, winner_id = $3, submitted_by = $4, status = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		match.Player1Points,
		match.Player2Points,
		match.WinnerID,
		match.SubmittedBy,
		match.Status,
		match.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountByTournamentLevel(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) (LevelMatchCounts, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ($3, $4))
		FROM matches
		WHERE tournament_id = $1 AND level = $2`

	var counts LevelMatchCounts
	err := executor.QueryRowContext(ctx, query,
		tournamentID, level, models.MatchStatusCompleted, models.MatchStatusForfeit,
	).Scan(&counts.Total, &counts.Finished)
	if err != nil {
		return LevelMatchCounts{}, fmt.Errorf("failed to count matches for tournament %d level %s: %w", tournamentID, level, err)
	}
	return counts, nil
}

func (r *postgresMatchRepository) GroupsWithMatches(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) ([]int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT DISTINCT group_id
		FROM matches
		WHERE tournament_id = $1 AND level = $2 AND group_id IS NOT NULL
		ORDER BY group_id`

	rows, err := executor.QueryContext(ctx, query, tournamentID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query match groups for tournament %d level %s: %w", tournamentID, level, err)
	}
	defer rows.Close()

	groups := make([]int, 0)
	for rows.Next() {
		var groupID int
		if scanErr := rows.Scan(&groupID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match group row: %w", scanErr)
		}
		groups = append(groups, groupID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match group rows iteration: %w", err)
	}
	return groups, nil
}

// SumPointsByPlayer totals a player's points over finished matches.
// Forfeits count: the reporter carries the default-win score there.
func (r *postgresMatchRepository) SumPointsByPlayer(ctx context.Context, playerID int) (int, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE
				WHEN player_1_id = $1 THEN player_1_points
				WHEN player_2_id = $1 THEN player_2_points
			END), 0)
		FROM matches
		WHERE status IN ($2, $3) AND (player_1_id = $1 OR player_2_id = $1)`

	var total int
	err := r.db.QueryRowContext(ctx, query,
		playerID, models.MatchStatusCompleted, models.MatchStatusForfeit,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum points for player %d: %w", playerID, err)
	}
	return total, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		// "23503": foreign_key_violation
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_player_1_id_fkey", "matches_player_2_id_fkey", "matches_bye_player_id_fkey":
			return ErrMatchPlayerInvalid
		case "matches_winner_id_fkey", "matches_submitted_by_fkey":
			return ErrMatchWinnerInvalid
		}
	}
	return err
}
