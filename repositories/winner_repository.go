package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuelane/pool-league-system/models"
)

var ErrWinnerNotFound = errors.New("winner record not found")

// WinnerRepository reads the level-outcome rows written by the winner
// recorder once a group's matches finish. This service never creates
// them; it only consumes them for gating and deletes them when an admin
// purges the matches they were derived from.
type WinnerRepository interface {
	GetByID(ctx context.Context, id int) (*models.Winner, error)
	ListByTournamentLevel(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) ([]*models.Winner, error)
	GroupsWithWinners(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) ([]int, error)
	ExistsAtLevel(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) (bool, error)
	DeleteForGroup(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel, groupID *int) (int64, error)
}

type postgresWinnerRepository struct {
	db *sql.DB
}

func NewPostgresWinnerRepository(db *sql.DB) WinnerRepository {
	return &postgresWinnerRepository{db: db}
}

func (r *postgresWinnerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWinnerRepository) GetByID(ctx context.Context, id int) (*models.Winner, error) {
	query := `
		SELECT id, player_id, tournament_id, level, position, level_id, created_at
		FROM winners
		WHERE id = $1`

	w := &models.Winner{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.PlayerID, &w.TournamentID, &w.Level, &w.Position, &w.LevelID, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWinnerNotFound
		}
		return nil, fmt.Errorf("failed to scan winner by id %d: %w", id, err)
	}
	return w, nil
}

func (r *postgresWinnerRepository) ListByTournamentLevel(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) ([]*models.Winner, error) {
	query := `
		SELECT id, player_id, tournament_id, level, position, level_id, created_at
		FROM winners
		WHERE tournament_id = $1 AND level = $2
		ORDER BY level_id ASC NULLS LAST, position ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners for tournament %d level %s: %w", tournamentID, level, err)
	}
	defer rows.Close()

	winners := make([]*models.Winner, 0)
	for rows.Next() {
		var w models.Winner
		if scanErr := rows.Scan(
			&w.ID, &w.PlayerID, &w.TournamentID, &w.Level, &w.Position, &w.LevelID, &w.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan winner row: %w", scanErr)
		}
		winners = append(winners, &w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during winner rows iteration: %w", err)
	}
	return winners, nil
}

func (r *postgresWinnerRepository) GroupsWithWinners(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) ([]int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT DISTINCT level_id
		FROM winners
		WHERE tournament_id = $1 AND level = $2 AND level_id IS NOT NULL
		ORDER BY level_id`

	rows, err := executor.QueryContext(ctx, query, tournamentID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query winner groups for tournament %d level %s: %w", tournamentID, level, err)
	}
	defer rows.Close()

	groups := make([]int, 0)
	for rows.Next() {
		var groupID int
		if scanErr := rows.Scan(&groupID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan winner group row: %w", scanErr)
		}
		groups = append(groups, groupID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during winner group rows iteration: %w", err)
	}
	return groups, nil
}

func (r *postgresWinnerRepository) ExistsAtLevel(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel) (bool, error) {
	executor := r.getExecutor(exec)
	query := `SELECT EXISTS (SELECT 1 FROM winners WHERE tournament_id = $1 AND level = $2)`

	var exists bool
	err := executor.QueryRowContext(ctx, query, tournamentID, level).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check winners for tournament %d level %s: %w", tournamentID, level, err)
	}
	return exists, nil
}

// DeleteForGroup removes recorded winners for a (tournament, level, group)
// scope. A nil groupID targets the flat national/special scope.
func (r *postgresWinnerRepository) DeleteForGroup(ctx context.Context, exec SQLExecutor, tournamentID int, level models.TournamentLevel, groupID *int) (int64, error) {
	executor := r.getExecutor(exec)

	var result sql.Result
	var err error
	if groupID == nil {
		result, err = executor.ExecContext(ctx,
			`DELETE FROM winners WHERE tournament_id = $1 AND level = $2 AND level_id IS NULL`,
			tournamentID, level)
	} else {
		result, err = executor.ExecContext(ctx,
			`DELETE FROM winners WHERE tournament_id = $1 AND level = $2 AND level_id = $3`,
			tournamentID, level, *groupID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete winners for tournament %d level %s: %w", tournamentID, level, err)
	}
	return result.RowsAffected()
}
