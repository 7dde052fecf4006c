package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuelane/pool-league-system/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationConflict = errors.New("player is already registered for this tournament")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id int) (*models.Registration, error)
	GetByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	// ListConfirmedByTournament loads confirmed registrations with user
	// details, the draw input for community and special pairing.
	ListConfirmedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error)
	UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error
	Delete(ctx context.Context, id int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (user_id, tournament_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, reg.UserID, reg.TournamentID, reg.Status).
		Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrRegistrationConflict
			case "23503":
				if pqErr.Constraint == "registrations_tournament_id_fkey" {
					return ErrTournamentNotFound
				}
				return ErrUserNotFound
			}
		}
		return err
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	query := `SELECT id, user_id, tournament_id, status, created_at FROM registrations WHERE id = $1`

	reg := &models.Registration{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&reg.ID, &reg.UserID, &reg.TournamentID, &reg.Status, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration by id %d: %w", id, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) GetByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	query := `SELECT id, user_id, tournament_id, status, created_at FROM registrations WHERE user_id = $1 AND tournament_id = $2`

	reg := &models.Registration{}
	err := r.db.QueryRowContext(ctx, query, userID, tournamentID).
		Scan(&reg.ID, &reg.UserID, &reg.TournamentID, &reg.Status, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration for user %d tournament %d: %w", userID, tournamentID, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListConfirmedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT r.id, r.user_id, r.tournament_id, r.status, r.created_at,
		       u.id, u.first_name, u.last_name, u.nickname, u.email, u.role, u.total_points,
		       u.community_id, u.county_id, u.region_id, u.created_at
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.tournament_id = $1 AND r.status = $2
		ORDER BY r.id`

	rows, err := executor.QueryContext(ctx, query, tournamentID, models.RegistrationStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		var user models.User
		if scanErr := rows.Scan(
			&reg.ID, &reg.UserID, &reg.TournamentID, &reg.Status, &reg.CreatedAt,
			&user.ID, &user.FirstName, &user.LastName, &user.Nickname, &user.Email, &user.Role, &user.TotalPoints,
			&user.CommunityID, &user.CountyID, &user.RegionID, &user.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", scanErr)
		}
		reg.User = &user
		regs = append(regs, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during registration rows iteration: %w", err)
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE registrations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
