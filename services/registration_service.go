package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
)

type RegistrationService interface {
	Register(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	Confirm(ctx context.Context, registrationID int) (*models.Registration, error)
	Withdraw(ctx context.Context, userID, tournamentID int) error
	ListConfirmed(ctx context.Context, tournamentID int) ([]*models.Registration, error)
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
	}
}

// Register enters a player for a tournament that has not started.
// Community pairing groups players by their community, so a player
// without one cannot enter a hierarchical tournament.
func (s *registrationService) Register(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.TournamentStatusUpcoming {
		return nil, fmt.Errorf("%w: registration is only open before the tournament starts", ErrValidationFailed)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !tournament.Special && user.CommunityID == nil {
		return nil, fmt.Errorf("%w: player has no community assigned", ErrValidationFailed)
	}

	registration := &models.Registration{
		UserID:       userID,
		TournamentID: tournamentID,
		Status:       models.RegistrationStatusPending,
	}
	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return nil, ErrRegistrationConflict
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	return registration, nil
}

// Confirm marks a registration as confirmed, admitting the player to
// the draw. Entry-fee handling happens outside this system; whatever
// settles the fee calls Confirm.
func (s *registrationService) Confirm(ctx context.Context, registrationID int) (*models.Registration, error) {
	registration, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if registration.Status == models.RegistrationStatusWithdrawn {
		return nil, ErrRegistrationWithdrawn
	}
	if registration.Status == models.RegistrationStatusConfirmed {
		return registration, nil
	}

	if err := s.registrationRepo.UpdateStatus(ctx, registrationID, models.RegistrationStatusConfirmed); err != nil {
		return nil, err
	}
	registration.Status = models.RegistrationStatusConfirmed
	return registration, nil
}

func (s *registrationService) Withdraw(ctx context.Context, userID, tournamentID int) error {
	registration, err := s.registrationRepo.GetByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrNotFound
		}
		return err
	}
	if registration.Status == models.RegistrationStatusWithdrawn {
		return nil
	}
	return s.registrationRepo.UpdateStatus(ctx, registration.ID, models.RegistrationStatusWithdrawn)
}

func (s *registrationService) ListConfirmed(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	return s.registrationRepo.ListConfirmedByTournament(ctx, nil, tournamentID)
}
