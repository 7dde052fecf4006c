package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cuelane/pool-league-system/live"
	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
	"github.com/cuelane/pool-league-system/storage"
)

var logoExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

type CreateTournamentInput struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Special     bool      `json:"special"`
	StartDate   time.Time `json:"start_date"`
}

type UpdateTournamentInput struct {
	Name        *string                  `json:"name,omitempty"`
	Description *string                  `json:"description,omitempty"`
	StartDate   *time.Time               `json:"start_date,omitempty"`
	Status      *models.TournamentStatus `json:"status,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int, withMatches bool) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, id int) error
	UploadLogo(ctx context.Context, id int, reader io.Reader, contentType string) (*models.Tournament, error)
	CompleteFinished(ctx context.Context) (int, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	winnerRepo     repositories.WinnerRepository
	uploader       storage.FileUploader
	hub            *live.Hub
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	winnerRepo repositories.WinnerRepository,
	uploader storage.FileUploader,
	hub *live.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		winnerRepo:     winnerRepo,
		uploader:       uploader,
		hub:            hub,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if input.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Description: input.Description,
		Special:     input.Special,
		StartDate:   input.StartDate,
		Status:      models.TournamentStatusUpcoming,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameTaken
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) Get(ctx context.Context, id int, withMatches bool) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.attachLogoURL(tournament)

	if withMatches {
		matches, err := s.matchRepo.ListByTournament(ctx, id, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load tournament matches: %w", err)
		}
		tournament.Matches = make([]models.Match, len(matches))
		for i, m := range matches {
			tournament.Matches[i] = *m
		}
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.attachLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: tournament name cannot be empty", ErrValidationFailed)
		}
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.Status != nil {
		switch *input.Status {
		case models.TournamentStatusUpcoming, models.TournamentStatusActive,
			models.TournamentStatusCompleted, models.TournamentStatusCanceled:
			tournament.Status = *input.Status
		default:
			return nil, fmt.Errorf("%w: invalid tournament status %q", ErrValidationFailed, *input.Status)
		}
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameTaken
		}
		return nil, err
	}
	s.attachLogoURL(tournament)
	return tournament, nil
}

// Delete removes the tournament with its matches, winners and
// registrations through foreign key cascades.
func (s *tournamentService) Delete(ctx context.Context, id int) error {
	err := s.tournamentRepo.Delete(ctx, id)
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, reader io.Reader, contentType string) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}
	ext, ok := logoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported logo content type %q", ErrValidationFailed, contentType)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("tournaments/logo_%d%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	if tournament.LogoKey != nil && *tournament.LogoKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *tournament.LogoKey); delErr != nil {
			s.logger.Warn("failed to delete previous logo",
				slog.Int("tournament_id", id),
				slog.String("key", *tournament.LogoKey),
				slog.Any("error", delErr))
		}
	}

	tournament.LogoKey = &result.Key
	s.attachLogoURL(tournament)
	return tournament, nil
}

// CompleteFinished sweeps active tournaments and completes the ones
// whose final winner has been recorded. Driven by the background
// scheduler; errors on one tournament do not stop the sweep.
func (s *tournamentService) CompleteFinished(ctx context.Context) (int, error) {
	tournaments, err := s.tournamentRepo.ListActiveStartedBefore(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to list active tournaments: %w", err)
	}

	completed := 0
	for _, t := range tournaments {
		finalLevel := models.LevelNational
		if t.Special {
			finalLevel = models.LevelSpecial
		}
		done, existsErr := s.winnerRepo.ExistsAtLevel(ctx, nil, t.ID, finalLevel)
		if existsErr != nil {
			s.logger.Error("failed to check final winner",
				slog.Int("tournament_id", t.ID), slog.Any("error", existsErr))
			continue
		}
		if !done {
			continue
		}
		if updErr := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, models.TournamentStatusCompleted); updErr != nil {
			s.logger.Error("failed to complete tournament",
				slog.Int("tournament_id", t.ID), slog.Any("error", updErr))
			continue
		}
		completed++
		s.logger.Info("tournament completed", slog.Int("tournament_id", t.ID))
		if s.hub != nil {
			s.hub.BroadcastToTournament(t.ID, live.Message{
				Type:    live.EventTournamentFinished,
				Payload: map[string]interface{}{"tournament_id": t.ID},
			})
		}
	}
	return completed, nil
}

func (s *tournamentService) attachLogoURL(t *models.Tournament) {
	if s.uploader == nil || t.LogoKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*t.LogoKey)
	if url != "" {
		t.LogoURL = &url
	}
}
