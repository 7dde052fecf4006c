package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
	"github.com/cuelane/pool-league-system/storage"
)

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UserService interface {
	TotalPointsRecalculator
	GetProfile(ctx context.Context, userID int) (*models.User, error)
	UploadAvatar(ctx context.Context, userID int, reader io.Reader, contentType string) (*models.User, error)
}

type userService struct {
	userRepo  repositories.UserRepository
	matchRepo repositories.MatchRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:  userRepo,
		matchRepo: matchRepo,
		uploader:  uploader,
		logger:    logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.attachLogoURL(user)
	return user, nil
}

// RecomputeTotalPoints rebuilds the stored total from finished matches.
// The total is a derived value; recomputing instead of incrementing
// keeps it correct when a result is corrected or a match is removed.
func (s *userService) RecomputeTotalPoints(ctx context.Context, playerID int) error {
	total, err := s.matchRepo.SumPointsByPlayer(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to sum points for player %d: %w", playerID, err)
	}
	if err := s.userRepo.UpdateTotalPoints(ctx, playerID, total); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID int, reader io.Reader, contentType string) (*models.User, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", ErrValidationFailed)
	}
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported avatar content type %q", ErrValidationFailed, contentType)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("avatars/user_%d%s", userID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if err := s.userRepo.UpdateLogoKey(ctx, userID, &result.Key); err != nil {
		return nil, err
	}
	if user.LogoKey != nil && *user.LogoKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *user.LogoKey); delErr != nil {
			s.logger.Warn("failed to delete previous avatar",
				slog.Int("user_id", userID),
				slog.String("key", *user.LogoKey),
				slog.Any("error", delErr))
		}
	}

	user.LogoKey = &result.Key
	s.attachLogoURL(user)
	return user, nil
}

func (s *userService) attachLogoURL(user *models.User) {
	if s.uploader == nil || user.LogoKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*user.LogoKey)
	if url != "" {
		user.LogoURL = &url
	}
}
