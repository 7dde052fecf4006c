package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuelane/pool-league-system/live"
	"github.com/cuelane/pool-league-system/models"
	"github.com/cuelane/pool-league-system/repositories"
)

// Notifier delivers a notification to one player. Implementations must
// tolerate being called after the triggering transaction committed:
// delivery failure is reported but never undoes the state change.
type Notifier interface {
	Notify(ctx context.Context, playerID int, typ models.NotificationType, message string, data interface{}) error
}

// EmailSender is the subset of the mail layer notifications need.
type EmailSender interface {
	SendEmail(to []string, subject, body string) error
}

type NotificationService interface {
	Notifier
	ListForUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	hub              *live.Hub
	email            EmailSender
	logger           *slog.Logger
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	hub *live.Hub,
	email EmailSender,
	logger *slog.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		hub:              hub,
		email:            email,
		logger:           logger,
	}
}

// Notify persists the notification, then pushes it over the user's
// websocket room and, for types players are expected to act on, sends
// an email. Push and email failures are logged only; the stored row is
// the source of truth.
func (s *notificationService) Notify(ctx context.Context, playerID int, typ models.NotificationType, message string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	notification := &models.Notification{
		UserID:  playerID,
		Type:    typ,
		Message: message,
		Data:    payload,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastToUser(playerID, live.Message{
			Type:    live.EventNotification,
			Payload: notification,
		})
	}

	if s.email != nil && emailWorthy(typ) {
		if err := s.sendEmail(ctx, playerID, typ, message); err != nil {
			s.logger.Warn("failed to email notification",
				slog.Int("user_id", playerID),
				slog.String("type", string(typ)),
				slog.Any("error", err))
		}
	}
	return nil
}

// emailWorthy limits email to events that need a response or change a
// scheduled commitment. Pure status updates stay in-app.
func emailWorthy(typ models.NotificationType) bool {
	switch typ {
	case models.NotificationMatchScheduled,
		models.NotificationResultSubmitted,
		models.NotificationMatchForfeited:
		return true
	default:
		return false
	}
}

func (s *notificationService) sendEmail(ctx context.Context, playerID int, typ models.NotificationType, message string) error {
	user, err := s.userRepo.GetByID(ctx, playerID)
	if err != nil {
		return err
	}
	subject := emailSubject(typ)
	body := fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>Open the app for details.</p>", user.FirstName, message)
	return s.email.SendEmail([]string{user.Email}, subject, body)
}

func emailSubject(typ models.NotificationType) string {
	switch typ {
	case models.NotificationMatchScheduled:
		return "Your match has been scheduled"
	case models.NotificationResultSubmitted:
		return "A match result awaits your confirmation"
	case models.NotificationMatchForfeited:
		return "Your match was closed by forfeit"
	default:
		return "Pool league update"
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID int) error {
	err := s.notificationRepo.MarkRead(ctx, notificationID, userID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return ErrNotFound
	}
	return err
}
