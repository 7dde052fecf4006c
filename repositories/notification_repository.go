package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuelane/pool-league-system/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id int, userID int) error
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, message, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	data := []byte(n.Data)
	if len(data) == 0 {
		data = nil
	}
	err := r.db.QueryRowContext(ctx, query, n.UserID, n.Type, n.Message, data).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification for user %d: %w", n.UserID, err)
	}
	return nil
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, message, data, read_at, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		var data sql.NullString
		if scanErr := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &data, &n.ReadAt, &n.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", scanErr)
		}
		if data.Valid {
			n.Data = []byte(data.String)
		}
		notifications = append(notifications, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during notification rows iteration: %w", err)
	}
	return notifications, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id int, userID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}
