package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationMatchScheduled     NotificationType = "match_scheduled"
	NotificationResultSubmitted    NotificationType = "result_submitted"
	NotificationResultConfirmed    NotificationType = "result_confirmed"
	NotificationResultRejected     NotificationType = "result_rejected"
	NotificationMatchForfeited     NotificationType = "match_forfeited"
	NotificationLevelInitialized   NotificationType = "level_initialized"
	NotificationTournamentFinished NotificationType = "tournament_finished"
)

type Notification struct {
	ID        int              `json:"id"`
	UserID    int              `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Data      json.RawMessage  `json:"data,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
