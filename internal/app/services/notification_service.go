package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/email"
	"github.com/yigit/classroom/internal/pkg/websocket"
)

// EventNotification is the websocket event type carrying a new notification
const EventNotification = "notification"

// NotificationPayload is the content shared by every recipient of a notification
type NotificationPayload struct {
	Type    models.NotificationType
	Title   string
	Body    string
	Link    string
	ClassID *int64
}

// NotificationService persists notifications and pushes them to connected users
type NotificationService struct {
	notificationRepo repositories.INotificationRepository
	userRepo         repositories.IUserRepository
	publisher        websocket.Publisher
	mailer           email.Sender
	logger           zerolog.Logger
	now              func() time.Time
}

// NewNotificationService creates a new NotificationService. publisher and mailer may be nil.
func NewNotificationService(
	notificationRepo repositories.INotificationRepository,
	userRepo repositories.IUserRepository,
	publisher websocket.Publisher,
	mailer email.Sender,
	logger zerolog.Logger,
	now func() time.Time,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		publisher:        publisher,
		mailer:           mailer,
		logger:           logger,
		now:              now,
	}
}

// Notify stores one notification per recipient and pushes each to the recipient's room.
// Failures are logged and never returned: the triggering operation has already succeeded.
func (s *NotificationService) Notify(ctx context.Context, userIDs []int64, payload NotificationPayload) []*models.Notification {
	recipients := uniqueIDs(userIDs)
	if len(recipients) == 0 {
		return nil
	}

	now := s.now()
	notifications := make([]*models.Notification, 0, len(recipients))
	for _, id := range recipients {
		notifications = append(notifications, &models.Notification{
			UserID:    id,
			Type:      payload.Type,
			Title:     payload.Title,
			Body:      payload.Body,
			Link:      payload.Link,
			ClassID:   payload.ClassID,
			CreatedAt: now,
		})
	}

	if err := s.notificationRepo.CreateMany(ctx, notifications); err != nil {
		s.logger.Error().Err(err).
			Str("type", string(payload.Type)).
			Int("recipients", len(recipients)).
			Msg("Failed to store notifications")
		return nil
	}

	s.push(ctx, notifications)
	s.mail(ctx, recipients, payload)
	return notifications
}

func (s *NotificationService) push(ctx context.Context, notifications []*models.Notification) {
	if s.publisher == nil {
		return
	}
	for _, n := range notifications {
		event := websocket.Event{Type: EventNotification, Data: n, Timestamp: n.CreatedAt}
		if err := s.publisher.Publish(ctx, websocket.UserRoom(n.UserID), event); err != nil {
			s.logger.Warn().Err(err).
				Int64("userID", n.UserID).
				Int64("notificationID", n.ID).
				Msg("Failed to push notification")
		}
	}
}

// emailed lists the notification types that are also sent by email
var emailed = map[models.NotificationType]bool{
	models.NotificationSubmissionGraded: true,
	models.NotificationResponseGraded:   true,
}

func (s *NotificationService) mail(ctx context.Context, recipients []int64, payload NotificationPayload) {
	if s.mailer == nil || !emailed[payload.Type] {
		return
	}

	users, err := s.userRepo.GetByIDs(ctx, recipients)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load notification recipients for email")
		return
	}
	for _, id := range recipients {
		user, ok := users[id]
		if !ok || user.Email == "" {
			continue
		}
		msg := email.Message{
			To:      user.Email,
			ToName:  user.FullName(),
			Subject: payload.Title,
			Text:    fmt.Sprintf("Hi %s,\n\n%s\n\n%s", user.FullName(), payload.Body, payload.Link),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Warn().Err(err).Int64("userID", id).Msg("Failed to send notification email")
		}
	}
}

// List pages the caller's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]*models.Notification, int64, error) {
	items, total, err := s.notificationRepo.List(ctx, userID, unreadOnly, page, size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, total, nil
}

// UnreadCount counts the caller's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	n, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the caller's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.notificationRepo.MarkRead(ctx, notificationID, userID, s.now())
}

// MarkAllRead marks every unread notification of the caller read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.notificationRepo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

// Delete removes one of the caller's notifications
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID int64) error {
	return s.notificationRepo.Delete(ctx, notificationID, userID)
}

// uniqueIDs drops duplicates and non-positive ids, keeping first-seen order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
