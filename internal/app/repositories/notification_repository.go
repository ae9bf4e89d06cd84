package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/db"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/helpers"
	"github.com/yigit/classroom/internal/pkg/logger"
)

var notificationColumns = []string{
	"id", "user_id", "type", "title", "body", "link", "class_id", "read", "read_at", "created_at",
}

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	n := &models.Notification{}
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &n.ClassID, &n.Read, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateMany inserts notifications in one statement and fills their ids
func (r *NotificationRepository) CreateMany(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	insert := r.sb.Insert("notifications").
		Columns("user_id", "type", "title", "body", "link", "class_id", "read")
	for _, n := range notifications {
		insert = insert.Values(n.UserID, n.Type, n.Title, n.Body, n.Link, n.ClassID, false)
	}

	sql, args, err := insert.Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create notifications query: %w", err)
	}

	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			logger.Error().Err(err).Int("count", len(notifications)).Msg("Error creating notifications")
			return fmt.Errorf("error creating notifications: %w", err)
		}
		defer rows.Close()

		// RETURNING yields rows in VALUES order for a single INSERT
		i := 0
		for rows.Next() {
			if i >= len(notifications) {
				break
			}
			if err := rows.Scan(&notifications[i].ID, &notifications[i].CreatedAt); err != nil {
				return fmt.Errorf("error scanning notification id: %w", err)
			}
			i++
		}
		return rows.Err()
	})
}

// List pages a user's notifications, newest first
func (r *NotificationRepository) List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]*models.Notification, int64, error) {
	where := squirrel.Eq{"user_id": userID}
	if unreadOnly {
		where["read"] = false
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("notifications").Where(where), "notifications")
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*models.Notification{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	items, err := collect(ctx, r.db, r.sb.Select(notificationColumns...).
		From("notifications").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(offset), scanNotification, "list notifications")
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountUnread counts a user's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return count(ctx, r.db, r.sb.Select("COUNT(*)").From("notifications").
		Where(squirrel.Eq{"user_id": userID, "read": false}), "unread notifications")
}

// MarkRead marks one of the user's notifications read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64, at time.Time) error {
	return execAffecting(ctx, r.db, r.sb.Update("notifications").
		Set("read", true).
		Set("read_at", squirrel.Expr("COALESCE(read_at, ?)", at)).
		Where(squirrel.Eq{"id": id, "user_id": userID}), apperrors.ErrNotificationAbsent, "mark notification read")
}

// MarkAllRead marks every unread notification of the user read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	sql, args, err := r.sb.Update("notifications").
		Set("read", true).
		Set("read_at", at).
		Where(squirrel.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build mark all read query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error marking notifications read")
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one of the user's notifications
func (r *NotificationRepository) Delete(ctx context.Context, id, userID int64) error {
	return execAffecting(ctx, r.db, r.sb.Delete("notifications").
		Where(squirrel.Eq{"id": id, "user_id": userID}), apperrors.ErrNotificationAbsent, "delete notification")
}
