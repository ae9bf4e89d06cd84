package memory

import (
	"context"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// CommentRepository stores comments in memory
type CommentRepository struct{ s *Store }

// Create stores a comment
func (r *CommentRepository) Create(_ context.Context, c *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	c.ID = r.s.nextID("comments")
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	stored.Author = nil
	r.s.comments[c.ID] = stored
	return nil
}

// GetByID retrieves a comment
func (r *CommentRepository) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, apperrors.ErrCommentNotFound
	}
	return &c, nil
}

// ListByTarget pages the comments on a resource, oldest first
func (r *CommentRepository) ListByTarget(_ context.Context, target models.CommentTarget, targetID int64, pageNum, size int) ([]*models.Comment, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*models.Comment, 0)
	for _, c := range r.s.comments {
		if c.TargetType == target && c.TargetID == targetID {
			if u, ok := r.s.users[c.AuthorID]; ok {
				c.Author = &u
			}
			all = append(all, &c)
		}
	}
	sortByTime(all, func(c *models.Comment) (time.Time, int64) { return c.CreatedAt, c.ID }, false)
	return page(all, pageNum, size), int64(len(all)), nil
}

// Update saves the body
func (r *CommentRepository) Update(_ context.Context, c *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.comments[c.ID]
	if !ok {
		return apperrors.ErrCommentNotFound
	}
	stored.Body = c.Body
	stored.UpdatedAt = r.s.now()
	c.UpdatedAt = stored.UpdatedAt
	r.s.comments[c.ID] = stored
	return nil
}

// Delete removes a comment
func (r *CommentRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.comments[id]; !ok {
		return apperrors.ErrCommentNotFound
	}
	delete(r.s.comments, id)
	return nil
}

// NotificationRepository stores notifications in memory
type NotificationRepository struct{ s *Store }

// CreateMany stores notifications and fills their ids
func (r *NotificationRepository) CreateMany(_ context.Context, notifications []*models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, n := range notifications {
		n.ID = r.s.nextID("notifications")
		n.CreatedAt = now
		n.Read, n.ReadAt = false, nil
		r.s.notifications[n.ID] = *n
	}
	return nil
}

// List pages a user's notifications, newest first
func (r *NotificationRepository) List(_ context.Context, userID int64, unreadOnly bool, pageNum, size int) ([]*models.Notification, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*models.Notification, 0)
	for _, n := range r.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			all = append(all, &n)
		}
	}
	sortByTime(all, func(n *models.Notification) (time.Time, int64) { return n.CreatedAt, n.ID }, true)
	return page(all, pageNum, size), int64(len(all)), nil
}

// CountUnread counts a user's unread notifications
func (r *NotificationRepository) CountUnread(_ context.Context, userID int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, x := range r.s.notifications {
		if x.UserID == userID && !x.Read {
			n++
		}
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read
func (r *NotificationRepository) MarkRead(_ context.Context, id, userID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return apperrors.ErrNotificationAbsent
	}
	if !n.Read {
		n.Read = true
		n.ReadAt = &at
		r.s.notifications[id] = n
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read
func (r *NotificationRepository) MarkAllRead(_ context.Context, userID int64, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var changed int64
	for id, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &at
			r.s.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

// Delete removes one of the user's notifications
func (r *NotificationRepository) Delete(_ context.Context, id, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return apperrors.ErrNotificationAbsent
	}
	delete(r.s.notifications, id)
	return nil
}
