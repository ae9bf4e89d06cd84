package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/websocket"
)

func TestNotificationService_Notify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	classID := int64(9)

	created := env.svc.Notification.Notify(ctx, []int64{alice.UserID, bob.UserID, alice.UserID, 0}, NotificationPayload{
		Type:    models.NotificationAssignmentCreated,
		Title:   "New assignment",
		Link:    "/classes/9/assignments/1",
		ClassID: &classID,
	})
	require.Len(t, created, 2, "duplicates and invalid ids are dropped")
	assert.Equal(t, []string{websocket.UserRoom(alice.UserID), websocket.UserRoom(bob.UserID)}, env.pub.rooms())
	assert.Equal(t, EventNotification, env.pub.events[0].event.Type)

	assert.Nil(t, env.svc.Notification.Notify(ctx, nil, NotificationPayload{Type: models.NotificationClassJoined}))
}

func TestNotificationService_PublishFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleStudent)
	env.pub.err = errors.New("redis down")

	created := env.svc.Notification.Notify(ctx, []int64{alice.UserID}, NotificationPayload{
		Type:  models.NotificationSubmissionGraded,
		Title: "Graded: Essay",
		Body:  "You received 9/10.",
	})
	require.Len(t, created, 1)
	assert.Len(t, env.notifications(t, alice.UserID), 1, "the notification is stored even when the push fails")
	assert.Len(t, env.mail.Sent(), 1)
}

func TestNotificationService_WithoutPublisherOrMailer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleStudent)
	svc := NewNotificationService(env.repos.NotificationRepository, env.repos.UserRepository, nil, nil, zerolog.Nop(), func() time.Time { return env.now })

	created := svc.Notify(ctx, []int64{alice.UserID}, NotificationPayload{Type: models.NotificationSubmissionGraded, Title: "Graded"})
	assert.Len(t, created, 1)
}

func TestNotificationService_ReadState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	svc := env.svc.Notification

	for _, title := range []string{"one", "two", "three"} {
		svc.Notify(ctx, []int64{alice.UserID}, NotificationPayload{Type: models.NotificationMaterialCreated, Title: title})
	}

	n, err := svc.UnreadCount(ctx, alice.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	items, total, err := svc.List(ctx, alice.UserID, false, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "three", items[0].Title)

	assert.ErrorIs(t, svc.MarkRead(ctx, bob.UserID, items[0].ID), apperrors.ErrNotificationAbsent)
	require.NoError(t, svc.MarkRead(ctx, alice.UserID, items[0].ID))

	unread, _, err := svc.List(ctx, alice.UserID, true, 1, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	changed, err := svc.MarkAllRead(ctx, alice.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	n, err = svc.UnreadCount(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, svc.Delete(ctx, bob.UserID, items[1].ID), apperrors.ErrNotificationAbsent)
	require.NoError(t, svc.Delete(ctx, alice.UserID, items[1].ID))
	_, total, err = svc.List(ctx, alice.UserID, false, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
