package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

func TestCommentService_NotifiesCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	alice := env.user(t, "alice", models.RoleStudent)
	class := env.class(t, teacher, alice)

	a, err := env.svc.Assignment.Create(ctx, teacher, class.ID, &dto.CreateAssignmentRequest{Title: "Lab", Points: 10})
	require.NoError(t, err)

	c, err := env.svc.Comment.Create(ctx, alice, class.ID, &dto.CreateCommentRequest{
		TargetType: "ASSIGNMENT",
		TargetID:   a.ID,
		Body:       "  Can we work in pairs?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Can we work in pairs?", c.Body)
	require.NotNil(t, c.Author)
	assert.Equal(t, "alice", c.Author.Username)

	var commentNotes []*models.Notification
	for _, n := range env.notifications(t, teacher.UserID) {
		if n.Type == models.NotificationCommentCreated {
			commentNotes = append(commentNotes, n)
		}
	}
	require.Len(t, commentNotes, 1)
	assert.Equal(t, "New comment on Lab", commentNotes[0].Title)

	// the teacher replying on their own assignment notifies nobody
	_, err = env.svc.Comment.Create(ctx, teacher, class.ID, &dto.CreateCommentRequest{TargetType: "ASSIGNMENT", TargetID: a.ID, Body: "Yes"})
	require.NoError(t, err)
	for _, n := range env.notifications(t, alice.UserID) {
		assert.NotEqual(t, models.NotificationCommentCreated, n.Type)
	}

	list, total, err := env.svc.Comment.ListByTarget(ctx, alice, class.ID, models.CommentOnAssignment, a.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Can we work in pairs?", list[0].Body)
}

func TestCommentService_Targets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	alice := env.user(t, "alice", models.RoleStudent)
	outsider := env.user(t, "out", models.RoleStudent)
	class := env.class(t, teacher, alice)
	other := env.class(t, env.user(t, "teach2", models.RoleTeacher))

	classComment, err := env.svc.Comment.Create(ctx, alice, class.ID, &dto.CreateCommentRequest{TargetType: "CLASS", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, class.ID, classComment.TargetID)

	_, err = env.svc.Comment.Create(ctx, outsider, class.ID, &dto.CreateCommentRequest{TargetType: "CLASS", Body: "Hi"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = env.svc.Comment.Create(ctx, alice, class.ID, &dto.CreateCommentRequest{TargetType: "CLASS", Body: "   "})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	foreign, err := env.svc.Assignment.Create(ctx, teacherOf(other), other.ID, &dto.CreateAssignmentRequest{Title: "Elsewhere", Points: 1})
	require.NoError(t, err)
	_, err = env.svc.Comment.Create(ctx, alice, class.ID, &dto.CreateCommentRequest{TargetType: "ASSIGNMENT", TargetID: foreign.ID, Body: "?"})
	assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)

	draft, err := env.svc.Form.Create(ctx, teacher, class.ID, quizRequest(models.FormSettings{}))
	require.NoError(t, err)
	_, err = env.svc.Comment.Create(ctx, alice, class.ID, &dto.CreateCommentRequest{TargetType: "FORM", TargetID: draft.ID, Body: "?"})
	assert.ErrorIs(t, err, apperrors.ErrFormNotFound, "unpublished forms are hidden from students")
	_, err = env.svc.Comment.Create(ctx, teacher, class.ID, &dto.CreateCommentRequest{TargetType: "FORM", TargetID: draft.ID, Body: "note to self"})
	assert.NoError(t, err)
}

func TestCommentService_EditAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	class := env.class(t, teacher, alice, bob)

	c, err := env.svc.Comment.Create(ctx, alice, class.ID, &dto.CreateCommentRequest{TargetType: "CLASS", Body: "first"})
	require.NoError(t, err)

	_, err = env.svc.Comment.Update(ctx, bob, c.ID, &dto.UpdateCommentRequest{Body: "hijack"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	edited, err := env.svc.Comment.Update(ctx, alice, c.ID, &dto.UpdateCommentRequest{Body: "first, edited"})
	require.NoError(t, err)
	assert.Equal(t, "first, edited", edited.Body)

	assert.ErrorIs(t, env.svc.Comment.Delete(ctx, bob, c.ID), apperrors.ErrPermissionDenied)
	require.NoError(t, env.svc.Comment.Delete(ctx, teacher, c.ID))
	assert.ErrorIs(t, env.svc.Comment.Delete(ctx, alice, c.ID), apperrors.ErrCommentNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("é", 20)
	out := truncate(long, 10)
	assert.Equal(t, 10, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))
}

// teacherOf returns the owner of class as an actor
func teacherOf(class *dto.ClassResponse) authz.Actor {
	return authz.Actor{UserID: class.TeacherID, Role: models.RoleTeacher}
}
