package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/validation"
	"github.com/yigit/classroom/internal/pkg/websocket"
)

func TestNewClassCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := newClassCode()
		assert.True(t, validation.IsValidClassCode(code), code)
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "I")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestClassService_CreateRequiresTeacher(t *testing.T) {
	env := newTestEnv(t)
	student := env.user(t, "stud", models.RoleStudent)

	_, err := env.svc.Class.Create(context.Background(), student, &dto.CreateClassRequest{Name: "Nope"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestClassService_JoinFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	student := env.user(t, "stud", models.RoleStudent)
	outsider := env.user(t, "out", models.RoleStudent)

	class := env.class(t, teacher)
	assert.Equal(t, "TEACHER", class.Role)
	assert.Len(t, class.Code, 7)

	joined, err := env.svc.Class.Join(ctx, student, " "+class.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, "STUDENT", joined.Role)
	assert.Empty(t, joined.Code, "students never see the join code")

	_, err = env.svc.Class.Join(ctx, student, class.Code)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyEnrolled)

	_, err = env.svc.Class.Join(ctx, outsider, "ZZZZZZZ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidClassCode)

	other := env.user(t, "teach2", models.RoleTeacher)
	_, err = env.svc.Class.Join(ctx, other, class.Code)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	notes := env.notifications(t, teacher.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationClassJoined, notes[0].Type)
	assert.Contains(t, env.pub.rooms(), websocket.UserRoom(teacher.UserID))

	_, err = env.svc.Class.Get(ctx, outsider, class.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	got, err := env.svc.Class.Get(ctx, student, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics 101", got.Name)
}

func TestClassService_ArchivedClassRejectsJoin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	student := env.user(t, "stud", models.RoleStudent)
	class := env.class(t, teacher)

	updated, err := env.svc.Class.Update(ctx, teacher, class.ID, &dto.UpdateClassRequest{Archived: ptr(true), Section: ptr("B")})
	require.NoError(t, err)
	assert.True(t, updated.Archived)
	assert.Equal(t, "B", updated.Section)

	_, err = env.svc.Class.Join(ctx, student, class.Code)
	assert.ErrorIs(t, err, apperrors.ErrClassArchived)

	active, total, err := env.svc.Class.ListMine(ctx, teacher, false, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.EqualValues(t, 0, total)

	all, _, err := env.svc.Class.ListMine(ctx, teacher, true, 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestClassService_Membership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	alice := env.user(t, "alice", models.RoleStudent)
	bob := env.user(t, "bob", models.RoleStudent)
	class := env.class(t, teacher, alice, bob)

	members, err := env.svc.Class.ListMembers(ctx, alice, class.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, teacher.UserID, members[0].UserID)
	assert.Equal(t, "TEACHER", members[0].Role)

	err = env.svc.Class.Leave(ctx, teacher, class.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	require.NoError(t, env.svc.Class.Leave(ctx, alice, class.ID))

	err = env.svc.Class.RemoveMember(ctx, bob, class.ID, alice.UserID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	err = env.svc.Class.RemoveMember(ctx, teacher, class.ID, teacher.UserID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	require.NoError(t, env.svc.Class.RemoveMember(ctx, teacher, class.ID, bob.UserID))

	members, err = env.svc.Class.ListMembers(ctx, teacher, class.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	mine, _, err := env.svc.Class.ListMine(ctx, bob, false, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestClassService_RegenerateCodeAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teach", models.RoleTeacher)
	student := env.user(t, "stud", models.RoleStudent)
	admin := env.user(t, "root", models.RoleAdmin)
	class := env.class(t, teacher)

	fresh, err := env.svc.Class.RegenerateCode(ctx, teacher, class.ID)
	require.NoError(t, err)
	assert.NotEqual(t, class.Code, fresh.Code)

	_, err = env.svc.Class.Join(ctx, student, class.Code)
	assert.ErrorIs(t, err, apperrors.ErrInvalidClassCode)
	_, err = env.svc.Class.Join(ctx, student, fresh.Code)
	require.NoError(t, err)

	err = env.svc.Class.Delete(ctx, student, class.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	viewed, err := env.svc.Class.Get(ctx, admin, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "TEACHER", viewed.Role)
	assert.Equal(t, fresh.Code, viewed.Code)

	require.NoError(t, env.svc.Class.Delete(ctx, admin, class.ID))
	_, err = env.svc.Class.Get(ctx, teacher, class.ID)
	assert.ErrorIs(t, err, apperrors.ErrClassNotFound)
}
